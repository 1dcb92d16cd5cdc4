// Package config loads studybuddy settings from defaults, an optional YAML
// file and STUDYBUDDY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// UI modes.
const (
	UITray     = "tray"
	UITUI      = "tui"
	UIHeadless = "headless"
)

// Detector kinds.
const (
	DetectorCascade   = "cascade"
	DetectorMediaPipe = "mediapipe"
)

// Store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the full application configuration.
type Config struct {
	Focus    FocusConfig    `yaml:"focus"`
	Loop     LoopConfig     `yaml:"loop"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Store    StoreConfig    `yaml:"store"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Server   ServerConfig   `yaml:"server"`
	UI       UIConfig       `yaml:"ui"`
	Hooks    HooksConfig    `yaml:"hooks"`
	Log      LogConfig      `yaml:"log"`
}

type FocusConfig struct {
	GracePeriod       time.Duration `yaml:"grace_period"`
	RewardInterval    time.Duration `yaml:"reward_interval"`
	PointsPerInterval int64         `yaml:"points_per_interval"`
}

type LoopConfig struct {
	Tick time.Duration `yaml:"tick"`
}

type CameraConfig struct {
	Device      int           `yaml:"device"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	FPS         int           `yaml:"fps"`
	Mirror      bool          `yaml:"mirror"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type DetectorConfig struct {
	Kind          string  `yaml:"kind"`
	CascadePath   string  `yaml:"cascade_path"`
	ScaleFactor   float64 `yaml:"scale_factor"`
	MinNeighbors  int     `yaml:"min_neighbors"`
	MinFaceSize   int     `yaml:"min_face_size"`
	ScriptPath    string  `yaml:"script_path"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type SnapshotConfig struct {
	Dir   string `yaml:"dir"`
	Label string `yaml:"label"`
}

type ServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type UIConfig struct {
	Mode string `yaml:"mode"`
}

// HooksConfig controls external event hooks.
type HooksConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		Focus: FocusConfig{
			GracePeriod:       7 * time.Second,
			RewardInterval:    25 * time.Minute,
			PointsPerInterval: 10,
		},
		Loop: LoopConfig{
			Tick: 80 * time.Millisecond,
		},
		Camera: CameraConfig{
			Device:      0,
			Width:       640,
			Height:      480,
			FPS:         15,
			Mirror:      true,
			ReadTimeout: 500 * time.Millisecond,
		},
		Detector: DetectorConfig{
			Kind:          DetectorCascade,
			CascadePath:   filepath.Join(dataDir, "haarcascade_frontalface_default.xml"),
			ScaleFactor:   1.1,
			MinNeighbors:  5,
			MinFaceSize:   60,
			MinConfidence: 0.6,
		},
		Store: StoreConfig{
			Driver: StoreFile,
			Path:   filepath.Join(dataDir, "progress.json"),
		},
		Snapshot: SnapshotConfig{
			Dir:   ".",
			Label: "AI Study Buddy",
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8765",
		},
		UI: UIConfig{
			Mode: UITray,
		},
		Hooks: HooksConfig{
			Enabled: true,
			Dir:     filepath.Join(dataDir, "hooks"),
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dataDir, "studybuddy.log"),
		},
	}
}

// DataDir returns ~/.studybuddy, or .studybuddy when the home directory is
// unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".studybuddy"
	}
	return filepath.Join(home, ".studybuddy")
}

// Load builds the configuration. path is an optional YAML file; when empty
// STUDYBUDDY_CONFIG is consulted. overrides run after the file and the
// environment, before validation, so command-line flags can fix a bad file.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	dataDir := DataDir()
	cfg := Default(dataDir)

	if path == "" {
		path = os.Getenv("STUDYBUDDY_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.Store.Path = storePathFor(cfg.Store, dataDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// storePathFor swaps the default JSON path for progress.db when the SQLite
// driver was selected without naming a path.
func storePathFor(c StoreConfig, dataDir string) string {
	if c.Driver == StoreSQLite && c.Path == filepath.Join(dataDir, "progress.json") {
		return filepath.Join(dataDir, "progress.db")
	}
	return c.Path
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("STUDYBUDDY_GRACE_PERIOD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STUDYBUDDY_GRACE_PERIOD: %w", err)
		}
		cfg.Focus.GracePeriod = d
	}
	if v := os.Getenv("STUDYBUDDY_REWARD_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STUDYBUDDY_REWARD_INTERVAL: %w", err)
		}
		cfg.Focus.RewardInterval = d
	}
	if v := os.Getenv("STUDYBUDDY_POINTS_PER_INTERVAL"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid STUDYBUDDY_POINTS_PER_INTERVAL: %w", err)
		}
		cfg.Focus.PointsPerInterval = n
	}
	if v := os.Getenv("STUDYBUDDY_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STUDYBUDDY_TICK: %w", err)
		}
		cfg.Loop.Tick = d
	}
	if v := os.Getenv("STUDYBUDDY_CAMERA_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STUDYBUDDY_CAMERA_DEVICE: %w", err)
		}
		cfg.Camera.Device = n
	}
	if v := os.Getenv("STUDYBUDDY_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("STUDYBUDDY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("STUDYBUDDY_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.Dir = v
	}
	if v := os.Getenv("STUDYBUDDY_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
		cfg.Server.Enabled = true
	}
	if v := os.Getenv("STUDYBUDDY_UI"); v != "" {
		cfg.UI.Mode = v
	}
	if v := os.Getenv("STUDYBUDDY_HOOKS_DIR"); v != "" {
		cfg.Hooks.Dir = v
	}
	if v := os.Getenv("STUDYBUDDY_HOOKS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STUDYBUDDY_HOOKS_ENABLED: %w", err)
		}
		cfg.Hooks.Enabled = b
	}
	if v := os.Getenv("STUDYBUDDY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Focus.GracePeriod < 0 {
		errs = append(errs, errors.New("focus.grace_period must not be negative"))
	}
	if c.Focus.RewardInterval <= 0 {
		errs = append(errs, errors.New("focus.reward_interval must be positive"))
	}
	if c.Focus.PointsPerInterval <= 0 {
		errs = append(errs, errors.New("focus.points_per_interval must be positive"))
	}
	if c.Loop.Tick <= 0 {
		errs = append(errs, errors.New("loop.tick must be positive"))
	}
	if c.Camera.ReadTimeout <= 0 {
		errs = append(errs, errors.New("camera.read_timeout must be positive"))
	}
	switch c.Detector.Kind {
	case DetectorCascade, DetectorMediaPipe:
	default:
		errs = append(errs, fmt.Errorf("detector.kind %q is not one of cascade, mediapipe", c.Detector.Kind))
	}
	switch c.Store.Driver {
	case StoreFile, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of file, sqlite", c.Store.Driver))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Hooks.Enabled && c.Hooks.Timeout <= 0 {
		errs = append(errs, errors.New("hooks.timeout must be positive"))
	}
	switch c.UI.Mode {
	case UITray, UITUI, UIHeadless:
	default:
		errs = append(errs, fmt.Errorf("ui.mode %q is not one of tray, tui, headless", c.UI.Mode))
	}
	return errors.Join(errs...)
}
