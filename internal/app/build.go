package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayusman/studybuddy/internal/capture"
	"github.com/ayusman/studybuddy/internal/config"
	"github.com/ayusman/studybuddy/internal/detector"
	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/hook"
	"github.com/ayusman/studybuddy/internal/progress"
	"github.com/ayusman/studybuddy/internal/snapshot"
	"github.com/ayusman/studybuddy/internal/store"
)

// Build creates an App with the device camera, the configured detector and
// progress backend. The camera is not opened.
func Build(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ps, err := OpenStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	det, err := NewDetector(cfg.Detector, logger)
	if err != nil {
		closeStore(ps)
		return nil, err
	}

	c := Config{
		Camera:      NewCamera(cfg.Camera),
		Detector:    det,
		Store:       ps,
		Exporter:    snapshot.NewExporter(cfg.Snapshot.Dir),
		Focus:       FocusConfig(cfg.Focus),
		Tick:        cfg.Loop.Tick,
		ReadTimeout: cfg.Camera.ReadTimeout,
		Label:       cfg.Snapshot.Label,
		Logger:      logger,
	}
	if d := StartHooks(cfg.Hooks, logger); d != nil {
		c.Hooks = d
	}
	return New(c), nil
}

// StartHooks discovers hooks and starts their dispatcher. It returns nil
// when hooks are disabled or none are installed.
func StartHooks(c config.HooksConfig, logger *slog.Logger) *hook.Dispatcher {
	if !c.Enabled {
		return nil
	}
	m := hook.NewManager(c.Dir, logger)
	if err := m.Discover(); err != nil {
		logger.Warn("hook discovery failed", "dir", c.Dir, "error", err)
		return nil
	}
	if len(m.List()) == 0 {
		return nil
	}
	d := hook.NewDispatcher(m, hook.NewExecutor(c.Timeout), logger)
	d.Start(context.Background())
	return d
}

// FocusConfig converts the file configuration to engine tuning.
func FocusConfig(c config.FocusConfig) focus.Config {
	return focus.Config{
		GracePeriod:       c.GracePeriod,
		RewardInterval:    c.RewardInterval,
		PointsPerInterval: c.PointsPerInterval,
	}
}

// NewCamera creates the device camera described by c.
func NewCamera(c config.CameraConfig) capture.Camera {
	return capture.NewCamera(capture.Options{
		Device: c.Device,
		Width:  c.Width,
		Height: c.Height,
		FPS:    c.FPS,
		Mirror: c.Mirror,
	})
}

// OpenStore opens the progress backend selected by c.Driver.
func OpenStore(c config.StoreConfig, logger *slog.Logger) (progress.Store, error) {
	switch c.Driver {
	case config.StoreSQLite:
		s, err := store.New(c.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open progress database: %w", err)
		}
		return s, nil
	case config.StoreFile, "":
		return progress.NewFileStore(c.Path, logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}

// NewDetector creates the configured face detector. When the MediaPipe
// service is not installed it falls back to the Haar cascade.
func NewDetector(c config.DetectorConfig, logger *slog.Logger) (detector.Detector, error) {
	dc := detector.Config{
		CascadePath:   c.CascadePath,
		ScaleFactor:   c.ScaleFactor,
		MinNeighbors:  c.MinNeighbors,
		MinFaceSize:   c.MinFaceSize,
		ScriptPath:    c.ScriptPath,
		MinConfidence: c.MinConfidence,
	}

	if c.Kind == config.DetectorMediaPipe {
		mp, err := detector.NewMediaPipeDetector(dc)
		if err == nil {
			logger.Info("using MediaPipe face detection")
			return mp, nil
		}
		logger.Warn("MediaPipe not available, using Haar cascade", "error", err)
	}

	cd, err := detector.NewCascadeDetector(dc)
	if err != nil {
		return nil, err
	}
	logger.Info("using Haar cascade face detection", "path", c.CascadePath)
	return cd, nil
}

// closeStore closes backends that hold a handle, such as the SQLite store.
func closeStore(ps progress.Store) error {
	if c, ok := ps.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
