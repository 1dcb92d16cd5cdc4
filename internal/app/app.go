// Package app ties the camera, the presence sampler, the focus engine and
// the progress store together behind a single tick loop, and publishes a
// read-only View for the frontends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/studybuddy/internal/capture"
	"github.com/ayusman/studybuddy/internal/detector"
	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/presence"
	"github.com/ayusman/studybuddy/internal/progress"
	"github.com/ayusman/studybuddy/internal/snapshot"
)

// ErrCameraUnavailable wraps any failure to acquire the camera.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Loop timing defaults.
const (
	DefaultTick        = 80 * time.Millisecond
	DefaultReadTimeout = 500 * time.Millisecond
	DefaultLabel       = "AI Study Buddy"

	intentQueueSize = 16

	snapshotReadAttempts = 3
	snapshotReadDelay    = 30 * time.Millisecond
)

// Config holds the collaborators and tuning of an App.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Store    progress.Store
	Exporter *snapshot.Exporter
	Hooks    HookSink

	Focus       focus.Config
	Tick        time.Duration
	ReadTimeout time.Duration
	Label       string

	Logger *slog.Logger
}

// App is the running focus tracker. Step and Close are serialized; Submit
// and View are safe from any goroutine.
type App struct {
	config   Config
	logger   *slog.Logger
	camera   capture.Camera
	detector detector.Detector
	store    progress.Store
	exporter *snapshot.Exporter
	hooks    HookSink
	sampler  *presence.Sampler
	engine   *focus.Engine
	frames   *frameBuffer

	// progress is the single owned record; the engine holds a pointer to it.
	progress progress.Progress

	ctx    context.Context
	cancel context.CancelFunc

	intents chan Intent

	stepMu     sync.Mutex
	lastStep   time.Time
	notice     notice
	cameraOpen bool
	closed     bool
	closeOnce  sync.Once
	closeErr   error

	viewMu sync.RWMutex
	view   View

	now func() time.Time
}

// New creates an App. Progress is loaded from the store immediately; the
// camera is not touched until Open.
func New(config Config) *App {
	if config.Tick <= 0 {
		config.Tick = DefaultTick
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.Label == "" {
		config.Label = DefaultLabel
	}
	if config.Exporter == nil {
		config.Exporter = snapshot.NewExporter(".")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:   config,
		logger:   logger,
		camera:   config.Camera,
		detector: config.Detector,
		store:    config.Store,
		exporter: config.Exporter,
		hooks:    config.Hooks,
		frames:   newFrameBuffer(),
		ctx:      ctx,
		cancel:   cancel,
		intents:  make(chan Intent, intentQueueSize),
		now:      time.Now,
	}

	if a.store != nil {
		a.progress = a.store.Load(ctx)
	}

	var saver focus.Saver
	if a.store != nil {
		saver = a.store
	}
	a.engine = focus.New(config.Focus, &a.progress, saver, logger)

	source := presence.NewCameraSource(a.camera, a.detector).OnFrame(a.frames.store)
	a.sampler = presence.NewSampler(source, config.ReadTimeout, logger)

	a.publish(a.now())
	return a
}

// Open acquires the camera. On failure every acquired resource is released
// and the error wraps ErrCameraUnavailable.
func (a *App) Open() error {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	if a.closed {
		return fmt.Errorf("%w: app is closed", ErrCameraUnavailable)
	}
	if a.cameraOpen {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		a.camera.Close()
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	a.cameraOpen = true
	a.logger.Info("camera opened")
	a.publish(a.now())
	return nil
}

// Close ends any live session, releases the detector and the camera and
// writes progress one last time. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.stepMu.Lock()
		defer a.stepMu.Unlock()

		now := a.now()
		a.notify(now, a.engine.Stop(now))

		a.cancel()
		if a.hooks != nil {
			a.hooks.Stop()
		}

		var errs []error
		if a.detector != nil {
			if err := a.detector.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close detector: %w", err))
			}
		}
		if err := a.camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
		a.cameraOpen = false
		a.frames.close()

		if a.store != nil {
			if err := a.store.Save(context.Background(), &a.progress); err != nil {
				errs = append(errs, fmt.Errorf("final save: %w", err))
			}
		}

		if err := closeStore(a.store); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}

		a.closed = true
		a.publish(now)
		a.closeErr = errors.Join(errs...)
		a.logger.Info("studybuddy closed",
			"total_points", a.progress.TotalPoints,
			"best_streak_seconds", a.progress.BestStreakSeconds)
	})
	return a.closeErr
}

// Submit queues an intent for the next Step. It never blocks and reports
// false when the queue is full.
func (a *App) Submit(intent Intent) bool {
	select {
	case a.intents <- intent:
		return true
	default:
		a.logger.Warn("intent dropped, queue full", "intent", intent.String())
		return false
	}
}

// View returns the latest published view.
func (a *App) View() View {
	a.viewMu.RLock()
	defer a.viewMu.RUnlock()
	return a.view
}

// FrameJPEG returns the most recently sampled frame as JPEG.
func (a *App) FrameJPEG() ([]byte, bool) {
	return a.frames.jpeg()
}

// TickInterval returns the configured loop period.
func (a *App) TickInterval() time.Duration {
	return a.config.Tick
}

// Progress returns a copy of the progress record.
func (a *App) Progress() progress.Progress {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()
	return a.progress
}
