// Package presence turns camera frames into a per-tick "someone is there"
// reading that never blocks the tick loop for long and never reports
// presence it did not observe.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/studybuddy/internal/capture"
	"github.com/ayusman/studybuddy/internal/detector"
)

// ErrProbeBusy is reported when an earlier timed-out probe is still running.
var ErrProbeBusy = errors.New("presence probe still in flight")

// Source answers whether a face is in front of the camera right now.
type Source interface {
	Present(ctx context.Context) (bool, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (bool, error)

func (f SourceFunc) Present(ctx context.Context) (bool, error) {
	return f(ctx)
}

// CameraSource reads one frame and runs the detector on it.
type CameraSource struct {
	camera   capture.Camera
	detector detector.Detector
	onFrame  func(*gocv.Mat)
}

// NewCameraSource creates a CameraSource.
func NewCameraSource(cam capture.Camera, det detector.Detector) *CameraSource {
	return &CameraSource{camera: cam, detector: det}
}

// OnFrame registers fn to see every frame before detection. fn must not
// keep the Mat; the source closes it after detection.
func (s *CameraSource) OnFrame(fn func(*gocv.Mat)) *CameraSource {
	s.onFrame = fn
	return s
}

// Present reports whether at least one face is in the current frame.
func (s *CameraSource) Present(_ context.Context) (bool, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return false, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	if s.onFrame != nil {
		s.onFrame(frame)
	}

	faces, err := s.detector.Detect(frame)
	if err != nil {
		return false, fmt.Errorf("detect faces: %w", err)
	}
	return len(faces) > 0, nil
}

// Sampler wraps a Source with a deadline. Any failure or timeout reads as
// absent for that tick only.
type Sampler struct {
	source   Source
	timeout  time.Duration
	logger   *slog.Logger
	inFlight atomic.Bool
}

// NewSampler creates a Sampler bounding each probe by timeout.
func NewSampler(source Source, timeout time.Duration, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
}

type probeResult struct {
	present bool
	err     error
}

// Sample returns the presence reading for this tick.
func (s *Sampler) Sample(ctx context.Context) bool {
	present, err := s.probe(ctx)
	if err != nil {
		s.logger.Debug("presence probe failed, treating as absent", "error", err)
		return false
	}
	return present
}

func (s *Sampler) probe(ctx context.Context) (bool, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false, ErrProbeBusy
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		defer s.inFlight.Store(false)
		present, err := s.source.Present(ctx)
		done <- probeResult{present: present, err: err}
	}()

	select {
	case r := <-done:
		return r.present, r.err
	case <-ctx.Done():
		return false, fmt.Errorf("presence probe: %w", ctx.Err())
	}
}
