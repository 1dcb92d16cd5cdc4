// Package detector finds faces in camera frames.
package detector

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// ErrCascadeLoad is returned when a Haar cascade file cannot be loaded.
var ErrCascadeLoad = errors.New("failed to load cascade classifier")

// Face is one detected face.
type Face struct {
	Bounds image.Rectangle `json:"bounds"`
	// Score is the detection confidence in [0, 1]; detectors without a
	// confidence report 1.
	Score float64 `json:"score"`
}

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect analyzes a frame and returns the faces found in it.
	// Returns an empty slice if there are none.
	Detect(frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds tuning for the detector implementations.
type Config struct {
	// CascadePath is the Haar cascade XML used by CascadeDetector.
	CascadePath string

	// ScaleFactor and MinNeighbors are passed to DetectMultiScale.
	ScaleFactor  float64
	MinNeighbors int

	// MinFaceSize is the smallest face edge in pixels.
	MinFaceSize int

	// ScriptPath is the face service script run by MediaPipeDetector.
	ScriptPath string

	// Python is the interpreter for ScriptPath. Empty means auto-detect.
	Python string

	// MinConfidence drops MediaPipe detections below this score.
	MinConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ScaleFactor:   1.1,
		MinNeighbors:  5,
		MinFaceSize:   60,
		MinConfidence: 0.6,
	}
}
