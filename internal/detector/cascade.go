package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// CascadeDetector finds frontal faces with an OpenCV Haar cascade.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	config     Config
	mu         sync.Mutex
	closed     bool
}

// NewCascadeDetector loads the cascade at config.CascadePath.
func NewCascadeDetector(config Config) (*CascadeDetector, error) {
	if config.ScaleFactor <= 1 {
		config.ScaleFactor = DefaultConfig().ScaleFactor
	}
	if config.MinNeighbors <= 0 {
		config.MinNeighbors = DefaultConfig().MinNeighbors
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(config.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, config.CascadePath)
	}

	return &CascadeDetector{
		classifier: classifier,
		config:     config,
	}, nil
}

// Detect converts the frame to equalized grayscale and runs the cascade.
func (d *CascadeDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("detect: detector closed")
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.EqualizeHist(gray, &gray)

	minSize := image.Pt(d.config.MinFaceSize, d.config.MinFaceSize)
	rects := d.classifier.DetectMultiScaleWithParams(
		gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, minSize, image.Point{})

	faces := make([]Face, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, Face{Bounds: r, Score: 1})
	}
	return faces, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.classifier.Close()
}
