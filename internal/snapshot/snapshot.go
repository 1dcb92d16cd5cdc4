// Package snapshot exports a camera frame with the current streak stats
// drawn over a translucent band along the bottom edge.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/studybuddy/internal/focus"
)

// Layout of the overlay band.
const (
	fontFace   = gocv.FontHersheySimplex
	fontScale  = 0.7
	thickness  = 2
	lineGap    = 10
	leftPad    = 16
	topPad     = 12
	bottomPad  = 12
	bandAlpha  = 130.0 / 255.0
	maxRetries = 5
)

// ErrWrite is returned when the encoder refuses to write the image.
var ErrWrite = errors.New("failed to write snapshot")

// Overlay is the data shown on a snapshot.
type Overlay struct {
	Label             string
	Streak            time.Duration
	TotalPoints       int64
	BestStreakSeconds int64
}

// Lines returns the four text lines of the overlay.
func (o Overlay) Lines() []string {
	return []string{
		o.Label,
		"Streak: " + focus.FormatStreak(o.Streak),
		fmt.Sprintf("Total points: %d", o.TotalPoints),
		"Best: " + focus.FormatSeconds(o.BestStreakSeconds),
	}
}

// Compose draws the overlay onto a copy of frame. The caller must Close the
// returned Mat.
func Compose(frame gocv.Mat, o Overlay) gocv.Mat {
	out := frame.Clone()
	lines := o.Lines()

	heights := make([]int, len(lines))
	bandH := topPad + bottomPad + lineGap*(len(lines)-1)
	for i, line := range lines {
		heights[i] = gocv.GetTextSize(line, fontFace, fontScale, thickness).Y
		bandH += heights[i]
	}

	rows, cols := out.Rows(), out.Cols()
	if bandH > rows {
		bandH = rows
	}
	top := rows - bandH

	band := out.Region(image.Rect(0, top, cols, rows))
	shade := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), bandH, cols, out.Type())
	gocv.AddWeighted(band, 1-bandAlpha, shade, bandAlpha, 0, &band)
	shade.Close()
	band.Close()

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	y := top + topPad
	for i, line := range lines {
		y += heights[i]
		gocv.PutText(&out, line, image.Pt(leftPad, y), fontFace, fontScale, white, thickness)
		y += lineGap
	}

	return out
}

// Exporter writes snapshots into a directory under unique names.
type Exporter struct {
	dir   string
	now   func() time.Time
	newID func() string
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir:   dir,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Export composes the overlay onto frame and writes a PNG. It returns the
// written path. Existing files are never overwritten.
func (e *Exporter) Export(frame gocv.Mat, o Overlay) (string, error) {
	if frame.Empty() {
		return "", fmt.Errorf("export snapshot: empty frame")
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path, err := e.freshPath()
	if err != nil {
		return "", err
	}

	img := Compose(frame, o)
	defer img.Close()

	if !gocv.IMWrite(path, img) {
		return "", fmt.Errorf("%w: %s", ErrWrite, path)
	}
	return path, nil
}

func (e *Exporter) freshPath() (string, error) {
	ts := e.now().Unix()
	for i := 0; i < maxRetries; i++ {
		id := e.newID()
		if len(id) > 8 {
			id = id[:8]
		}
		path := filepath.Join(e.dir, fmt.Sprintf("studybuddy_snapshot_%d_%s.png", ts, id))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("export snapshot: no free file name after %d attempts", maxRetries)
}
