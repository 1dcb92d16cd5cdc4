package app

import (
	"bytes"
	"sync"

	"gocv.io/x/gocv"
)

// frameBuffer keeps a copy of the last frame the sampler saw so snapshots
// and the stream never compete with the sampler for the camera.
type frameBuffer struct {
	mu     sync.Mutex
	mat    gocv.Mat
	has    bool
	closed bool
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{mat: gocv.NewMat()}
}

func (b *frameBuffer) store(frame *gocv.Mat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || frame == nil || frame.Empty() {
		return
	}
	if err := frame.CopyTo(&b.mat); err == nil {
		b.has = true
	}
}

// clone returns a copy the caller must Close.
func (b *frameBuffer) clone() (gocv.Mat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || !b.has {
		return gocv.Mat{}, false
	}
	return b.mat.Clone(), true
}

func (b *frameBuffer) jpeg() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || !b.has {
		return nil, false
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, b.mat)
	if err != nil {
		return nil, false
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), true
}

func (b *frameBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.has = false
	b.mat.Close()
}
