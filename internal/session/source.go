package session

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"
)

// ErrFrameMiss is returned by a FrameSource when the camera fails to
// deliver a frame. The controller treats it as recoverable.
var ErrFrameMiss = errors.New("camera frame miss")

// FrameSource delivers raw camera frames on demand.
type FrameSource interface {
	// Grab blocks until a frame is available or returns ErrFrameMiss
	// if the camera cannot deliver one in time.
	Grab() (*image.RGBA, error)
	Close() error
}

// SimCamera is a synthetic frame source for development and demo
// runs. Each grab paints a banded gradient keyed to a counter so
// consecutive frames differ and seams are visible in the output.
type SimCamera struct {
	Width  int
	Height int

	// MissEvery forces every Nth grab to fail, exercising the
	// frame-miss retry path. Zero disables misses.
	MissEvery int

	mu     sync.Mutex
	grabs  int
	closed bool
}

// NewSimCamera returns a simulated camera producing w x h frames.
func NewSimCamera(w, h int) *SimCamera {
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return &SimCamera{Width: w, Height: h}
}

func (c *SimCamera) Grab() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("camera closed: %w", ErrFrameMiss)
	}
	c.grabs++
	if c.MissEvery > 0 && c.grabs%c.MissEvery == 0 {
		return nil, ErrFrameMiss
	}

	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	phase := float64(c.grabs) * 0.35
	for y := 0; y < c.Height; y++ {
		vert := float64(y) / float64(c.Height)
		for x := 0; x < c.Width; x++ {
			horiz := float64(x) / float64(c.Width)
			r := uint8(127 + 120*math.Sin(phase+horiz*6))
			g := uint8(60 + 180*vert)
			b := uint8(127 + 120*math.Cos(phase+vert*4))
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	// Simulated sensor readout latency.
	time.Sleep(time.Millisecond)
	return img, nil
}

func (c *SimCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
