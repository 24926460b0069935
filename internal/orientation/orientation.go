// Package orientation tracks device heading during a capture session.
// A Tracker consumes samples from a pluggable Source, keeps the most
// recent reading, and measures rotation progress against a reference
// heading snapshotted when guided capture begins.
package orientation

import (
	"errors"
	"math"
	"time"
)

// ErrUnavailable is returned by a Source when the platform denies access
// to the orientation sensor. Callers should fall back to manual capture
// rather than treating this as fatal.
var ErrUnavailable = errors.New("orientation sensor unavailable")

// Sample is a single device-orientation reading. Heading is rotation
// around the vertical axis in degrees, normalized to [0, 360).
type Sample struct {
	Heading    float64   `json:"heading"`
	Tilt       float64   `json:"tilt"`
	Roll       float64   `json:"roll"`
	CapturedAt time.Time `json:"captured_at"`
}

// Source is anything that can provide orientation samples over time:
// a platform sensor bridge, a replay source, or a simulator.
type Source interface {
	// Start performs the capability check and begins emitting samples.
	// It returns ErrUnavailable when sensor access is denied.
	Start() error

	// Samples returns the channel samples are delivered on. The channel
	// is closed when the source stops.
	Samples() <-chan Sample

	// Stop releases the sensor subscription. Safe to call more than once.
	Stop()
}

// NormalizeHeading maps an arbitrary angle in degrees into [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Delta returns the angular distance between two headings along the
// shorter arc. The result is symmetric and always within [0, 180].
func Delta(a, b float64) float64 {
	d := math.Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Sweep returns the clockwise rotation from heading `from` to heading
// `to` in [0, 360). Unlike Delta it is directional: a device that has
// turned 270° clockwise reports 270, not 90. Guided capture uses this
// to measure progress around the full circle.
func Sweep(from, to float64) float64 {
	return NormalizeHeading(to - from)
}
