// Package session holds the capture-session data model and the
// controller that drives a session from open to finished panorama:
// quality profiles, the frame store, capture modes, and the event
// loop coordinating orientation, camera, and assembly.
package session

import "strings"

// QualityProfile fixes the frame count, output dimensions, and JPEG
// encode quality for a session. Output dimensions keep the 2:1
// equirectangular ratio.
type QualityProfile struct {
	ID           string  `json:"id"`
	FrameCount   int     `json:"frame_count"`
	OutputWidth  int     `json:"output_width"`
	OutputHeight int     `json:"output_height"`
	JPEGQuality  float64 `json:"jpeg_quality"` // 0..1 encode quality
}

// StepDegrees is the heading interval between consecutive frames in
// guided mode.
func (p QualityProfile) StepDegrees() float64 {
	return 360 / float64(p.FrameCount)
}

// Profiles is the catalog of built-in quality profiles, ordered from
// fastest capture to highest fidelity.
var Profiles = []QualityProfile{
	{ID: "standard", FrameCount: 24, OutputWidth: 4096, OutputHeight: 2048, JPEGQuality: 0.85},
	{ID: "high", FrameCount: 36, OutputWidth: 6144, OutputHeight: 3072, JPEGQuality: 0.90},
	{ID: "maximum", FrameCount: 48, OutputWidth: 8192, OutputHeight: 4096, JPEGQuality: 0.95},
}

// DefaultProfile is used when a session is opened without an explicit
// profile.
var DefaultProfile = Profiles[0]

// ProfileByID returns the profile with the given identifier
// (case-insensitive), or nil if not found.
func ProfileByID(id string) *QualityProfile {
	lower := strings.ToLower(id)
	for i := range Profiles {
		if Profiles[i].ID == lower {
			return &Profiles[i]
		}
	}
	return nil
}
