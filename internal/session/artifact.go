package session

import "time"

// Metadata accompanies every assembled panorama and is persisted next
// to the image so artifacts remain self-describing.
type Metadata struct {
	SessionID  string    `json:"session_id"`
	Room       string    `json:"room,omitempty"`
	Profile    string    `json:"profile"`
	Mode       string    `json:"mode"`
	FrameCount int       `json:"frame_count"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Enhanced   bool      `json:"enhanced"`
	Stabilized bool      `json:"stabilized"`
	Sharpened  bool      `json:"sharpened"`
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact is a finished panorama: the encoded JPEG bytes plus the
// metadata describing how it was produced.
type Artifact struct {
	ID   string   `json:"id"`
	Data []byte   `json:"-"`
	Meta Metadata `json:"meta"`
}

// ArtifactSink receives finished artifacts for persistence. Delivery
// happens off the session event loop so a slow disk cannot stall
// capture.
type ArtifactSink interface {
	Deliver(*Artifact) error
}

// AssembleFunc stitches an ordered frame set into an artifact. The
// session controller calls it exactly once per completed session.
type AssembleFunc func(frames []*Frame, profile QualityProfile, meta Metadata) (*Artifact, error)
