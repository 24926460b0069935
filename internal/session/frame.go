package session

import (
	"image"
	"time"
)

// Frame is one captured and enhanced camera frame, slotted at its
// ordinal position around the sweep.
type Frame struct {
	Ordinal    int       `json:"ordinal"`
	Heading    float64   `json:"heading"`
	Tilt       float64   `json:"tilt"`
	CapturedAt time.Time `json:"captured_at"`

	Image *image.RGBA `json:"-"`
}

// FrameStore holds frames by ordinal slot for one session. Capacity
// is fixed at the profile's frame count when the store is created and
// never grows. The store is not safe for concurrent use; the session
// event loop is its only writer.
type FrameStore struct {
	slots []*Frame
	count int
}

// NewFrameStore creates a store with one slot per expected frame.
func NewFrameStore(capacity int) *FrameStore {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameStore{slots: make([]*Frame, capacity)}
}

// Capacity returns the fixed number of slots.
func (s *FrameStore) Capacity() int { return len(s.slots) }

// Len returns the number of occupied slots.
func (s *FrameStore) Len() int { return s.count }

// Coverage returns the fraction of slots occupied, in [0,1].
func (s *FrameStore) Coverage() float64 {
	return float64(s.count) / float64(len(s.slots))
}

// Put stores a frame at its ordinal. Storing into an occupied slot is
// an error; retakes must Remove first so an accidental double capture
// cannot silently discard a frame.
func (s *FrameStore) Put(f *Frame) error {
	if f == nil {
		return Errorf(KindFrameMiss, "nil frame")
	}
	if f.Ordinal < 0 || f.Ordinal >= len(s.slots) {
		return Errorf(KindInvalidState, "ordinal %d out of range [0,%d)", f.Ordinal, len(s.slots))
	}
	if s.slots[f.Ordinal] != nil {
		return Errorf(KindInvalidState, "slot %d already occupied", f.Ordinal)
	}
	s.slots[f.Ordinal] = f
	s.count++
	return nil
}

// Get returns the frame at the given ordinal, or nil if the slot is
// empty or out of range.
func (s *FrameStore) Get(ordinal int) *Frame {
	if ordinal < 0 || ordinal >= len(s.slots) {
		return nil
	}
	return s.slots[ordinal]
}

// Remove clears the slot at the given ordinal and reports whether a
// frame was present.
func (s *FrameStore) Remove(ordinal int) bool {
	if ordinal < 0 || ordinal >= len(s.slots) || s.slots[ordinal] == nil {
		return false
	}
	s.slots[ordinal] = nil
	s.count--
	return true
}

// NextOrdinal returns the lowest empty slot, or -1 when the store is
// full.
func (s *FrameStore) NextOrdinal() int {
	for i, f := range s.slots {
		if f == nil {
			return i
		}
	}
	return -1
}

// Frames returns the occupied frames in ordinal order.
func (s *FrameStore) Frames() []*Frame {
	out := make([]*Frame, 0, s.count)
	for _, f := range s.slots {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Reset empties every slot.
func (s *FrameStore) Reset() {
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.count = 0
}
