package session

import "fmt"

// ErrorKind classifies session failures so API handlers and clients
// can react without parsing message text.
type ErrorKind string

const (
	// KindCapability means a required device input is unavailable,
	// such as an orientation source that never produced a sample.
	KindCapability ErrorKind = "capability"

	// KindFrameMiss means the camera failed to deliver a frame. The
	// session stays live; the capture may be retried.
	KindFrameMiss ErrorKind = "frame_miss"

	// KindInsufficientCoverage means a timed-out or force-finished
	// session did not collect enough of the sweep to assemble.
	KindInsufficientCoverage ErrorKind = "insufficient_coverage"

	// KindAssembly means stitching or encoding the panorama failed.
	KindAssembly ErrorKind = "assembly"

	// KindInvalidState means an operation was issued in a state that
	// does not permit it.
	KindInvalidState ErrorKind = "invalid_state"
)

// Error is the structured error returned by session operations.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Errorf builds a session error with a formatted detail message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
