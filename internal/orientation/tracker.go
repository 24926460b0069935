package orientation

import (
	"sync"
)

// Tracker consumes a Source and exposes the latest sample plus the
// session's reference heading. All methods are safe for concurrent use;
// the consuming goroutine is owned by the tracker and shut down by Stop.
type Tracker struct {
	src Source

	mu         sync.Mutex
	current    Sample
	hasSample  bool
	reference  *Sample
	refPending bool
	started    bool

	stopOnce sync.Once
	done     chan struct{}
}

// NewTracker wraps a Source. Call Start before reading samples.
func NewTracker(src Source) *Tracker {
	return &Tracker{
		src:  src,
		done: make(chan struct{}),
	}
}

// Start performs the source capability check and begins consuming
// samples. A capability failure is returned as-is (typically
// ErrUnavailable) so callers can offer the manual-mode fallback.
func (t *Tracker) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	// A failed source start leaves the tracker unstarted so a later
	// retry can succeed.
	if err := t.src.Start(); err != nil {
		return err
	}

	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	go t.consume()
	return nil
}

func (t *Tracker) consume() {
	for {
		select {
		case <-t.done:
			return
		case s, ok := <-t.src.Samples():
			if !ok {
				return
			}
			t.mu.Lock()
			t.current = s
			t.hasSample = true
			if t.refPending {
				ref := s
				t.reference = &ref
				t.refPending = false
			}
			t.mu.Unlock()
		}
	}
}

// Current returns the most recent sample.
func (t *Tracker) Current() Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// CaptureReference snapshots the current sample as the session
// zero-point and returns it. If the sensor has not delivered a sample
// yet, the first one to arrive becomes the reference; a warming-up
// sensor must not leave the session referenced to a zero heading the
// operator never faced.
func (t *Tracker) CaptureReference() Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasSample {
		t.reference = nil
		t.refPending = true
		return t.current
	}
	ref := t.current
	t.reference = &ref
	return ref
}

// Reference returns the captured reference sample, if any.
func (t *Tracker) Reference() (Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reference == nil {
		return Sample{}, false
	}
	return *t.reference, true
}

// SweepFromReference reports the clockwise rotation from the reference
// heading to the current heading, in [0, 360). Returns 0 when no
// reference has been captured.
func (t *Tracker) SweepFromReference() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reference == nil {
		return 0
	}
	return Sweep(t.reference.Heading, t.current.Heading)
}

// Stop releases the sensor subscription. Idempotent; safe to call from
// any goroutine and in any tracker state.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		t.src.Stop()
	})
}
