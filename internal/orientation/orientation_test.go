package orientation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{360, 0},
		{721, 1},
		{-90, 270},
		{-360, 0},
		{359.5, 359.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeHeading(tt.in), 1e-9, "NormalizeHeading(%v)", tt.in)
	}
}

func TestDelta_ShortestArc(t *testing.T) {
	tests := []struct {
		a, b float64
		want float64
	}{
		{350, 10, 20},
		{10, 350, 20},
		{0, 180, 180},
		{0, 181, 179},
		{90, 90, 0},
		{-10, 10, 20},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Delta(tt.a, tt.b), 1e-9, "Delta(%v, %v)", tt.a, tt.b)
	}
}

func TestDelta_SymmetricAndBounded(t *testing.T) {
	for a := 0.0; a < 360; a += 17 {
		for b := 0.0; b < 360; b += 23 {
			d := Delta(a, b)
			assert.Equal(t, d, Delta(b, a))
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 180.0)
		}
	}
}

func TestSweep_Directional(t *testing.T) {
	tests := []struct {
		from, to float64
		want     float64
	}{
		{0, 90, 90},
		{90, 0, 270},
		{350, 10, 20},
		{10, 350, 340},
		{180, 180, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Sweep(tt.from, tt.to), 1e-9, "Sweep(%v, %v)", tt.from, tt.to)
	}
}

// ---------------------------------------------------------------------------
// Tracker
// ---------------------------------------------------------------------------

// scriptSource feeds a fixed heading sequence to the tracker.
type scriptSource struct {
	samples chan Sample
	stopped bool
}

func newScriptSource() *scriptSource {
	return &scriptSource{samples: make(chan Sample, 64)}
}

func (s *scriptSource) Start() error           { return nil }
func (s *scriptSource) Samples() <-chan Sample { return s.samples }
func (s *scriptSource) Stop()                  { s.stopped = true }

func (s *scriptSource) push(heading float64) {
	s.samples <- Sample{Heading: heading, CapturedAt: time.Now()}
}

func waitForHeading(t *testing.T, tr *Tracker, want float64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if tr.Current().Heading == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("tracker never observed heading %v (at %v)", want, tr.Current().Heading)
}

func TestTracker_ReferenceAndSweep(t *testing.T) {
	src := newScriptSource()
	tr := NewTracker(src)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	src.push(40)
	waitForHeading(t, tr, 40)

	// No reference yet: sweep is zero by definition.
	assert.Equal(t, 0.0, tr.SweepFromReference())
	_, ok := tr.Reference()
	assert.False(t, ok)

	ref := tr.CaptureReference()
	assert.Equal(t, 40.0, ref.Heading)

	src.push(130)
	waitForHeading(t, tr, 130)
	assert.InDelta(t, 90, tr.SweepFromReference(), 1e-9)

	// Counter-clockwise motion shows up as a large clockwise sweep.
	src.push(10)
	waitForHeading(t, tr, 10)
	assert.InDelta(t, 330, tr.SweepFromReference(), 1e-9)
}

func TestTracker_ReferenceLatchesFirstSample(t *testing.T) {
	src := newScriptSource()
	tr := NewTracker(src)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	// Capturing before the sensor warms up must not pin the reference
	// to a zero heading the operator never faced.
	tr.CaptureReference()
	_, ok := tr.Reference()
	assert.False(t, ok)

	src.push(200)
	waitForHeading(t, tr, 200)

	ref, ok := tr.Reference()
	require.True(t, ok)
	assert.Equal(t, 200.0, ref.Heading)
	assert.Equal(t, 0.0, tr.SweepFromReference())

	// Only the first sample latches; later ones move the sweep.
	src.push(230)
	waitForHeading(t, tr, 230)
	assert.InDelta(t, 30, tr.SweepFromReference(), 1e-9)
}

func TestTracker_StartFailurePropagates(t *testing.T) {
	tr := NewTracker(failSource{})
	err := tr.Start()
	require.ErrorIs(t, err, ErrUnavailable)
}

type failSource struct{}

func (failSource) Start() error           { return ErrUnavailable }
func (failSource) Samples() <-chan Sample { return nil }
func (failSource) Stop()                  {}

// flakySource fails its first start, then recovers.
type flakySource struct {
	*scriptSource
	attempts int
}

func (s *flakySource) Start() error {
	s.attempts++
	if s.attempts == 1 {
		return ErrUnavailable
	}
	return nil
}

func TestTracker_StartRetriesAfterFailure(t *testing.T) {
	src := &flakySource{scriptSource: newScriptSource()}
	tr := NewTracker(src)

	require.ErrorIs(t, tr.Start(), ErrUnavailable)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	src.push(75)
	waitForHeading(t, tr, 75)
}

func TestTracker_StopIdempotent(t *testing.T) {
	src := newScriptSource()
	tr := NewTracker(src)
	require.NoError(t, tr.Start())

	tr.Stop()
	tr.Stop()
	assert.True(t, src.stopped)
}

func TestSimSource_EmitsNormalizedHeadings(t *testing.T) {
	src := NewSimSource(3600, time.Millisecond)
	require.NoError(t, src.Start())
	defer src.Stop()

	for i := 0; i < 5; i++ {
		select {
		case s := <-src.Samples():
			assert.GreaterOrEqual(t, s.Heading, 0.0)
			assert.Less(t, s.Heading, 360.0)
		case <-time.After(time.Second):
			t.Fatal("no sample within deadline")
		}
	}
}
