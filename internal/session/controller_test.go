package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomloft/panorama-engine/internal/orientation"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

func okAssemble(frames []*Frame, profile QualityProfile, meta Metadata) (*Artifact, error) {
	meta.FrameCount = len(frames)
	meta.Width = profile.OutputWidth
	meta.Height = profile.OutputHeight
	return &Artifact{ID: "artifact-test", Data: []byte{0xff, 0xd8}, Meta: meta}, nil
}

func failAssemble(_ []*Frame, _ QualityProfile, _ Metadata) (*Artifact, error) {
	return nil, fmt.Errorf("seam blend failed")
}

type recordSink struct {
	mu        sync.Mutex
	delivered []*Artifact
}

func (s *recordSink) Deliver(a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, a)
	return nil
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []map[string]any
}

func (r *eventRecorder) emit(msg map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		if t, ok := e["type"].(string); ok {
			out = append(out, t)
		}
	}
	return out
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fastOpts() Options {
	return Options{
		TickInterval:    time.Millisecond,
		GuidedTimeout:   5 * time.Second,
		AutoInterval:    time.Millisecond,
		AutoDuration:    5 * time.Second,
		MinCoverage:     0.75,
		ManualMinFrames: 3,
	}
}

func startController(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("event loop did not exit")
		}
	})
}

func waitTerminal(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Info()
		if snap.State.Terminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached a terminal state (at %s)", c.Info().State)
	return Snapshot{}
}

// ---------------------------------------------------------------------------
// Manual mode
// ---------------------------------------------------------------------------

func TestController_ManualCaptureAndFinish(t *testing.T) {
	sink := &recordSink{}
	rec := &eventRecorder{}
	c := New(nil, NewSimCamera(8, 8), okAssemble, sink, testLogger(), fastOpts())
	c.SetEmitter(rec.emit)
	startController(t, c)

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)
	snap, err := c.Start()
	require.NoError(t, err)
	assert.Equal(t, StateSampling, snap.State)
	assert.False(t, snap.StartedAt.IsZero())

	for i := 0; i < 3; i++ {
		snap, err = c.CaptureOne()
		require.NoError(t, err)
	}
	assert.Equal(t, 3, snap.FramesCaptured)

	snap, err = c.Finish()
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, "artifact-test", snap.ArtifactID)

	// Delivery happens off the event loop; give it a beat.
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)
	meta := sink.delivered[0].Meta
	assert.Equal(t, "manual", meta.Mode)
	assert.True(t, meta.Enhanced, "every stored frame passes through enhancement")
	assert.False(t, meta.Stabilized, "manual capture has no orientation anchor")

	types := rec.types()
	assert.Contains(t, types, "session_state")
	assert.Contains(t, types, "frame_captured")
}

func TestController_ManualFinishBelowFloor(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	_, err = c.CaptureOne()
	require.NoError(t, err)

	_, err = c.Finish()
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidState, serr.Kind)

	snap := c.Info()
	assert.Equal(t, StateSampling, snap.State, "failed finish must not end the session")
}

func TestController_RetakeReplacesFrame(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	_, err = c.CaptureOne()
	require.NoError(t, err)
	snap, err := c.CaptureOne()
	require.NoError(t, err)
	require.Equal(t, 2, snap.FramesCaptured)

	_, err = c.Retake(5)
	require.Error(t, err, "retaking an empty slot is an error")

	snap, err = c.Retake(0)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.FramesCaptured, "retake swaps, never grows")
}

func TestController_FrameMissIsRecoverable(t *testing.T) {
	cam := NewSimCamera(8, 8)
	cam.MissEvery = 2
	rec := &eventRecorder{}
	c := New(nil, cam, okAssemble, &recordSink{}, testLogger(), fastOpts())
	c.SetEmitter(rec.emit)
	startController(t, c)

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	_, err = c.CaptureOne()
	require.NoError(t, err)

	// Second grab misses: the slot stays empty, the session keeps going.
	_, err = c.CaptureOne()
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindFrameMiss, serr.Kind)

	snap, err := c.CaptureOne()
	require.NoError(t, err)
	assert.Equal(t, StateSampling, snap.State)
	assert.Equal(t, 2, snap.FramesCaptured)
	assert.Contains(t, rec.types(), "frame_miss")
}

// ---------------------------------------------------------------------------
// Automatic mode
// ---------------------------------------------------------------------------

func TestController_AutomaticFillsStore(t *testing.T) {
	sink := &recordSink{}
	c := New(nil, NewSimCamera(8, 8), okAssemble, sink, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.SetMode(ModeAutomatic)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	snap := waitTerminal(t, c)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, snap.FrameCount, snap.FramesCaptured)
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestController_AutomaticBudgetExpiresWithLowCoverage(t *testing.T) {
	opts := fastOpts()
	opts.AutoInterval = 20 * time.Millisecond
	opts.AutoDuration = 60 * time.Millisecond
	sink := &recordSink{}
	c := New(nil, NewSimCamera(8, 8), okAssemble, sink, testLogger(), opts)
	startController(t, c)

	_, err := c.SetMode(ModeAutomatic)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	snap := waitTerminal(t, c)
	assert.Equal(t, StateAborted, snap.State)
	assert.Contains(t, snap.AbortReason, "frames")
	assert.Less(t, snap.Coverage, 0.75)
	assert.Zero(t, sink.count(), "aborted sessions never deliver artifacts")
}

// ---------------------------------------------------------------------------
// Guided mode
// ---------------------------------------------------------------------------

func TestController_GuidedSweepCapturesAllTargets(t *testing.T) {
	// 3600 deg/s spins a full circle in 100ms, fast enough that every
	// heading target is passed well inside the sampling budget.
	tracker := orientation.NewTracker(orientation.NewSimSource(3600, time.Millisecond))
	sink := &recordSink{}
	c := New(tracker, NewSimCamera(8, 8), okAssemble, sink, testLogger(), fastOpts())
	startController(t, c)

	snap, err := c.Start()
	require.NoError(t, err)
	assert.Equal(t, StateSampling, snap.State)
	assert.GreaterOrEqual(t, snap.FramesCaptured, 1, "first frame anchors the reference")

	snap = waitTerminal(t, c)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, snap.FrameCount, snap.FramesCaptured)

	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)
	assert.True(t, sink.delivered[0].Meta.Stabilized, "guided frames are anchored to the orientation reference")
}

func TestController_GuidedRequiresOrientation(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.Start()
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindCapability, serr.Kind)
	assert.Equal(t, StateIdle, c.Info().State)
}

func TestController_GuidedUnavailableSensor(t *testing.T) {
	tracker := orientation.NewTracker(downSource{})
	c := New(tracker, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.Start()
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindCapability, serr.Kind)
}

type downSource struct{}

func (downSource) Start() error                       { return orientation.ErrUnavailable }
func (downSource) Samples() <-chan orientation.Sample { return nil }
func (downSource) Stop()                              {}

// fixedHeadingSource reports the same heading forever, like a phone
// resting on a table.
type fixedHeadingSource struct {
	heading float64
	samples chan orientation.Sample
	done    chan struct{}
}

func newFixedHeadingSource(heading float64) *fixedHeadingSource {
	return &fixedHeadingSource{
		heading: heading,
		samples: make(chan orientation.Sample, 16),
		done:    make(chan struct{}),
	}
}

func (s *fixedHeadingSource) Start() error {
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case now := <-ticker.C:
				select {
				case s.samples <- orientation.Sample{Heading: s.heading, CapturedAt: now}:
				default:
				}
			}
		}
	}()
	return nil
}

func (s *fixedHeadingSource) Samples() <-chan orientation.Sample { return s.samples }
func (s *fixedHeadingSource) Stop()                              { close(s.done) }

func TestController_GuidedHoldsUntilOperatorRotates(t *testing.T) {
	// The sensor reports a constant non-zero heading. Only the anchor
	// frame may capture: the sweep is measured from where the operator
	// actually stands, not from heading zero.
	tracker := orientation.NewTracker(newFixedHeadingSource(180))
	c := New(tracker, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	snap, err := c.Start()
	require.NoError(t, err)
	require.Equal(t, StateSampling, snap.State)

	time.Sleep(150 * time.Millisecond)
	snap = c.Info()
	assert.Equal(t, StateSampling, snap.State)
	assert.Equal(t, 1, snap.FramesCaptured, "no rotation, no frames beyond the anchor")
	assert.InDelta(t, 0, snap.SweepDegrees, 1e-9)
}

func TestController_GuidedTimeoutAbortsBelowCoverage(t *testing.T) {
	opts := fastOpts()
	opts.GuidedTimeout = 80 * time.Millisecond
	tracker := orientation.NewTracker(newFixedHeadingSource(90))
	sink := &recordSink{}
	c := New(tracker, NewSimCamera(8, 8), okAssemble, sink, testLogger(), opts)
	startController(t, c)

	_, err := c.Start()
	require.NoError(t, err)

	snap := waitTerminal(t, c)
	assert.Equal(t, StateAborted, snap.State)
	assert.Contains(t, snap.AbortReason, "insufficient_coverage")
	assert.Contains(t, snap.AbortReason, "budget expired")
	assert.Zero(t, sink.count(), "an aborted session delivers nothing")
}

// ---------------------------------------------------------------------------
// Lifecycle and configuration
// ---------------------------------------------------------------------------

func TestController_ModeAndProfileFixedAfterStart(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	snap, err := c.SetProfile("high")
	require.NoError(t, err)
	assert.Equal(t, "high", snap.Profile)
	assert.Equal(t, 36, snap.FrameCount)
	assert.Equal(t, StateArmed, snap.State)

	_, err = c.SetProfile("bogus")
	require.Error(t, err)

	_, err = c.SetMode(ModeManual)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	// Reconfiguration after Start is ignored, not failed.
	snap, err = c.SetMode(ModeAutomatic)
	require.NoError(t, err)
	assert.Equal(t, ModeManual, snap.Mode)
	snap, err = c.SetProfile("standard")
	require.NoError(t, err)
	assert.Equal(t, "high", snap.Profile)
	assert.Equal(t, 36, snap.FrameCount)
}

func TestController_CaptureOneIsManualOnly(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.SetMode(ModeAutomatic)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	_, err = c.CaptureOne()
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidState, serr.Kind)
}

func TestController_AssemblyFailureAborts(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), failAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = c.CaptureOne()
		require.NoError(t, err)
	}

	snap, err := c.Finish()
	require.NoError(t, err)
	assert.Equal(t, StateAborted, snap.State)
	assert.Contains(t, snap.AbortReason, "assembly")
}

func TestController_CloseIsIdempotent(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	startController(t, c)

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)
	_, err = c.Start()
	require.NoError(t, err)

	c.Close()
	c.Close()

	_, err = c.Start()
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*Error)))

	snap := c.Info()
	assert.Equal(t, StateAborted, snap.State)
}

func TestController_CloseAfterRunExit(t *testing.T) {
	c := New(nil, NewSimCamera(8, 8), okAssemble, &recordSink{}, testLogger(), fastOpts())
	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(loopDone)
	}()

	_, err := c.SetMode(ModeManual)
	require.NoError(t, err)

	// Cancelling the run context must not strand later callers.
	cancel()
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("event loop did not exit on context cancellation")
	}

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked after the event loop exited")
	}

	snap := c.Info()
	assert.Equal(t, StateAborted, snap.State)
	assert.Equal(t, "session closed", snap.AbortReason)
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"guided", "automatic", "manual"} {
		m, err := ParseMode(valid)
		require.NoError(t, err)
		assert.Equal(t, Mode(valid), m)
	}
	_, err := ParseMode("freestyle")
	require.Error(t, err)
}
