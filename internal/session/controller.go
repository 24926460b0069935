package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roomloft/panorama-engine/internal/orientation"
	"github.com/roomloft/panorama-engine/internal/raster"
	"github.com/roomloft/panorama-engine/internal/telemetry"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle      State = "IDLE"      // created, devices not yet started
	StateArmed     State = "ARMED"     // devices live, waiting for Start
	StateSampling  State = "SAMPLING"  // actively collecting frames
	StateCompleted State = "COMPLETED" // panorama assembled
	StateAborted   State = "ABORTED"   // session ended without a panorama
)

// Terminal reports whether the state accepts no further captures.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Mode selects how frames are triggered during sampling.
type Mode string

const (
	// ModeGuided captures automatically as the operator sweeps past
	// each heading target.
	ModeGuided Mode = "guided"

	// ModeAutomatic captures on a fixed interval for a fixed budget,
	// for motorized mounts.
	ModeAutomatic Mode = "automatic"

	// ModeManual captures only on explicit CaptureOne calls.
	ModeManual Mode = "manual"
)

// ParseMode validates a mode string from the API.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGuided, ModeAutomatic, ModeManual:
		return Mode(s), nil
	}
	return "", Errorf(KindInvalidState, "unknown mode %q", s)
}

// Options carries the tunable capture parameters, typically filled
// from the daemon config.
type Options struct {
	TickInterval    time.Duration // event loop tick
	GuidedTimeout   time.Duration // guided sampling budget
	AutoInterval    time.Duration // automatic capture spacing
	AutoDuration    time.Duration // automatic sampling budget
	MinCoverage     float64       // fraction of slots needed on timeout
	ManualMinFrames int           // floor for manual Finish
	Room            string        // optional room label for metadata
}

func (o *Options) withDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 50 * time.Millisecond
	}
	if o.GuidedTimeout <= 0 {
		o.GuidedTimeout = 60 * time.Second
	}
	if o.AutoInterval <= 0 {
		o.AutoInterval = 500 * time.Millisecond
	}
	if o.AutoDuration <= 0 {
		o.AutoDuration = 20 * time.Second
	}
	if o.MinCoverage <= 0 || o.MinCoverage > 1 {
		o.MinCoverage = 0.75
	}
	if o.ManualMinFrames <= 0 {
		o.ManualMinFrames = 12
	}
}

// Snapshot is a point-in-time view of a session, safe to serialize.
type Snapshot struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	Mode           Mode      `json:"mode"`
	Profile        string    `json:"profile"`
	Room           string    `json:"room,omitempty"`
	FramesCaptured int       `json:"frames_captured"`
	FrameCount     int       `json:"frame_count"`
	Coverage       float64   `json:"coverage"`
	NextOrdinal    int       `json:"next_ordinal"`
	SweepDegrees   float64   `json:"sweep_degrees"`
	AbortReason    string    `json:"abort_reason,omitempty"`
	ArtifactID     string    `json:"artifact_id,omitempty"`
	OpenedAt       time.Time `json:"opened_at"`
	StartedAt      time.Time `json:"started_at,omitzero"`
}

// command is an external request handled inline by the event loop.
// The reply channel receives exactly one result.
type command struct {
	kind    string
	payload any
	reply   chan cmdResult
}

type cmdResult struct {
	snap Snapshot
	err  error
}

// Controller owns one capture session. A single event loop goroutine
// mediates every interaction with the frame store, orientation
// tracker, and camera, so no locking is needed around session state.
type Controller struct {
	ID  string
	Log *log.Logger

	opts     Options
	tracker  *orientation.Tracker
	camera   FrameSource
	assemble AssembleFunc
	sink     ArtifactSink
	emit     func(map[string]any)

	commands chan command
	done     chan struct{}
	closing  sync.Once

	// Everything below is owned by the run loop.
	state       State
	mode        Mode
	profile     QualityProfile
	store       *FrameStore
	openedAt    time.Time
	startedAt   time.Time
	lastAuto    time.Time
	timeoutC    <-chan time.Time
	timeout     *time.Timer
	artifact    *Artifact
	abortReason string
}

// New builds a session controller. The caller must run its event loop
// with Run before issuing commands.
func New(tracker *orientation.Tracker, camera FrameSource, assemble AssembleFunc, sink ArtifactSink, logger *log.Logger, opts Options) *Controller {
	opts.withDefaults()
	return &Controller{
		ID:       uuid.NewString(),
		Log:      logger,
		opts:     opts,
		tracker:  tracker,
		camera:   camera,
		assemble: assemble,
		sink:     sink,
		commands: make(chan command, 4),
		done:     make(chan struct{}),
		state:    StateIdle,
		mode:     ModeGuided,
		profile:  DefaultProfile,
		store:    NewFrameStore(DefaultProfile.FrameCount),
		openedAt: time.Now().UTC(),
	}
}

// SetEmitter registers a broadcast function for session events. Must
// be called before Run.
func (c *Controller) SetEmitter(fn func(map[string]any)) {
	c.emit = fn
}

// Run is the session event loop. It exits when ctx is cancelled or the
// session is closed, releasing the camera and tracker on the way out.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()
	defer c.release()
	// Whatever path exits the loop, later senders must not block on a
	// reply that will never come.
	defer c.closing.Do(func() { close(c.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case cmd := <-c.commands:
			c.handleCommand(cmd)
		case <-c.timeoutC:
			c.handleTimeout()
		case <-ticker.C:
			c.handleTick()
		}
	}
}

func (c *Controller) release() {
	if c.tracker != nil {
		c.tracker.Stop()
	}
	if c.camera != nil {
		if err := c.camera.Close(); err != nil {
			c.Log.Printf("session %s: camera close: %v", c.ID, err)
		}
	}
}

// send delivers a command to the loop and waits for its reply.
func (c *Controller) send(kind string, payload any) (Snapshot, error) {
	cmd := command{kind: kind, payload: payload, reply: make(chan cmdResult, 1)}
	select {
	case c.commands <- cmd:
	case <-c.done:
		return Snapshot{}, Errorf(KindInvalidState, "session %s closed", c.ID)
	}
	select {
	case res := <-cmd.reply:
		return res.snap, res.err
	case <-c.done:
		return Snapshot{}, Errorf(KindInvalidState, "session %s closed", c.ID)
	}
}

// Start transitions the session into sampling: devices come up, the
// orientation reference is captured, and the mode's budget timer is
// armed. In guided mode the first frame is captured immediately.
func (c *Controller) Start() (Snapshot, error) { return c.send("start", nil) }

// SetMode selects the capture mode. Ignored once sampling has begun.
func (c *Controller) SetMode(m Mode) (Snapshot, error) { return c.send("set_mode", m) }

// SetProfile selects the quality profile and resizes the frame store.
// Ignored once sampling has begun.
func (c *Controller) SetProfile(id string) (Snapshot, error) { return c.send("set_profile", id) }

// CaptureOne captures a single frame into the next open slot. Manual
// mode only.
func (c *Controller) CaptureOne() (Snapshot, error) { return c.send("capture", nil) }

// Retake discards the frame at ordinal and captures a replacement.
func (c *Controller) Retake(ordinal int) (Snapshot, error) { return c.send("retake", ordinal) }

// Finish ends sampling early. Guided and automatic sessions assemble
// if coverage clears the floor; manual sessions require the minimum
// frame count.
func (c *Controller) Finish() (Snapshot, error) { return c.send("finish", nil) }

// Info returns a snapshot of the session.
func (c *Controller) Info() Snapshot {
	snap, err := c.send("info", nil)
	if err != nil {
		// The loop is gone; report the last externally visible state.
		return Snapshot{ID: c.ID, State: StateAborted, AbortReason: "session closed"}
	}
	return snap
}

// Close ends the session. Idempotent. A session closed while sampling
// is aborted without assembly.
func (c *Controller) Close() {
	_, _ = c.send("close", nil)
	c.closing.Do(func() { close(c.done) })
}

func (c *Controller) handleCommand(cmd command) {
	var err error
	switch cmd.kind {
	case "start":
		err = c.doStart()
	case "set_mode":
		err = c.doSetMode(cmd.payload.(Mode))
	case "set_profile":
		err = c.doSetProfile(cmd.payload.(string))
	case "capture":
		err = c.doCaptureOne()
	case "retake":
		err = c.doRetake(cmd.payload.(int))
	case "finish":
		err = c.doFinish()
	case "info":
		// Snapshot below covers it.
	case "close":
		if c.state == StateSampling {
			c.abort("session closed during sampling")
		}
	default:
		err = Errorf(KindInvalidState, "unknown command %q", cmd.kind)
	}
	cmd.reply <- cmdResult{snap: c.snapshot(), err: err}
}

func (c *Controller) doStart() error {
	if c.state != StateIdle && c.state != StateArmed {
		return Errorf(KindInvalidState, "cannot start in state %s", c.state)
	}
	if c.mode == ModeGuided {
		if c.tracker == nil {
			return Errorf(KindCapability, "guided mode requires an orientation source")
		}
		if err := c.tracker.Start(); err != nil {
			return Errorf(KindCapability, "orientation source: %v", err)
		}
		c.tracker.CaptureReference()
	} else if c.tracker != nil {
		// Best effort; heading metadata is still useful in other modes.
		if err := c.tracker.Start(); err == nil {
			c.tracker.CaptureReference()
		}
	}

	c.state = StateSampling
	c.startedAt = time.Now().UTC()
	c.lastAuto = time.Time{}

	switch c.mode {
	case ModeGuided:
		c.armTimeout(c.opts.GuidedTimeout)
		// First frame anchors the sweep at the reference heading.
		if err := c.captureInto(0); err != nil {
			c.Log.Printf("session %s: first frame: %v", c.ID, err)
		}
	case ModeAutomatic:
		c.armTimeout(c.opts.AutoDuration)
	}

	c.transition()
	return nil
}

// doSetMode and doSetProfile are ignored once sampling has begun: a
// late UI request must not reconfigure a live capture, and it is not
// worth failing over either.
func (c *Controller) doSetMode(m Mode) error {
	if c.state != StateIdle && c.state != StateArmed {
		return nil
	}
	c.mode = m
	c.state = StateArmed
	return nil
}

func (c *Controller) doSetProfile(id string) error {
	if c.state != StateIdle && c.state != StateArmed {
		return nil
	}
	p := ProfileByID(id)
	if p == nil {
		return Errorf(KindInvalidState, "unknown profile %q", id)
	}
	c.profile = *p
	c.store = NewFrameStore(p.FrameCount)
	c.state = StateArmed
	return nil
}

func (c *Controller) doCaptureOne() error {
	if c.state != StateSampling {
		return Errorf(KindInvalidState, "cannot capture in state %s", c.state)
	}
	if c.mode != ModeManual {
		return Errorf(KindInvalidState, "explicit capture is manual mode only")
	}
	ordinal := c.store.NextOrdinal()
	if ordinal < 0 {
		return Errorf(KindInvalidState, "all %d slots filled", c.store.Capacity())
	}
	return c.captureInto(ordinal)
}

func (c *Controller) doRetake(ordinal int) error {
	if c.state != StateSampling {
		return Errorf(KindInvalidState, "cannot retake in state %s", c.state)
	}
	if c.store.Get(ordinal) == nil {
		return Errorf(KindInvalidState, "slot %d has no frame to retake", ordinal)
	}
	c.store.Remove(ordinal)
	return c.captureInto(ordinal)
}

func (c *Controller) doFinish() error {
	if c.state != StateSampling {
		return Errorf(KindInvalidState, "cannot finish in state %s", c.state)
	}
	if c.mode == ModeManual && c.store.Len() < c.opts.ManualMinFrames {
		return Errorf(KindInvalidState, "need at least %d frames, have %d",
			c.opts.ManualMinFrames, c.store.Len())
	}
	c.settle("finish requested")
	return nil
}

func (c *Controller) handleTimeout() {
	c.timeoutC = nil
	if c.state != StateSampling {
		return
	}
	c.Log.Printf("session %s: sampling budget expired at %.0f%% coverage",
		c.ID, c.store.Coverage()*100)
	c.settle("sampling budget expired")
}

func (c *Controller) handleTick() {
	if c.state != StateSampling {
		return
	}
	switch c.mode {
	case ModeGuided:
		c.tickGuided()
	case ModeAutomatic:
		c.tickAutomatic()
	}
}

// tickGuided captures the next slot once the operator's sweep passes
// its heading target. At most one frame per tick; a fast sweep fills
// remaining targets on subsequent ticks.
func (c *Controller) tickGuided() {
	ordinal := c.store.NextOrdinal()
	if ordinal < 0 {
		return
	}
	target := float64(ordinal) * c.profile.StepDegrees()
	sweep := c.tracker.SweepFromReference()
	if ordinal > 0 && sweep < target {
		return
	}
	if err := c.captureInto(ordinal); err != nil {
		c.Log.Printf("session %s: slot %d: %v", c.ID, ordinal, err)
	}
}

func (c *Controller) tickAutomatic() {
	now := time.Now()
	if !c.lastAuto.IsZero() && now.Sub(c.lastAuto) < c.opts.AutoInterval {
		return
	}
	ordinal := c.store.NextOrdinal()
	if ordinal < 0 {
		return
	}
	c.lastAuto = now
	if err := c.captureInto(ordinal); err != nil {
		c.Log.Printf("session %s: slot %d: %v", c.ID, ordinal, err)
	}
}

// captureInto grabs, enhances, and stores one frame. A frame miss is
// recoverable: the slot stays empty and the next tick or an explicit
// retry captures it.
func (c *Controller) captureInto(ordinal int) error {
	img, err := c.camera.Grab()
	if err != nil {
		if errors.Is(err, ErrFrameMiss) {
			c.broadcast(map[string]any{
				"type":    string(telemetry.EventFrameMiss),
				"session": c.ID,
				"ordinal": ordinal,
			})
			return Errorf(KindFrameMiss, "slot %d: %v", ordinal, err)
		}
		return Errorf(KindFrameMiss, "slot %d: %v", ordinal, err)
	}

	var sample orientation.Sample
	if c.tracker != nil {
		sample = c.tracker.Current()
	}
	frame := &Frame{
		Ordinal:    ordinal,
		Heading:    sample.Heading,
		Tilt:       sample.Tilt,
		CapturedAt: time.Now().UTC(),
		Image:      raster.Enhance(img),
	}
	if err := c.store.Put(frame); err != nil {
		return err
	}

	c.broadcast(map[string]any{
		"type":     string(telemetry.EventFrameCaptured),
		"session":  c.ID,
		"ordinal":  ordinal,
		"heading":  sample.Heading,
		"captured": c.store.Len(),
		"total":    c.store.Capacity(),
	})

	if c.store.NextOrdinal() < 0 {
		c.settle("all frames captured")
	}
	return nil
}

// settle ends sampling: a full or sufficiently covered store is
// assembled, anything else aborts.
func (c *Controller) settle(reason string) {
	c.disarmTimeout()

	if c.store.Len() == 0 || (c.mode != ModeManual && c.store.Coverage() < c.opts.MinCoverage) {
		c.abort(Errorf(KindInsufficientCoverage, "%d of %d frames (%s)",
			c.store.Len(), c.store.Capacity(), reason).Error())
		return
	}

	meta := Metadata{
		SessionID:  c.ID,
		Room:       c.opts.Room,
		Profile:    c.profile.ID,
		Mode:       string(c.mode),
		FrameCount: c.store.Len(),
		Enhanced:   true,
		Stabilized: c.mode == ModeGuided && c.tracker != nil,
		CreatedAt:  time.Now().UTC(),
	}
	artifact, err := c.assemble(c.store.Frames(), c.profile, meta)
	if err != nil {
		c.abort(Errorf(KindAssembly, "assembly: %v", err).Error())
		return
	}
	c.artifact = artifact
	c.state = StateCompleted
	c.transition()

	if c.sink != nil {
		go func(a *Artifact) {
			if err := c.sink.Deliver(a); err != nil {
				c.Log.Printf("session %s: artifact delivery: %v", c.ID, err)
				return
			}
			c.broadcast(map[string]any{
				"type":     string(telemetry.EventArtifact),
				"session":  c.ID,
				"artifact": a.ID,
				"width":    a.Meta.Width,
				"height":   a.Meta.Height,
			})
		}(artifact)
	}
}

func (c *Controller) abort(reason string) {
	c.disarmTimeout()
	c.state = StateAborted
	c.abortReason = reason
	c.transition()
}

func (c *Controller) armTimeout(d time.Duration) {
	c.disarmTimeout()
	c.timeout = time.NewTimer(d)
	c.timeoutC = c.timeout.C
}

func (c *Controller) disarmTimeout() {
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
		c.timeoutC = nil
	}
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		ID:             c.ID,
		State:          c.state,
		Mode:           c.mode,
		Profile:        c.profile.ID,
		Room:           c.opts.Room,
		FramesCaptured: c.store.Len(),
		FrameCount:     c.store.Capacity(),
		Coverage:       c.store.Coverage(),
		NextOrdinal:    c.store.NextOrdinal(),
		AbortReason:    c.abortReason,
		OpenedAt:       c.openedAt,
		StartedAt:      c.startedAt,
	}
	if c.tracker != nil {
		snap.SweepDegrees = c.tracker.SweepFromReference()
	}
	if c.artifact != nil {
		snap.ArtifactID = c.artifact.ID
	}
	return snap
}

func (c *Controller) transition() {
	c.broadcast(map[string]any{
		"type":     string(telemetry.EventSessionState),
		"session":  c.ID,
		"state":    string(c.state),
		"mode":     string(c.mode),
		"captured": c.store.Len(),
		"total":    c.store.Capacity(),
		"reason":   c.abortReason,
	})
}

func (c *Controller) broadcast(msg map[string]any) {
	if c.emit != nil {
		c.emit(msg)
	}
}
