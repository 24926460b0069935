// Package demo exercises the full capture pipeline on a loop so the
// daemon, CLI, and dashboard can be tested end-to-end without camera
// or sensor hardware. Each cycle opens a real session backed by the
// simulated devices, lets guided capture run to completion, and closes
// it, so the event stream and artifact store behave exactly as they do
// in production.
package demo

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/roomloft/panorama-engine/internal/session"
)

// rooms gives demo panoramas plausible gallery labels.
var rooms = []string{
	"living room", "kitchen", "master bedroom", "garage",
	"back patio", "home office",
}

// SessionOpener is implemented by the app layer; the demo runner only
// needs to open and close sessions.
type SessionOpener interface {
	OpenSession(mode session.Mode, profileID, room string) (*session.Controller, error)
	CloseSession(id string) bool
}

// Runner opens one demo session per interval.
type Runner struct {
	Opener   SessionOpener
	Log      *log.Logger
	Interval time.Duration // time between demo sessions

	roomIndex int
}

// New creates a demo runner with a sensible default interval.
func New(opener SessionOpener, logger *log.Logger) *Runner {
	return &Runner{
		Opener:   opener,
		Log:      logger,
		Interval: 30 * time.Second,
	}
}

// Run kicks off the demo loop. It starts one session shortly after
// boot, then repeats on the configured interval until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.Log.Printf("demo mode active, capturing simulated panoramas")

	if !sleepOrCancel(ctx, 2*time.Second) {
		return
	}
	r.runSession(ctx)

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.runSession(ctx)
		}
	}
}

// runSession drives one guided session from open to terminal state.
// The simulated rotation sweeps the full circle well inside the guided
// timeout, so the session normally completes with a stored panorama.
func (r *Runner) runSession(ctx context.Context) {
	room := rooms[r.roomIndex%len(rooms)]
	r.roomIndex++

	profile := session.Profiles[rand.Intn(len(session.Profiles))].ID
	ctl, err := r.Opener.OpenSession(session.ModeGuided, profile, room)
	if err != nil {
		r.Log.Printf("demo: open session: %v", err)
		return
	}
	defer r.Opener.CloseSession(ctl.ID)

	if _, err := ctl.Start(); err != nil {
		r.Log.Printf("demo: start session: %v", err)
		return
	}

	// Poll until the session settles or the demo is shut down.
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap := ctl.Info()
			if snap.State.Terminal() {
				r.Log.Printf("demo: session %s ended %s (%d/%d frames, room %q)",
					snap.ID, snap.State, snap.FramesCaptured, snap.FrameCount, room)
				return
			}
		}
	}
}

// sleepOrCancel sleeps for d, returning false if ctx was cancelled.
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
