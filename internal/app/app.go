// Package app wires together the HTTP server, WebSocket hub, and the
// capture sessions. It owns the daemon's lifecycle, the session
// registry, and the artifact store.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/roomloft/panorama-engine/internal/assemble"
	"github.com/roomloft/panorama-engine/internal/config"
	"github.com/roomloft/panorama-engine/internal/demo"
	"github.com/roomloft/panorama-engine/internal/orientation"
	"github.com/roomloft/panorama-engine/internal/session"
	"github.com/roomloft/panorama-engine/internal/store"
	"github.com/roomloft/panorama-engine/internal/telemetry"
	"github.com/roomloft/panorama-engine/internal/ws"
)

const logBufferSize = 500

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *log.Logger
	Cfg        config.Config
	ConfigPath string
	Bind       string
}

// logEntry is one line in the in-memory log ring buffer served by
// /api/logs.
type logEntry struct {
	TS      string `json:"ts"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// sessionStats aggregates per-daemon counters for /api/stats.
type sessionStats struct {
	mu                 sync.Mutex
	TotalSessions      int
	TotalPanoramas     int
	TotalAborted       int
	TotalBytes         int64
	PanoramasByProfile map[string]int
	LastPanoramaAt     string
}

// App is the top-level daemon process. It manages the HTTP server, the
// WebSocket event hub, and the live capture sessions.
type App struct {
	log    *log.Logger
	bind   string
	server *http.Server

	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string

	startedAt time.Time
	wsHub     *ws.Hub

	assembler *assemble.Assembler
	sink      *store.FileSink

	sessMu   sync.Mutex
	sessions map[string]*session.Controller
	cancels  map[string]context.CancelFunc
	runCtx   context.Context

	logBufMu sync.Mutex
	logBuf   []logEntry

	stats sessionStats
}

// New creates an App. Call Run to start serving.
func New(opts Options) *App {
	return &App{
		log:        opts.Logger,
		cfg:        opts.Cfg,
		configPath: opts.ConfigPath,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
		sessions:   make(map[string]*session.Controller),
		cancels:    make(map[string]context.CancelFunc),
		stats:      sessionStats{PanoramasByProfile: make(map[string]int)},
	}
}

func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Run starts the HTTP server, WebSocket hub, and heartbeat ticker. It
// blocks until the context is cancelled or the server returns an
// error.
func (a *App) Run(ctx context.Context) error {
	a.runCtx = ctx

	cfg := a.getConfig()
	bind := a.bind
	if bind == "" && cfg.Server.Bind != "" {
		bind = cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	sink, err := store.NewFileSink(cfg.Data.Root, a.log)
	if err != nil {
		return err
	}
	a.sink = sink
	a.assembler = assemble.New(assemble.Options{Sharpen: cfg.Capture.Sharpen})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/config-profiles", a.handleConfigProfiles)
	mux.HandleFunc("/api/profiles", a.handleProfiles)
	mux.HandleFunc("/api/sessions", a.handleSessions)
	mux.HandleFunc("/api/sessions/", a.handleSessionRoutes)
	mux.HandleFunc("/api/artifacts", a.handleArtifacts)
	mux.HandleFunc("/api/artifacts/validate", a.handleArtifactValidate)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/reload", a.handleReload)
	mux.HandleFunc("/api/system", a.handleSystem)
	mux.Handle("/ws", a.wsHub.Handler())

	a.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.logf("info", "listening on http://%s", bind)

	go a.wsHub.Run(ctx)
	go a.heartbeatLoop(ctx)

	if cfg.Demo.Enabled {
		runner := demo.New(a, a.log)
		if cfg.Demo.IntervalSeconds > 0 {
			runner.Interval = time.Duration(cfg.Demo.IntervalSeconds) * time.Second
		}
		go runner.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		a.logf("info", "shutdown requested")
		a.closeAllSessions()
		_ = a.server.Shutdown(context.Background())
	}()

	return a.server.Serve(ln)
}

// OpenSession builds a controller with devices from the current
// config, registers it, and starts its event loop.
func (a *App) OpenSession(mode session.Mode, profileID, room string) (*session.Controller, error) {
	cfg := a.getConfig()

	var tracker *orientation.Tracker
	if cfg.Sensor.Simulate {
		interval := time.Second / time.Duration(cfg.Sensor.SampleHz)
		src := orientation.NewSimSource(cfg.Sensor.SimRateDegSec, interval)
		tracker = orientation.NewTracker(src)
	}

	if !cfg.Camera.Simulate {
		return nil, session.Errorf(session.KindCapability, "no camera backend configured")
	}
	camera := session.NewSimCamera(cfg.Camera.FrameWidth, cfg.Camera.FrameHeight)

	opts := session.Options{
		TickInterval:    time.Duration(cfg.Capture.TickMillis) * time.Millisecond,
		GuidedTimeout:   time.Duration(cfg.Capture.GuidedTimeoutSecs) * time.Second,
		AutoInterval:    time.Duration(cfg.Capture.AutoIntervalMs) * time.Millisecond,
		AutoDuration:    time.Duration(cfg.Capture.AutoDurationSecs) * time.Second,
		MinCoverage:     cfg.Capture.MinCoverage,
		ManualMinFrames: cfg.Capture.ManualMinFrames,
		Room:            room,
	}

	ctl := session.New(tracker, camera, a.assembler.Assemble, a.trackingSink(), a.log, opts)
	ctl.SetEmitter(func(ev map[string]any) { a.emit("session", ev) })

	if profileID == "" {
		profileID = cfg.Capture.DefaultProfile
	}
	sessCtx, cancel := context.WithCancel(a.runCtx)
	go ctl.Run(sessCtx)

	if profileID != "" {
		if _, err := ctl.SetProfile(profileID); err != nil {
			ctl.Close()
			cancel()
			return nil, err
		}
	}
	if mode != "" {
		if _, err := ctl.SetMode(mode); err != nil {
			ctl.Close()
			cancel()
			return nil, err
		}
	}

	a.sessMu.Lock()
	a.sessions[ctl.ID] = ctl
	a.cancels[ctl.ID] = cancel
	a.sessMu.Unlock()

	a.stats.mu.Lock()
	a.stats.TotalSessions++
	a.stats.mu.Unlock()

	a.logf("info", "session %s opened (mode=%s profile=%s)", ctl.ID, mode, profileID)
	return ctl, nil
}

// Session looks up a live session by ID.
func (a *App) Session(id string) *session.Controller {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.sessions[id]
}

// Sessions returns snapshots of all live sessions.
func (a *App) Sessions() []session.Snapshot {
	a.sessMu.Lock()
	ctls := make([]*session.Controller, 0, len(a.sessions))
	for _, c := range a.sessions {
		ctls = append(ctls, c)
	}
	a.sessMu.Unlock()

	snaps := make([]session.Snapshot, 0, len(ctls))
	for _, c := range ctls {
		snaps = append(snaps, c.Info())
	}
	return snaps
}

// CloseSession shuts a session down and removes it from the registry.
func (a *App) CloseSession(id string) bool {
	a.sessMu.Lock()
	ctl := a.sessions[id]
	cancel := a.cancels[id]
	delete(a.sessions, id)
	delete(a.cancels, id)
	a.sessMu.Unlock()

	if ctl == nil {
		return false
	}
	if ctl.Info().State == session.StateAborted {
		a.stats.mu.Lock()
		a.stats.TotalAborted++
		a.stats.mu.Unlock()
	}
	ctl.Close()
	if cancel != nil {
		cancel()
	}
	a.logf("info", "session %s closed", id)
	return true
}

func (a *App) closeAllSessions() {
	a.sessMu.Lock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	a.sessMu.Unlock()
	for _, id := range ids {
		a.CloseSession(id)
	}
}

// trackingSink wraps the file sink so artifact deliveries also update
// the daemon stats.
func (a *App) trackingSink() session.ArtifactSink {
	return sinkFunc(func(art *session.Artifact) error {
		if err := a.sink.Deliver(art); err != nil {
			return err
		}
		a.stats.mu.Lock()
		a.stats.TotalPanoramas++
		a.stats.TotalBytes += int64(len(art.Data))
		a.stats.PanoramasByProfile[art.Meta.Profile]++
		a.stats.LastPanoramaAt = time.Now().UTC().Format(time.RFC3339)
		a.stats.mu.Unlock()
		return nil
	})
}

type sinkFunc func(*session.Artifact) error

func (f sinkFunc) Deliver(a *session.Artifact) error { return f(a) }

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.sessMu.Lock()
			n := len(a.sessions)
			a.sessMu.Unlock()
			a.wsHub.BroadcastJSON(map[string]any{
				"type":           string(telemetry.EventHeartbeat),
				"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
				"sessions":       n,
			})
		}
	}
}

// emit stamps a payload with a timestamp and component name, then
// pushes it to every connected WebSocket client.
func (a *App) emit(component string, payload map[string]any) {
	payload["ts"] = telemetry.NowTS()
	payload["component"] = component
	a.wsHub.BroadcastJSON(payload)
}

// logf logs through the daemon logger, appends to the ring buffer, and
// broadcasts a log event.
func (a *App) logf(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.log.Printf("%s", msg)

	a.logBufMu.Lock()
	a.logBuf = append(a.logBuf, logEntry{
		TS:      telemetry.NowTS(),
		Level:   level,
		Message: msg,
	})
	if len(a.logBuf) > logBufferSize {
		a.logBuf = a.logBuf[len(a.logBuf)-logBufferSize:]
	}
	a.logBufMu.Unlock()

	a.emit("panoramad", map[string]any{
		"type":    string(telemetry.EventLog),
		"level":   level,
		"message": msg,
	})
}
