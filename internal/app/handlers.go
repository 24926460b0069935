package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/roomloft/panorama-engine/internal/config"
	"github.com/roomloft/panorama-engine/internal/session"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	resp := map[string]any{
		"name":           "panorama-engine",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"data_root":      cfg.Data.Root,
		"demo_enabled":   cfg.Demo.Enabled,
		"sessions":       a.Sessions(),
		"ws_clients":     a.wsHub.ClientCount(),
	}

	if du := diskUsage(cfg.Data.Root); du != nil {
		resp["disk"] = du
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.getConfig())
}

func (a *App) handleConfigProfiles(w http.ResponseWriter, _ *http.Request) {
	profiles, err := config.ListProfiles(config.DefaultConfigDir())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []config.ProfileInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"config_dir": config.DefaultConfigDir(),
		"profiles":   profiles,
	})
}

// handleProfiles lists the built-in capture quality profiles.
func (a *App) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"profiles": session.Profiles})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (a *App) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sessions": a.Sessions()})

	case http.MethodPost:
		var req struct {
			Mode    string `json:"mode"`
			Profile string `json:"profile"`
			Room    string `json:"room"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		mode := session.ModeGuided
		if req.Mode != "" {
			m, err := session.ParseMode(req.Mode)
			if err != nil {
				jsonError(w, err.Error(), http.StatusBadRequest)
				return
			}
			mode = m
		}

		ctl, err := a.OpenSession(mode, req.Profile, req.Room)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ctl.Info())

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessionRoutes dispatches /api/sessions/{id} and
// /api/sessions/{id}/{action}.
func (a *App) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	id := parts[0]
	if id == "" {
		jsonError(w, "session id required", http.StatusBadRequest)
		return
	}

	ctl := a.Session(id)
	if ctl == nil {
		jsonError(w, "session not found: "+id, http.StatusNotFound)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(ctl.Info())
		case http.MethodDelete:
			a.CloseSession(id)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "message": "session closed"})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var snap session.Snapshot
	var err error
	switch parts[1] {
	case "start":
		snap, err = ctl.Start()
	case "mode":
		var body struct {
			Mode string `json:"mode"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			jsonError(w, "bad request: "+decodeErr.Error(), http.StatusBadRequest)
			return
		}
		var m session.Mode
		if m, err = session.ParseMode(body.Mode); err == nil {
			snap, err = ctl.SetMode(m)
		}
	case "profile":
		var body struct {
			Profile string `json:"profile"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			jsonError(w, "bad request: "+decodeErr.Error(), http.StatusBadRequest)
			return
		}
		snap, err = ctl.SetProfile(body.Profile)
	case "capture":
		snap, err = ctl.CaptureOne()
	case "retake":
		var body struct {
			Ordinal int `json:"ordinal"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			jsonError(w, "bad request: "+decodeErr.Error(), http.StatusBadRequest)
			return
		}
		snap, err = ctl.Retake(body.Ordinal)
	case "finish":
		snap, err = ctl.Finish()
	default:
		jsonError(w, "unknown session action: "+parts[1], http.StatusNotFound)
		return
	}

	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

func (a *App) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		id := r.URL.Query().Get("id")
		if id == "" {
			jsonError(w, "id parameter required", http.StatusBadRequest)
			return
		}
		if err := a.sink.Delete(id); err != nil {
			if os.IsNotExist(err) {
				jsonError(w, "artifact not found", http.StatusNotFound)
			} else {
				jsonError(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "message": "deleted " + id})
		return
	}

	entries, err := a.sink.List()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"artifacts": entries})
}

func (a *App) handleArtifactValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		jsonError(w, "artifact id required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := a.sink.Validate(req.ID); err != nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "valid": false, "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "valid": true})
}

// ---------------------------------------------------------------------------
// Logs + Stats + Enhanced Health
// ---------------------------------------------------------------------------

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.logBufMu.Lock()
	entries := make([]logEntry, len(a.logBuf))
	copy(entries, a.logBuf)
	a.logBufMu.Unlock()

	levelFilter := r.URL.Query().Get("level")
	if levelFilter != "" {
		var filtered []logEntry
		for _, e := range entries {
			if e.Level == levelFilter {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"logs": entries})
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	a.stats.mu.Lock()
	resp := map[string]any{
		"total_sessions":       a.stats.TotalSessions,
		"total_panoramas":      a.stats.TotalPanoramas,
		"total_aborted":        a.stats.TotalAborted,
		"total_bytes":          a.stats.TotalBytes,
		"panoramas_by_profile": a.stats.PanoramasByProfile,
		"last_panorama_at":     a.stats.LastPanoramaAt,
		"uptime_seconds":       int64(time.Since(a.startedAt).Seconds()),
	}
	a.stats.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	checks := map[string]any{}
	allOK := true

	// Check data directory.
	tmpPath := filepath.Join(cfg.Data.Root, ".healthcheck")
	if err := os.WriteFile(tmpPath, []byte("ok"), 0o644); err != nil {
		checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else {
		os.Remove(tmpPath)
		checks["data_dir"] = map[string]any{"ok": true, "path": cfg.Data.Root}
	}

	// Camera and sensor backends.
	if cfg.Camera.Simulate {
		checks["camera"] = map[string]any{"ok": true, "backend": "simulated"}
	} else {
		checks["camera"] = map[string]any{"ok": false, "error": "no camera backend configured"}
		allOK = false
	}
	if cfg.Sensor.Simulate {
		checks["sensor"] = map[string]any{"ok": true, "backend": "simulated"}
	} else {
		checks["sensor"] = map[string]any{"ok": false, "error": "no orientation backend configured"}
		allOK = false
	}

	// Config file readable.
	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// Reload + System
// ---------------------------------------------------------------------------

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Accept optional profile name in body: {"profile": "showroom"}
	var body struct {
		Profile string `json:"profile"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	loadPath := a.configPath
	if body.Profile != "" {
		// Resolve profile name to a file in the config directory.
		candidate := filepath.Join(config.DefaultConfigDir(), body.Profile+".toml")
		if _, err := os.Stat(candidate); err != nil {
			jsonError(w, fmt.Sprintf("profile %q not found at %s", body.Profile, candidate), http.StatusNotFound)
			return
		}
		loadPath = candidate
	}

	if loadPath == "" {
		jsonError(w, "no config file path set", http.StatusInternalServerError)
		return
	}

	newCfg, err := config.Load(loadPath)
	if err != nil {
		jsonError(w, "config reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	a.cfgMu.Lock()
	a.cfg = newCfg
	a.configPath = loadPath
	a.cfgMu.Unlock()

	// Sessions opened from here on pick up the new capture settings.
	a.logf("info", "config reloaded from %s", loadPath)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"message": "configuration reloaded from " + loadPath,
	})
}

func (a *App) handleSystem(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	resp := map[string]any{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"data_root":  cfg.Data.Root,
		"config_dir": config.DefaultConfigDir(),
		"camera_sim": cfg.Camera.Simulate,
		"sensor_sim": cfg.Sensor.Simulate,
	}

	if du := diskUsage(cfg.Data.Root); du != nil {
		resp["disk"] = du
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": msg,
	})
}

// writeSessionError maps structured session errors onto HTTP status
// codes so clients can distinguish bad requests from device failures.
func writeSessionError(w http.ResponseWriter, err error) {
	var sessErr *session.Error
	if !errors.As(err, &sessErr) {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	code := http.StatusInternalServerError
	switch sessErr.Kind {
	case session.KindInvalidState:
		code = http.StatusConflict
	case session.KindCapability:
		code = http.StatusServiceUnavailable
	case session.KindFrameMiss:
		code = http.StatusAccepted // recoverable; retry the capture
	case session.KindInsufficientCoverage, session.KindAssembly:
		code = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"kind":  sessErr.Kind,
		"error": sessErr.Detail,
	})
}
