package ctl

import (
	"fmt"
	"strings"
	"time"
)

// sessionJSON mirrors the session snapshot returned by the daemon.
type sessionJSON struct {
	ID             string  `json:"id"`
	State          string  `json:"state"`
	Mode           string  `json:"mode"`
	Profile        string  `json:"profile"`
	Room           string  `json:"room"`
	FramesCaptured int     `json:"frames_captured"`
	FrameCount     int     `json:"frame_count"`
	Coverage       float64 `json:"coverage"`
	SweepDegrees   float64 `json:"sweep_degrees"`
	AbortReason    string  `json:"abort_reason"`
	ArtifactID     string  `json:"artifact_id"`
}

// statusResponse mirrors the JSON returned by GET /api/status.
type statusResponse struct {
	Name          string         `json:"name"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	DataRoot      string         `json:"data_root"`
	DemoEnabled   bool           `json:"demo_enabled"`
	Sessions      []sessionJSON  `json:"sessions"`
	WSClients     int            `json:"ws_clients"`
	Disk          map[string]any `json:"disk"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s statusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	mode := "live"
	if s.DemoEnabled {
		mode = "demo"
	}

	fmt.Println()
	fmt.Println(header("  PANORAMA ENGINE STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Mode:"), mode)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Data:"), s.DataRoot)
	fmt.Printf("  %-12s %d\n", colorize(dim, "WS clients:"), s.WSClients)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Host:"), baseURL)

	if len(s.Sessions) == 0 {
		fmt.Printf("\n  %s\n\n", colorize(dim, "no live sessions"))
		return nil
	}

	fmt.Println()
	fmt.Println(header("  LIVE SESSIONS"))
	for _, sess := range s.Sessions {
		pct := int(sess.Coverage * 100)
		fmt.Printf("  %s  %s %s  %s [%s] %d/%d (%d%%)\n",
			shortID(sess.ID),
			colorize(stateColor(sess.State), padRight(sess.State, 9)),
			padRight(sess.Mode, 9),
			padRight(sess.Profile, 8),
			progressBar(pct, 20),
			sess.FramesCaptured, sess.FrameCount, pct)
	}
	fmt.Println()

	return nil
}
