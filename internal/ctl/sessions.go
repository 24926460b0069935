package ctl

import (
	"fmt"
	"strings"
)

// OpenOptions configures the session open command.
type OpenOptions struct {
	Mode    string
	Profile string
	Room    string
	JSON    bool
}

// Sessions lists the daemon's live capture sessions.
func Sessions(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Sessions []sessionJSON `json:"sessions"`
	}
	if err := getJSON(baseURL, "/api/sessions", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  CAPTURE SESSIONS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 60)))

	if len(resp.Sessions) == 0 {
		fmt.Printf("  %s\n\n", colorize(dim, "no live sessions"))
		return nil
	}

	for _, s := range resp.Sessions {
		printSession(s)
	}
	fmt.Println()
	return nil
}

// Open creates a new capture session.
func Open(baseURL string, opts OpenOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]string{}
	if opts.Mode != "" {
		body["mode"] = opts.Mode
	}
	if opts.Profile != "" {
		body["profile"] = opts.Profile
	}
	if opts.Room != "" {
		body["room"] = opts.Room
	}

	var snap sessionJSON
	if err := postJSON(baseURL, "/api/sessions", body, &snap); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(snap)
	}

	fmt.Printf("\n  %s  session %s (%s, %s)\n\n",
		colorize(green, "OPENED"), snap.ID, snap.Mode, snap.Profile)
	return nil
}

// SessionInfo shows the full snapshot of one session.
func SessionInfo(baseURL, id string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var snap sessionJSON
	if err := getJSON(baseURL, "/api/sessions/"+id, &snap); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(snap)
	}

	fmt.Println()
	fmt.Println(header("  SESSION " + shortID(snap.ID)))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 50)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "ID:"), snap.ID)
	fmt.Printf("  %-12s %s\n", colorize(dim, "State:"), colorize(stateColor(snap.State), snap.State))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Mode:"), snap.Mode)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Profile:"), snap.Profile)
	if snap.Room != "" {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Room:"), snap.Room)
	}
	pct := int(snap.Coverage * 100)
	fmt.Printf("  %-12s [%s] %d/%d (%d%%)\n", colorize(dim, "Frames:"),
		progressBar(pct, 20), snap.FramesCaptured, snap.FrameCount, pct)
	fmt.Printf("  %-12s %.1f°\n", colorize(dim, "Sweep:"), snap.SweepDegrees)
	if snap.ArtifactID != "" {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Artifact:"), snap.ArtifactID)
	}
	if snap.AbortReason != "" {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Abort:"), colorize(red, snap.AbortReason))
	}
	fmt.Println()
	return nil
}

// sessionAction posts to a session action endpoint and prints the
// resulting snapshot.
func sessionAction(baseURL, id, action string, body any, jsonOutput bool, verb string) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var snap sessionJSON
	if err := postJSON(baseURL, "/api/sessions/"+id+"/"+action, body, &snap); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(snap)
	}

	fmt.Printf("\n  %s  ", colorize(green, verb))
	printSession(snap)
	fmt.Println()
	return nil
}

// SessionStart begins sampling on a session.
func SessionStart(baseURL, id string, jsonOutput bool) error {
	return sessionAction(baseURL, id, "start", nil, jsonOutput, "STARTED")
}

// SessionMode changes a session's capture mode before sampling begins.
func SessionMode(baseURL, id, mode string, jsonOutput bool) error {
	return sessionAction(baseURL, id, "mode", map[string]string{"mode": mode}, jsonOutput, "MODE SET")
}

// SessionProfile changes a session's quality profile before sampling
// begins.
func SessionProfile(baseURL, id, profile string, jsonOutput bool) error {
	return sessionAction(baseURL, id, "profile", map[string]string{"profile": profile}, jsonOutput, "PROFILE SET")
}

// SessionCapture captures one frame in a manual-mode session.
func SessionCapture(baseURL, id string, jsonOutput bool) error {
	return sessionAction(baseURL, id, "capture", nil, jsonOutput, "CAPTURED")
}

// SessionRetake replaces the frame at the given ordinal.
func SessionRetake(baseURL, id string, ordinal int, jsonOutput bool) error {
	return sessionAction(baseURL, id, "retake", map[string]int{"ordinal": ordinal}, jsonOutput, "RETAKEN")
}

// SessionFinish ends sampling and assembles the panorama.
func SessionFinish(baseURL, id string, jsonOutput bool) error {
	return sessionAction(baseURL, id, "finish", nil, jsonOutput, "FINISHED")
}

// SessionClose shuts a session down.
func SessionClose(baseURL, id string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var result struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	if err := deleteJSON(baseURL, "/api/sessions/"+id, &result); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}
	fmt.Printf("\n  %s  %s\n\n", colorize(green, "CLOSED"), result.Message)
	return nil
}

// printSession prints one session as a compact single line.
func printSession(s sessionJSON) {
	pct := int(s.Coverage * 100)
	room := ""
	if s.Room != "" {
		room = "  " + colorize(dim, s.Room)
	}
	fmt.Printf("  %s  %s %s  %s [%s] %d/%d (%d%%)%s\n",
		shortID(s.ID),
		colorize(stateColor(s.State), padRight(s.State, 9)),
		padRight(s.Mode, 9),
		padRight(s.Profile, 8),
		progressBar(pct, 20),
		s.FramesCaptured, s.FrameCount, pct, room)
}
