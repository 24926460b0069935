package ctl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roomloft/panorama-engine/internal/telemetry"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// Watch connects to the daemon's WebSocket endpoint and streams events
// to the terminal in a human-readable format until interrupted.
func Watch(baseURL string, opts WatchOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Println()
		fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, u.String()))
		if len(opts.Filter) > 0 {
			fmt.Printf("  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Println(colorize(dim, "  "+strings.Repeat("-", 50)))
		fmt.Println()
	}

	// Build a filter set for O(1) lookup.
	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			// Apply event type filter.
			if len(filterSet) > 0 {
				var ev map[string]any
				if err := json.Unmarshal(msg, &ev); err == nil {
					evType, _ := ev["type"].(string)
					if !filterSet[evType] {
						continue
					}
				}
			}

			if opts.JSON {
				fmt.Println(string(msg))
			} else {
				renderEvent(msg)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Println()
			fmt.Println(colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// renderEvent parses a JSON event and prints it in a human-friendly
// format. Falls back to raw JSON for unrecognized event types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Printf("  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := formatEventTime(ev)

	switch telemetry.EventType(evType) {
	case telemetry.EventHeartbeat:
		// Heartbeats are noisy — show them dimmed on a single line.
		sessions, _ := ev["sessions"].(float64)
		uptime, _ := ev["uptime_seconds"].(float64)
		uptimeStr := formatDuration(time.Duration(uptime) * time.Second)
		fmt.Printf("  %s %s  %d session(s)  up %s\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			int(sessions),
			colorize(dim, uptimeStr),
		)

	case telemetry.EventSessionState:
		sess, _ := ev["session"].(string)
		state, _ := ev["state"].(string)
		mode, _ := ev["mode"].(string)
		reason, _ := ev["reason"].(string)
		line := fmt.Sprintf("  %s %s  %s %s %s",
			colorize(dim, ts),
			colorize(bold, "SESSION"),
			shortID(sess),
			colorize(stateColor(state), state),
			colorize(dim, mode),
		)
		if reason != "" {
			line += "  " + colorize(red, reason)
		}
		fmt.Println(line)

	case telemetry.EventFrameCaptured:
		sess, _ := ev["session"].(string)
		ordinal, _ := ev["ordinal"].(float64)
		heading, _ := ev["heading"].(float64)
		captured, _ := ev["captured"].(float64)
		total, _ := ev["total"].(float64)
		pct := 0
		if total > 0 {
			pct = int(captured / total * 100)
		}
		fmt.Printf("  %s %s  %s slot %2.0f @ %5.1f°  [%s] %2.0f/%2.0f\n",
			colorize(dim, ts),
			colorize(cyan, "FRAME  "),
			shortID(sess),
			ordinal,
			heading,
			progressBar(pct, 20),
			captured, total,
		)

	case telemetry.EventFrameMiss:
		sess, _ := ev["session"].(string)
		ordinal, _ := ev["ordinal"].(float64)
		fmt.Printf("  %s %s  %s slot %2.0f dropped, retrying\n",
			colorize(dim, ts),
			colorize(yellow, "MISS   "),
			shortID(sess),
			ordinal,
		)

	case telemetry.EventArtifact:
		sess, _ := ev["session"].(string)
		artifact, _ := ev["artifact"].(string)
		width, _ := ev["width"].(float64)
		height, _ := ev["height"].(float64)
		fmt.Printf("  %s %s  %s panorama %s (%.0fx%.0f)\n",
			colorize(dim, ts),
			colorize(green, "STORED "),
			shortID(sess),
			shortID(artifact),
			width, height,
		)

	case telemetry.EventLog:
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		component, _ := ev["component"].(string)
		levelStr := formatLogLevel(level)
		src := ""
		if component != "" {
			src = colorize(dim, "["+component+"] ")
		}
		fmt.Printf("  %s %s  %s%s\n", colorize(dim, ts), levelStr, src, message)

	default:
		// Unknown event type — dump as indented JSON so nothing is lost.
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Printf("  %s\n", string(raw))
			return
		}
		fmt.Printf("  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "          "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return tsRaw[:10]
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	switch level {
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}
