package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	// Decode into a generic map to preserve all fields for both display modes.
	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	// Decode into ordered sections for human-readable output.
	var cfg struct {
		Data struct {
			Root string `json:"root"`
		} `json:"data"`
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Demo struct {
			Enabled         bool `json:"enabled"`
			IntervalSeconds int  `json:"interval_seconds"`
		} `json:"demo"`
		Capture struct {
			TickMs          int     `json:"tick_ms"`
			GuidedTimeoutS  int     `json:"guided_timeout_s"`
			AutoIntervalMs  int     `json:"auto_interval_ms"`
			AutoDurationS   int     `json:"auto_duration_s"`
			MinCoverage     float64 `json:"min_coverage"`
			ManualMinFrames int     `json:"manual_min_frames"`
			Sharpen         bool    `json:"sharpen"`
			DefaultProfile  string  `json:"default_profile"`
		} `json:"capture"`
		Camera struct {
			FrameWidth  int  `json:"frame_width"`
			FrameHeight int  `json:"frame_height"`
			Simulate    bool `json:"simulate"`
		} `json:"camera"`
		Sensor struct {
			Simulate      bool    `json:"simulate"`
			SimRateDegSec float64 `json:"sim_rate_deg_s"`
			SampleHz      int     `json:"sample_hz"`
		} `json:"sensor"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  DAEMON CONFIGURATION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 50)))

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)

	section("logging")
	field("level", cfg.Logging.Level)

	section("server")
	field("bind", cfg.Server.Bind)

	section("demo")
	field("enabled", cfg.Demo.Enabled)
	field("interval_seconds", cfg.Demo.IntervalSeconds)

	section("capture")
	field("tick_ms", cfg.Capture.TickMs)
	field("guided_timeout_s", cfg.Capture.GuidedTimeoutS)
	field("auto_interval_ms", cfg.Capture.AutoIntervalMs)
	field("auto_duration_s", cfg.Capture.AutoDurationS)
	field("min_coverage", cfg.Capture.MinCoverage)
	field("manual_min_frames", cfg.Capture.ManualMinFrames)
	field("sharpen", cfg.Capture.Sharpen)
	field("default_profile", cfg.Capture.DefaultProfile)

	section("camera")
	field("frame_width", cfg.Camera.FrameWidth)
	field("frame_height", cfg.Camera.FrameHeight)
	field("simulate", cfg.Camera.Simulate)

	section("sensor")
	field("simulate", cfg.Sensor.Simulate)
	field("sim_rate_deg_s", cfg.Sensor.SimRateDegSec)
	field("sample_hz", cfg.Sensor.SampleHz)

	fmt.Println()

	return nil
}

// ConfigList shows the named config profiles available in the daemon's
// config directory.
func ConfigList(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		ConfigDir string `json:"config_dir"`
		Profiles  []struct {
			Name     string `json:"name"`
			Path     string `json:"path"`
			Size     int64  `json:"size"`
			Modified string `json:"modified"`
		} `json:"profiles"`
	}
	if err := getJSON(baseURL, "/api/config-profiles", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  CONFIG PROFILES"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 50)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Directory:"), resp.ConfigDir)

	if len(resp.Profiles) == 0 {
		fmt.Printf("\n  %s\n\n", colorize(dim, "no profiles found"))
		return nil
	}

	fmt.Println()
	for _, p := range resp.Profiles {
		fmt.Printf("  %s  %s  %s\n",
			padRight(p.Name, 20),
			padRight(formatBytes(p.Size), 10),
			colorize(dim, p.Modified))
	}
	fmt.Println()

	return nil
}
