// Package config handles loading, defaulting, and validation of the
// panorama daemon's TOML configuration file. Every section maps to a
// typed struct so the rest of the codebase gets strong typing without
// manual key lookups.
package config

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data    DataConfig    `toml:"data"    json:"data"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Server  ServerConfig  `toml:"server"  json:"server"`
	Demo    DemoConfig    `toml:"demo"    json:"demo"`
	Capture CaptureConfig `toml:"capture" json:"capture"`
	Camera  CameraConfig  `toml:"camera"  json:"camera"`
	Sensor  SensorConfig  `toml:"sensor"  json:"sensor"`
}

type DataConfig struct {
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type DemoConfig struct {
	Enabled         bool `toml:"enabled"          json:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds" json:"interval_seconds"`
}

// CaptureConfig tunes the session event loop and its finish rules.
type CaptureConfig struct {
	TickMillis        int     `toml:"tick_ms"            json:"tick_ms"`
	GuidedTimeoutSecs int     `toml:"guided_timeout_s"   json:"guided_timeout_s"`
	AutoIntervalMs    int     `toml:"auto_interval_ms"   json:"auto_interval_ms"`
	AutoDurationSecs  int     `toml:"auto_duration_s"    json:"auto_duration_s"`
	MinCoverage       float64 `toml:"min_coverage"       json:"min_coverage"`
	ManualMinFrames   int     `toml:"manual_min_frames"  json:"manual_min_frames"`
	Sharpen           bool    `toml:"sharpen"            json:"sharpen"`
	DefaultProfile    string  `toml:"default_profile"    json:"default_profile"`
}

type CameraConfig struct {
	FrameWidth  int  `toml:"frame_width"  json:"frame_width"`
	FrameHeight int  `toml:"frame_height" json:"frame_height"`
	Simulate    bool `toml:"simulate"     json:"simulate"`
}

// SensorConfig tunes the orientation source. With simulate enabled the
// daemon synthesizes a rotation instead of reading a device.
type SensorConfig struct {
	Simulate      bool    `toml:"simulate"       json:"simulate"`
	SimRateDegSec float64 `toml:"sim_rate_deg_s" json:"sim_rate_deg_s"`
	SampleHz      int     `toml:"sample_hz"      json:"sample_hz"`
}

// Default returns a Config populated with sane defaults. Values here
// are used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/panorama",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Demo: DemoConfig{
			Enabled:         false,
			IntervalSeconds: 30,
		},
		Capture: CaptureConfig{
			TickMillis:        50,
			GuidedTimeoutSecs: 60,
			AutoIntervalMs:    500,
			AutoDurationSecs:  20,
			MinCoverage:       0.75,
			ManualMinFrames:   12,
			Sharpen:           true,
			DefaultProfile:    "standard",
		},
		Camera: CameraConfig{
			FrameWidth:  1280,
			FrameHeight: 720,
			Simulate:    true,
		},
		Sensor: SensorConfig{
			Simulate:      true,
			SimRateDegSec: 30,
			SampleHz:      50,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults,
// and validates the result. An error is returned if the file can't be
// read, parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Demo.IntervalSeconds < 0 {
		return errors.New("demo.interval_seconds must be >= 0")
	}
	if cfg.Capture.TickMillis <= 0 {
		return errors.New("capture.tick_ms must be > 0")
	}
	if cfg.Capture.GuidedTimeoutSecs <= 0 {
		return errors.New("capture.guided_timeout_s must be > 0")
	}
	if cfg.Capture.AutoIntervalMs <= 0 {
		return errors.New("capture.auto_interval_ms must be > 0")
	}
	if cfg.Capture.AutoDurationSecs <= 0 {
		return errors.New("capture.auto_duration_s must be > 0")
	}
	if cfg.Capture.MinCoverage <= 0 || cfg.Capture.MinCoverage > 1 {
		return errors.New("capture.min_coverage must be in (0, 1]")
	}
	if cfg.Capture.ManualMinFrames < 1 {
		return errors.New("capture.manual_min_frames must be >= 1")
	}
	if cfg.Camera.FrameWidth <= 0 || cfg.Camera.FrameHeight <= 0 {
		return errors.New("camera.frame_width and camera.frame_height must be > 0")
	}
	if cfg.Sensor.SampleHz <= 0 {
		return errors.New("sensor.sample_hz must be > 0")
	}
	return nil
}
