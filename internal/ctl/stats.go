package ctl

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stats shows aggregate session statistics from the daemon.
func Stats(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		TotalSessions      int            `json:"total_sessions"`
		TotalPanoramas     int            `json:"total_panoramas"`
		TotalAborted       int            `json:"total_aborted"`
		TotalBytes         int64          `json:"total_bytes"`
		PanoramasByProfile map[string]int `json:"panoramas_by_profile"`
		LastPanoramaAt     string         `json:"last_panorama_at"`
		UptimeSeconds      int64          `json:"uptime_seconds"`
	}
	if err := getJSON(baseURL, "/api/stats", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  SESSION STATISTICS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 42)))
	fmt.Printf("  Uptime:           %s\n", formatDuration(time.Duration(resp.UptimeSeconds)*time.Second))
	fmt.Printf("  Total sessions:   %d\n", resp.TotalSessions)
	fmt.Printf("  Panoramas stored: %d\n", resp.TotalPanoramas)
	fmt.Printf("  Sessions aborted: %d\n", resp.TotalAborted)
	fmt.Printf("  Total data:       %s\n", formatBytes(resp.TotalBytes))

	if resp.LastPanoramaAt != "" {
		fmt.Printf("  Last panorama:    %s\n", resp.LastPanoramaAt)
	} else {
		fmt.Printf("  Last panorama:    none\n")
	}

	if len(resp.PanoramasByProfile) > 0 {
		fmt.Println()
		fmt.Println(header("  BY PROFILE"))
		names := make([]string, 0, len(resp.PanoramasByProfile))
		for name := range resp.PanoramasByProfile {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s %d\n", padRight(name, 12), resp.PanoramasByProfile[name])
		}
	}

	fmt.Println()
	return nil
}
