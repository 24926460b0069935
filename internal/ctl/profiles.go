package ctl

import (
	"fmt"
	"strings"
)

// Profiles lists the daemon's built-in quality profiles.
func Profiles(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Profiles []struct {
			ID           string  `json:"id"`
			FrameCount   int     `json:"frame_count"`
			OutputWidth  int     `json:"output_width"`
			OutputHeight int     `json:"output_height"`
			JPEGQuality  float64 `json:"jpeg_quality"`
		} `json:"profiles"`
	}
	if err := getJSON(baseURL, "/api/profiles", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  QUALITY PROFILES"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 52)))
	fmt.Printf("  %s %s %s %s\n",
		padRight("Profile", 10), padRight("Frames", 8),
		padRight("Output", 12), "JPEG quality")
	for _, p := range resp.Profiles {
		fmt.Printf("  %s %s %s %.0f%%\n",
			padRight(p.ID, 10),
			padRight(fmt.Sprintf("%d", p.FrameCount), 8),
			padRight(fmt.Sprintf("%dx%d", p.OutputWidth, p.OutputHeight), 12),
			p.JPEGQuality*100)
	}
	fmt.Println()
	return nil
}
