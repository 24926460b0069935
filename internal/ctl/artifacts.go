package ctl

import (
	"fmt"
	"strings"
	"time"
)

// ArtifactsOptions configures the artifacts command.
type ArtifactsOptions struct {
	Delete   string // artifact ID to delete
	Validate string // artifact ID to validate
	JSON     bool
}

// Artifacts lists stored panoramas, or deletes/validates one.
func Artifacts(baseURL string, opts ArtifactsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Delete != "" {
		var result struct {
			OK      bool   `json:"ok"`
			Message string `json:"message"`
		}
		if err := deleteJSON(baseURL, "/api/artifacts?id="+opts.Delete, &result); err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(result)
		}
		fmt.Printf("\n  %s  %s\n\n", colorize(green, "DELETED"), result.Message)
		return nil
	}

	if opts.Validate != "" {
		var result struct {
			OK    bool   `json:"ok"`
			Valid bool   `json:"valid"`
			Error string `json:"error"`
		}
		if err := postJSON(baseURL, "/api/artifacts/validate",
			map[string]string{"id": opts.Validate}, &result); err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(result)
		}
		if result.Valid {
			fmt.Printf("\n  %s  %s is a well-formed equirectangular panorama\n\n",
				colorize(green, "VALID"), shortID(opts.Validate))
		} else {
			fmt.Printf("\n  %s  %s: %s\n\n",
				colorize(red, "INVALID"), shortID(opts.Validate), result.Error)
		}
		return nil
	}

	var resp struct {
		Artifacts []struct {
			ID        string `json:"id"`
			Filename  string `json:"filename"`
			Thumbnail string `json:"thumbnail"`
			SizeBytes int64  `json:"size_bytes"`
			Meta      struct {
				Room       string    `json:"room"`
				Profile    string    `json:"profile"`
				Mode       string    `json:"mode"`
				FrameCount int       `json:"frame_count"`
				Width      int       `json:"width"`
				Height     int       `json:"height"`
				CreatedAt  time.Time `json:"created_at"`
			} `json:"meta"`
		} `json:"artifacts"`
	}
	if err := getJSON(baseURL, "/api/artifacts", &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  STORED PANORAMAS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("-", 70)))

	if len(resp.Artifacts) == 0 {
		fmt.Printf("  %s\n\n", colorize(dim, "no panoramas stored"))
		return nil
	}

	for _, a := range resp.Artifacts {
		room := a.Meta.Room
		if room == "" {
			room = "-"
		}
		fmt.Printf("  %s  %s  %dx%d  %2d frames  %s  %s  %s\n",
			shortID(a.ID),
			padRight(a.Meta.Profile, 8),
			a.Meta.Width, a.Meta.Height,
			a.Meta.FrameCount,
			padRight(formatBytes(a.SizeBytes), 9),
			colorize(dim, a.Meta.CreatedAt.Local().Format("2006-01-02 15:04")),
			room)
	}
	fmt.Println()
	return nil
}
