package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// healthResponse mirrors the daemon's detailed health payload: one
// check entry per component (data_dir, camera, sensor, config_file).
type healthResponse struct {
	Healthy bool                      `json:"healthy"`
	Checks  map[string]map[string]any `json:"checks"`
}

// Health queries GET /healthz with a JSON accept header so the daemon
// returns component-level checks, and renders one line per component.
func Health(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	req, err := http.NewRequest(http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	if jsonOutput {
		return printJSON(map[string]any{"healthy": health.Healthy, "url": baseURL, "checks": health.Checks})
	}

	fmt.Println()
	if health.Healthy {
		fmt.Printf("  %s  panoramad at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Printf("  %s  panoramad at %s\n", colorize(red, "UNHEALTHY"), colorize(dim, baseURL))
	}
	fmt.Println()

	names := make([]string, 0, len(health.Checks))
	for name := range health.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := health.Checks[name]
		ok, _ := check["ok"].(bool)
		mark := colorize(green, "ok")
		detail := ""
		if backend, _ := check["backend"].(string); backend != "" {
			detail = colorize(dim, backend)
		}
		if path, _ := check["path"].(string); path != "" {
			detail = colorize(dim, path)
		}
		if !ok {
			mark = colorize(red, "FAIL")
			if msg, _ := check["error"].(string); msg != "" {
				detail = colorize(red, msg)
			}
		}
		fmt.Printf("  %s %s  %s\n", padRight(name, 14), mark, detail)
	}
	fmt.Println()

	return nil
}
