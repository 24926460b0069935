package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ProfileInfo describes one named configuration file in the config
// directory. These are full daemon configs (for switching between
// venues or rigs), distinct from the built-in quality profiles.
type ProfileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// DefaultConfigDir returns the directory searched for named config
// profiles: $PANORAMAD_CONFIG_DIR if set, otherwise /etc/panoramad.
func DefaultConfigDir() string {
	if dir := os.Getenv("PANORAMAD_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/panoramad"
}

// ListProfiles enumerates the *.toml files in dir. A missing directory
// is not an error; it just means no profiles exist.
func ListProfiles(dir string) ([]ProfileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []ProfileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		profiles = append(profiles, ProfileInfo{
			Name:     strings.TrimSuffix(e.Name(), ".toml"),
			Path:     filepath.Join(dir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return profiles, nil
}
