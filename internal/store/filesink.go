// Package store persists finished panoramas to disk: the full-size
// JPEG, a sidecar metadata JSON, and a small thumbnail for gallery
// listings.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/roomloft/panorama-engine/internal/raster"
	"github.com/roomloft/panorama-engine/internal/session"
)

const (
	thumbWidth   = 400
	thumbHeight  = 200
	thumbQuality = 80
)

// FileSink writes artifacts under a data root:
//
//	<root>/panoramas/<id>.jpg
//	<root>/panoramas/<id>.json
//	<root>/panoramas/thumbs/<id>.jpg
type FileSink struct {
	root string
	log  *log.Logger
}

// NewFileSink creates the panorama directories under root.
func NewFileSink(root string, logger *log.Logger) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Join(root, "panoramas", "thumbs"), 0o755); err != nil {
		return nil, fmt.Errorf("create data dirs: %w", err)
	}
	return &FileSink{root: root, log: logger}, nil
}

// Dir returns the panorama directory.
func (s *FileSink) Dir() string {
	return filepath.Join(s.root, "panoramas")
}

// Deliver persists an artifact. The image is validated before anything
// touches disk so a malformed panorama never lands in the gallery.
func (s *FileSink) Deliver(a *session.Artifact) error {
	if err := raster.ValidateEquirect(a.Meta.Width, a.Meta.Height); err != nil {
		return err
	}

	dir := s.Dir()
	imgPath := filepath.Join(dir, a.ID+".jpg")
	if err := os.WriteFile(imgPath, a.Data, 0o644); err != nil {
		return fmt.Errorf("write panorama: %w", err)
	}

	metaBytes, err := json.MarshalIndent(a.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, a.ID+".json"), metaBytes, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := s.writeThumb(a); err != nil {
		// The panorama itself is safe; a missing thumbnail is cosmetic.
		s.log.Printf("thumbnail for %s: %v", a.ID, err)
	}

	s.log.Printf("stored panorama %s (%dx%d, %d bytes)", a.ID, a.Meta.Width, a.Meta.Height, len(a.Data))
	return nil
}

func (s *FileSink) writeThumb(a *session.Artifact) error {
	src, err := jpeg.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	thumb := image.NewRGBA(image.Rect(0, 0, thumbWidth, thumbHeight))
	xdraw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return os.WriteFile(filepath.Join(s.Dir(), "thumbs", a.ID+".jpg"), buf.Bytes(), 0o644)
}

// Entry describes one stored panorama for gallery listings.
type Entry struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	SizeBytes int64            `json:"size_bytes"`
	Meta      session.Metadata `json:"meta"`
}

// List returns all stored panoramas, newest first by creation time.
func (s *FileSink) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir(), "*.json"))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		id := strings.TrimSuffix(filepath.Base(m), ".json")
		raw, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		var meta session.Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			s.log.Printf("skipping malformed metadata %s: %v", m, err)
			continue
		}
		entry := Entry{ID: id, Filename: id + ".jpg", Meta: meta}
		if info, err := os.Stat(filepath.Join(s.Dir(), entry.Filename)); err == nil {
			entry.SizeBytes = info.Size()
		}
		if _, err := os.Stat(filepath.Join(s.Dir(), "thumbs", id+".jpg")); err == nil {
			entry.Thumbnail = filepath.Join("thumbs", id+".jpg")
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Meta.CreatedAt.After(entries[j].Meta.CreatedAt)
	})
	return entries, nil
}

// Delete removes a panorama, its metadata, and its thumbnail. IDs with
// path separators are rejected to prevent traversal.
func (s *FileSink) Delete(id string) error {
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid artifact id")
	}
	imgPath := filepath.Join(s.Dir(), id+".jpg")
	if _, err := os.Stat(imgPath); err != nil {
		return err
	}
	if err := os.Remove(imgPath); err != nil {
		return err
	}
	_ = os.Remove(filepath.Join(s.Dir(), id+".json"))
	_ = os.Remove(filepath.Join(s.Dir(), "thumbs", id+".jpg"))
	return nil
}

// Validate re-checks a stored panorama's dimensions against the
// equirectangular constraints without decoding the full image.
func (s *FileSink) Validate(id string) error {
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid artifact id")
	}
	f, err := os.Open(filepath.Join(s.Dir(), id+".jpg"))
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return raster.ValidateEquirect(cfg.Width, cfg.Height)
}
