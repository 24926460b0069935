package raster

import "fmt"

const (
	minEquirectWidth  = 2048
	minEquirectHeight = 1024
	minAspect         = 1.8
	maxAspect         = 2.2
)

// ValidateEquirect checks that an image's dimensions are plausible
// for an equirectangular panorama: at least 2048x1024 with a
// width/height ratio near 2:1.
func ValidateEquirect(width, height int) error {
	if width < minEquirectWidth || height < minEquirectHeight {
		return fmt.Errorf("panorama %dx%d below minimum %dx%d",
			width, height, minEquirectWidth, minEquirectHeight)
	}
	aspect := float64(width) / float64(height)
	if aspect < minAspect || aspect > maxAspect {
		return fmt.Errorf("aspect ratio %.2f outside equirectangular range [%.1f, %.1f]",
			aspect, minAspect, maxAspect)
	}
	return nil
}
