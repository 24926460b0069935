// Package raster implements the pixel-level operations used by the
// capture pipeline: frame enhancement, seam blending helpers, and
// equirectangular validation. All operations are deterministic; the
// same input always produces byte-identical output.
package raster

import (
	"image"
	"image/color"
)

const saturationFactor = 1.15

// Enhance applies the full enhancement pipeline to a frame:
// auto-levels, then an S-curve contrast boost, then a saturation
// push. Images with fewer than two pixels are returned unchanged
// since there is no tonal range to stretch.
func Enhance(src image.Image) *image.RGBA {
	b := src.Bounds()
	if b.Dx()*b.Dy() <= 1 {
		return toRGBA(src)
	}
	out := AutoLevels(src)
	contrastCurve(out)
	saturationBoost(out)
	return out
}

// AutoLevels stretches the tonal range so the darkest pixel maps to 0
// and the brightest to 255. Luminance is the per-pixel channel
// average; the same scale applies to all three channels so hues are
// preserved.
func AutoLevels(src image.Image) *image.RGBA {
	out := toRGBA(src)
	b := out.Bounds()

	minLum, maxLum := 255.0, 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := out.Pix[out.PixOffset(b.Min.X, y) : out.PixOffset(b.Max.X, y) : out.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			lum := (float64(row[i]) + float64(row[i+1]) + float64(row[i+2])) / 3
			if lum < minLum {
				minLum = lum
			}
			if lum > maxLum {
				maxLum = lum
			}
		}
	}

	if maxLum <= minLum {
		return out
	}
	scale := 255 / (maxLum - minLum)
	if minLum == 0 && maxLum == 255 {
		return out
	}

	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = clamp8((float64(out.Pix[i]) - minLum) * scale)
		out.Pix[i+1] = clamp8((float64(out.Pix[i+1]) - minLum) * scale)
		out.Pix[i+2] = clamp8((float64(out.Pix[i+2]) - minLum) * scale)
	}
	return out
}

// contrastCurve applies an S-curve to each channel in place:
// f(x) = 2x^2 for x < 0.5, 1 - 2(1-x)^2 otherwise, with x the
// channel value normalized to [0,1]. Midtones stay put, shadows
// deepen, highlights lift.
func contrastCurve(img *image.RGBA) {
	var lut [256]uint8
	for v := range lut {
		x := float64(v) / 255
		var fx float64
		if x < 0.5 {
			fx = 2 * x * x
		} else {
			d := 1 - x
			fx = 1 - 2*d*d
		}
		lut[v] = clamp8(fx * 255)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = lut[img.Pix[i]]
		img.Pix[i+1] = lut[img.Pix[i+1]]
		img.Pix[i+2] = lut[img.Pix[i+2]]
	}
}

// saturationBoost pushes each channel away from the per-pixel channel
// average by a fixed factor, clamped to [0,255].
func saturationBoost(img *image.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		r := float64(img.Pix[i])
		g := float64(img.Pix[i+1])
		b := float64(img.Pix[i+2])
		avg := (r + g + b) / 3
		img.Pix[i] = clamp8(avg + (r-avg)*saturationFactor)
		img.Pix[i+1] = clamp8(avg + (g-avg)*saturationFactor)
		img.Pix[i+2] = clamp8(avg + (b-avg)*saturationFactor)
	}
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		out := image.NewRGBA(rgba.Bounds())
		copy(out.Pix, rgba.Pix)
		return out
	}
	b := src.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, color.RGBAModel.Convert(src.At(x, y)))
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
