package raster

import "image"

// sharpenKernel is a standard 3x3 unsharp kernel. The weights sum to
// one so overall brightness is preserved.
var sharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// Sharpen convolves the image with a 3x3 sharpening kernel. Border
// pixels have no full neighborhood and are copied through unmodified.
func Sharpen(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	copy(out.Pix, src.Pix)
	if b.Dx() < 3 || b.Dy() < 3 {
		return out
	}

	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var r, g, bl float64
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					o := src.PixOffset(x+dx, y+dy)
					w := sharpenKernel[k]
					k++
					r += w * float64(src.Pix[o])
					g += w * float64(src.Pix[o+1])
					bl += w * float64(src.Pix[o+2])
				}
			}
			o := out.PixOffset(x, y)
			out.Pix[o] = clamp8(r)
			out.Pix[o+1] = clamp8(g)
			out.Pix[o+2] = clamp8(bl)
			out.Pix[o+3] = src.Pix[src.PixOffset(x, y)+3]
		}
	}
	return out
}
