// Package assemble stitches an ordered set of captured frames into an
// equirectangular panorama. Stitching is purely functional: the same
// frames and profile always produce byte-identical JPEG output.
package assemble

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"github.com/roomloft/panorama-engine/internal/raster"
	"github.com/roomloft/panorama-engine/internal/session"
)

// blendFraction sizes the seam overlap relative to one slice.
const blendFraction = 0.10

// Options tunes the assembler.
type Options struct {
	// Sharpen runs a 3x3 sharpening pass over the stitched canvas
	// before encoding.
	Sharpen bool
}

// Assembler produces panoramas for session controllers. Its Assemble
// method satisfies session.AssembleFunc.
type Assembler struct {
	opts Options
}

// New returns an assembler with the given options.
func New(opts Options) *Assembler {
	return &Assembler{opts: opts}
}

// Assemble scales each frame into its horizontal slice of the output
// canvas, blending a linear alpha ramp across each seam, then encodes
// the result as a JPEG at the profile's quality.
func (a *Assembler) Assemble(frames []*session.Frame, profile session.QualityProfile, meta session.Metadata) (*session.Artifact, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to assemble")
	}

	width, height := profile.OutputWidth, profile.OutputHeight
	sliceWidth := width / len(frames)
	if sliceWidth < 1 {
		return nil, fmt.Errorf("output width %d too narrow for %d frames", width, len(frames))
	}
	blendWidth := int(float64(sliceWidth) * blendFraction)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, frame := range frames {
		if frame.Image == nil {
			return nil, fmt.Errorf("frame %d has no image", frame.Ordinal)
		}
		x0 := i * sliceWidth
		x1 := x0 + sliceWidth + blendWidth
		if i == len(frames)-1 || x1 > width {
			x1 = width
		}
		placeSlice(canvas, frame.Image, x0, x1, blendWidth, i == 0)
	}

	if a.opts.Sharpen {
		canvas = raster.Sharpen(canvas)
	}

	if err := raster.ValidateEquirect(width, height); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	quality := int(profile.JPEGQuality*100 + 0.5)
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	meta.Width = width
	meta.Height = height
	meta.Sharpened = a.opts.Sharpen
	return &session.Artifact{
		ID:   uuid.NewString(),
		Data: buf.Bytes(),
		Meta: meta,
	}, nil
}

// placeSlice scales src into canvas columns [x0,x1) and blends the
// leading blendWidth columns over whatever is already there. Alpha
// ramps linearly from 0 at the slice edge to 1 at the end of the
// blend region, so seams fade instead of cutting.
func placeSlice(canvas *image.RGBA, src *image.RGBA, x0, x1, blendWidth int, first bool) {
	if x1 <= x0 {
		return
	}
	height := canvas.Bounds().Dy()
	scaled := image.NewRGBA(image.Rect(0, 0, x1-x0, height))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	for y := 0; y < height; y++ {
		for x := x0; x < x1; x++ {
			so := scaled.PixOffset(x-x0, y)
			co := canvas.PixOffset(x, y)
			if first || blendWidth == 0 || x >= x0+blendWidth {
				copy(canvas.Pix[co:co+4], scaled.Pix[so:so+4])
				continue
			}
			alpha := float64(x-x0) / float64(blendWidth)
			for ch := 0; ch < 3; ch++ {
				bg := float64(canvas.Pix[co+ch])
				fg := float64(scaled.Pix[so+ch])
				canvas.Pix[co+ch] = uint8(bg*(1-alpha) + fg*alpha + 0.5)
			}
			canvas.Pix[co+3] = 255
		}
	}
}
