// Package threshold implements the black/white page transform.
//
// A pixel survives only if it is exactly pure white; anything else, including
// the near-white edges that anti-aliased rendering leaves around glyphs,
// becomes pure black. There is no tolerance band.
package threshold

import (
	"image"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// Apply returns a new raster of identical bounds in which every pixel is
// either the unchanged white source pixel or opaque black.
func Apply(src *domain.PageRaster) *domain.PageRaster {
	dst := image.NewRGBA(src.Bounds())
	b := src.Bounds()
	width := b.Dx() * 4

	for y := 0; y < b.Dy(); y++ {
		srow := src.Pix[y*src.Stride : y*src.Stride+width]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+width]
		for i := 0; i < width; i += 4 {
			if srow[i] == 255 && srow[i+1] == 255 && srow[i+2] == 255 {
				drow[i+0] = 255
				drow[i+1] = 255
				drow[i+2] = 255
			}
			// black otherwise; the zeroed buffer already holds 0,0,0
			drow[i+3] = 255
		}
	}

	return dst
}
