package pdf

import (
	"image"
	"image/draw"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// rotateClockwise turns img by 90° clockwise. The result has its origin at (0, 0).
func rotateClockwise(img *domain.PageRaster) *domain.PageRaster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			// (x, y) -> (h-1-y, x)
			di := dst.PixOffset(h-1-y, x)
			copy(dst.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return dst
}

// fitCanvas places img at the top-left of a white width x height canvas.
// Pixels are copied as they are: the rounding slack of a render is cropped
// from the right and bottom edges, or padded there with white.
func fitCanvas(img *domain.PageRaster, width, height int) *domain.PageRaster {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// toRGBA returns img as an *image.RGBA with its origin at (0, 0).
func toRGBA(img image.Image) *domain.PageRaster {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
