package pdf

import (
	"image"
	"math"
)

const (
	// DefaultTargetWidth is the raster width of a page, A4 at ~300dpi.
	DefaultTargetWidth = 2480
	// DefaultMaxHeight caps the raster height, A4 at ~300dpi.
	DefaultMaxHeight = 3508

	pointsPerInch = 72.0

	// extentSlack absorbs float error when pixel lengths are mapped back to points.
	extentSlack = 1e-6
)

// RenderConfig fixes the rasterization parameters.
type RenderConfig struct {
	TargetWidth     int
	MaxHeight       int
	RotateLandscape bool
}

// DefaultRenderConfig returns the A4/300dpi configuration.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		TargetWidth:     DefaultTargetWidth,
		MaxHeight:       DefaultMaxHeight,
		RotateLandscape: true,
	}
}

// pagePlan describes how one page is rasterized.
type pagePlan struct {
	// DPI is the resolution to render the unrotated page at.
	DPI float64
	// Rotate is set for landscape pages that are turned 90° clockwise.
	Rotate bool
	// Width and Height are the final raster dimensions.
	Width, Height int
}

// Scale returns the pixels per point of the plan.
func (p pagePlan) Scale() float64 {
	return p.DPI / pointsPerInch
}

// planPage computes the raster size for a page of w x h points.
func planPage(w, h float64, cfg RenderConfig) pagePlan {
	if w <= 0 || h <= 0 {
		return pagePlan{DPI: pointsPerInch, Width: 1, Height: 1}
	}

	rotate := cfg.RotateLandscape && w > h
	if rotate {
		w, h = h, w
	}

	scale := float64(cfg.TargetWidth) / w
	if cfg.MaxHeight > 0 && h*scale > float64(cfg.MaxHeight) {
		scale = float64(cfg.MaxHeight) / h
	}

	return pagePlan{
		DPI:    pointsPerInch * scale,
		Rotate: rotate,
		Width:  atLeastOne(math.Round(w * scale)),
		Height: atLeastOne(math.Round(h * scale)),
	}
}

// pageExtent recovers the size in points of an unrotated page from the
// integer bounds go-fitz reports and a raster rendered at scale.
//
// go-fitz truncates the bound coordinates, and MuPDF rounds the rendered box
// outwards, so each reading only gives an interval for the real extent. Page
// sizes in whole points are taken as they are when both readings agree with
// them. Otherwise the midpoint of each interval is used, which is accurate to
// a fraction of a pixel.
func pageExtent(bounds, rendered image.Rectangle, scale float64) (w, h float64) {
	if scale <= 0 {
		return float64(bounds.Dx()), float64(bounds.Dy())
	}

	wlo, whi := extentRange(bounds.Dx(), bounds.Min.X == 0, rendered.Dx(), scale)
	hlo, hhi := extentRange(bounds.Dy(), bounds.Min.Y == 0, rendered.Dy(), scale)
	if wlo == float64(bounds.Dx()) && hlo == float64(bounds.Dy()) {
		return wlo, hlo
	}
	return (wlo + whi) / 2, (hlo + hhi) / 2
}

// extentRange intersects the extents allowed by a truncated length in points
// and by a rendered length in pixels. With a zero origin the truncation only
// rounds down.
func extentRange(points int, zeroOrigin bool, pixels int, scale float64) (lo, hi float64) {
	lo, hi = float64(points-1), float64(points+1)
	if zeroOrigin {
		lo = float64(points)
	}

	lo = math.Max(lo, float64(pixels-1)/scale-extentSlack)
	hi = math.Min(hi, float64(pixels)/scale+extentSlack)
	if lo > hi {
		v := float64(pixels) / scale
		return v, v
	}
	return lo, hi
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
