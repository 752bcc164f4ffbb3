// Package comparison renders the before/after views of an analysis: a
// slider composite of mask over photo and a zoomed viewport.
package comparison

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/greenscout/scout-engine/pkg/types"
)

// Zoom limits
const (
	MinZoom = 1.0
	MaxZoom = 5.0
)

// Options control how the slider composite is drawn
type Options struct {
	// Opacity of the overlay in [0,1]
	Opacity      float64
	DividerWidth int
	DividerColor color.NRGBA
}

// DefaultOptions returns an opaque overlay with a 2px white divider
func DefaultOptions() Options {
	return Options{
		Opacity:      1.0,
		DividerWidth: 2,
		DividerColor: color.NRGBA{255, 255, 255, 255},
	}
}

// ClampSplit limits a slider position to [0,1]. NaN maps to 0.5.
func ClampSplit(split float64) float64 {
	if math.IsNaN(split) {
		return 0.5
	}
	return clamp(split, 0, 1)
}

// ClampZoom limits a zoom scale to [MinZoom, MaxZoom]
func ClampZoom(scale float64) float64 {
	if math.IsNaN(scale) {
		return MinZoom
	}
	return clamp(scale, MinZoom, MaxZoom)
}

// Compose draws overlay over original left of the split position and the
// untouched original to the right. The overlay is scaled to the original's
// size when they differ.
func Compose(original, overlay image.Image, split float64, opts Options) (*image.NRGBA, error) {
	if original == nil || overlay == nil {
		return nil, fmt.Errorf("%w: original and overlay images are required", types.ErrInvalidInput)
	}
	dst := imaging.Clone(original)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty original image", types.ErrInvalidInput)
	}

	top := imaging.Clone(overlay)
	if top.Bounds().Dx() != w || top.Bounds().Dy() != h {
		top = imaging.Resize(top, w, h, imaging.NearestNeighbor)
	}

	splitX := int(math.Round(ClampSplit(split) * float64(w)))
	if splitX > 0 {
		left := imaging.Crop(top, image.Rect(0, 0, splitX, h))
		dst = imaging.Overlay(dst, left, image.Pt(0, 0), clamp(opts.Opacity, 0, 1))
	}

	if opts.DividerWidth > 0 && splitX > 0 && splitX < w {
		x0 := splitX - opts.DividerWidth/2
		for s := 0; s < opts.DividerWidth; s++ {
			drawVLine(dst, x0+s, 0, h, opts.DividerColor)
		}
	}
	return dst, nil
}

// ComposeMask is Compose with a segmentation mask as the overlay
func ComposeMask(original image.Image, mask *types.PixelBuffer, split float64, opts Options) (*image.NRGBA, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	return Compose(original, mask.Image(), split, opts)
}

// Viewport returns the normalized box visible at the given zoom scale
// centred on (cx, cy). The centre is moved as needed to keep the box inside
// the image.
func Viewport(scale, cx, cy float64) types.Box {
	scale = ClampZoom(scale)
	size := 1.0 / scale

	if math.IsNaN(cx) {
		cx = 0.5
	}
	if math.IsNaN(cy) {
		cy = 0.5
	}

	return types.Box{
		X: clamp(cx-size/2, 0, 1-size),
		Y: clamp(cy-size/2, 0, 1-size),
		W: size,
		H: size,
	}
}

// Zoom crops img to the viewport for scale and centre and resizes the crop
// back to the full image size
func Zoom(img image.Image, scale, cx, cy float64) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: image is required", types.ErrInvalidInput)
	}
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", types.ErrInvalidInput)
	}

	box := Viewport(scale, cx, cy)
	if box.W >= 1 {
		return src, nil
	}

	x0, y0, x1, y1 := boxToPixels(box, w, h)
	cropped := imaging.Crop(src, image.Rect(x0, y0, x1, y1))
	return imaging.Resize(cropped, w, h, imaging.Lanczos), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boxToPixels(box types.Box, w, h int) (int, int, int, int) {
	x0 := int(clamp(box.X, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(box.Y, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp(box.X+box.W, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp(box.Y+box.H, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
