package types

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidInput marks caller errors that are rejected before any computation runs.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResourceFailure marks decode or allocation failures that abort an analysis.
	ErrResourceFailure = errors.New("resource failure")
)

// BytesPerPixel is the sample width of a PixelBuffer (8-bit RGBA, non-premultiplied).
const BytesPerPixel = 4

// PixelBuffer is a 2-D grid of 8-bit RGBA samples. A buffer is written once by the
// stage that allocates it and treated as read-only afterwards.
type PixelBuffer struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Stride int     `json:"stride"`
	Pix    []uint8 `json:"-"`
}

// NewPixelBuffer allocates a zeroed buffer of the given dimensions
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	stride := width * BytesPerPixel
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]uint8, stride*height),
	}
}

// PixelBufferFromNRGBA copies an NRGBA image into a new buffer
func PixelBufferFromNRGBA(img *image.NRGBA) *PixelBuffer {
	b := img.Bounds()
	buf := NewPixelBuffer(b.Dx(), b.Dy())
	rowLen := buf.Width * BytesPerPixel
	for y := 0; y < buf.Height; y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf.Pix[y*buf.Stride:y*buf.Stride+rowLen], img.Pix[src:src+rowLen])
	}
	return buf
}

// Validate checks that the declared geometry fits the sample slice
func (p *PixelBuffer) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil pixel buffer", ErrInvalidInput)
	}
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidInput, p.Width, p.Height)
	}
	if p.Stride < p.Width*BytesPerPixel {
		return fmt.Errorf("%w: stride %d too small for width %d", ErrResourceFailure, p.Stride, p.Width)
	}
	if p.Height > 0 && len(p.Pix) < (p.Height-1)*p.Stride+p.Width*BytesPerPixel {
		return fmt.Errorf("%w: pixel data truncated (%d bytes for %dx%d)", ErrResourceFailure, len(p.Pix), p.Width, p.Height)
	}
	return nil
}

// PixelCount returns width*height
func (p *PixelBuffer) PixelCount() int {
	return p.Width * p.Height
}

// Offset returns the index of the first sample of pixel (x, y)
func (p *PixelBuffer) Offset(x, y int) int {
	return y*p.Stride + x*BytesPerPixel
}

// Image exposes the buffer as an *image.NRGBA sharing the same samples.
// The returned image must not be modified.
func (p *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    p.Pix,
		Stride: p.Stride,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// CoverageResult is the outcome of one coverage analysis run
type CoverageResult struct {
	GreenPercentage           float64 `json:"green_percentage"`
	TotalPixelCount           int     `json:"total_pixel_count"`
	GreenPixelCount           int     `json:"green_pixel_count"`
	ProcessingDurationSeconds float64 `json:"processing_duration_seconds"`
	RawPercentage             float64 `json:"raw_percentage"`
	SensitivityUsed           float64 `json:"sensitivity_used"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// WeatherConditions describes conditions at the time of application
type WeatherConditions struct {
	Temperature   float64 `json:"temperature_c"`
	WindSpeed     float64 `json:"wind_speed_kmh"`
	Humidity      float64 `json:"humidity_pct"`
	Precipitation float64 `json:"precipitation_mm"`
}

// Location is a WGS84 coordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
