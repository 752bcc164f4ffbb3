package analyzer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/greenscout/scout-engine/pkg/types"
)

// createTestImage paints the left greenFraction of the image green and the rest soil brown
func createTestImage(width, height int, greenFraction float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	split := int(float64(width) * greenFraction)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < split {
				img.Set(x, y, color.NRGBA{30, 160, 40, 255})
			} else {
				img.Set(x, y, color.NRGBA{110, 85, 50, 255})
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	a := New()
	if a == nil {
		t.Fatal("New() returned nil")
	}

	if a.config.Quality.MinimumPixels != 1024*1024 {
		t.Errorf("Expected minimum pixels %d, got %d", 1024*1024, a.config.Quality.MinimumPixels)
	}

	if a.config.Classifier.Sensitivity != 1.0 {
		t.Errorf("Expected sensitivity 1.0, got %f", a.config.Classifier.Sensitivity)
	}
}

func TestNewWithConfigFillsQualityDefaults(t *testing.T) {
	a := NewWithConfig(Config{})
	if a.config.Quality != DefaultQualityThresholds() {
		t.Errorf("Expected default quality thresholds, got %+v", a.config.Quality)
	}
}

func TestGetImageInfo(t *testing.T) {
	a := New()
	info := a.GetImageInfo(createTestImage(400, 300, 0))

	if info.Width != 400 || info.Height != 300 {
		t.Errorf("Expected 400x300, got %dx%d", info.Width, info.Height)
	}

	expectedRatio := float64(400) / float64(300)
	if info.AspectRatio != expectedRatio {
		t.Errorf("Expected aspect ratio %f, got %f", expectedRatio, info.AspectRatio)
	}

	if info.Pixels != 120000 {
		t.Errorf("Expected 120000 pixels, got %d", info.Pixels)
	}
}

func TestAnalyze(t *testing.T) {
	a := New()
	img := createTestImage(200, 100, 0.25)

	res, err := a.Analyze(context.Background(), Request{Image: img, Orientation: OrientationUp})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.Coverage.TotalPixelCount != 20000 {
		t.Errorf("Expected 20000 total pixels, got %d", res.Coverage.TotalPixelCount)
	}
	if res.Coverage.GreenPixelCount != 5000 {
		t.Errorf("Expected 5000 green pixels, got %d", res.Coverage.GreenPixelCount)
	}
	if math.Abs(res.Coverage.GreenPercentage-25) > 1e-9 {
		t.Errorf("Expected 25%% coverage, got %f", res.Coverage.GreenPercentage)
	}
	if res.Coverage.RawPercentage != res.Coverage.GreenPercentage {
		t.Errorf("Raw %f and clamped %f should match inside [0,100]",
			res.Coverage.RawPercentage, res.Coverage.GreenPercentage)
	}
	if res.Coverage.ProcessingDurationSeconds < 0 {
		t.Errorf("Negative processing duration %f", res.Coverage.ProcessingDurationSeconds)
	}
	if res.Coverage.SensitivityUsed != 1.0 {
		t.Errorf("Expected sensitivity 1.0, got %f", res.Coverage.SensitivityUsed)
	}
	if res.Masked.Width != 200 || res.Transparent.Height != 100 {
		t.Errorf("Mask dimensions do not match input: %dx%d", res.Masked.Width, res.Transparent.Height)
	}
	if res.Quality.Tier != QualityRejected {
		t.Errorf("Expected rejected quality tier for a tiny image, got %s", res.Quality.Tier)
	}
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	a := New()
	img := createTestImage(20, 20, 0.5)
	before := append([]uint8(nil), img.Pix...)

	if _, err := a.Analyze(context.Background(), Request{Image: img}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	for i := range before {
		if before[i] != img.Pix[i] {
			t.Fatalf("Input pixel byte %d changed", i)
		}
	}
}

func TestAnalyzeFreshResults(t *testing.T) {
	a := New()
	img := createTestImage(30, 30, 0.5)

	first, err := a.Analyze(context.Background(), Request{Image: img})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := a.Analyze(context.Background(), Request{Image: img})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if first == second || first.Masked == second.Masked {
		t.Error("Each analysis should produce a fresh result")
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	a := New()

	if _, err := a.Analyze(context.Background(), Request{}); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil image, got %v", err)
	}

	empty := image.NewNRGBA(image.Rect(0, 0, 0, 10))
	if _, err := a.Analyze(context.Background(), Request{Image: empty}); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty image, got %v", err)
	}
}

func TestAnalyzeRotatedInput(t *testing.T) {
	a := New()
	img := createTestImage(40, 10, 0.5)

	res, err := a.Analyze(context.Background(), Request{Image: img, Orientation: OrientationRight})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.Info.Width != 10 || res.Info.Height != 40 {
		t.Errorf("Expected oriented size 10x40, got %dx%d", res.Info.Width, res.Info.Height)
	}
	if res.Coverage.GreenPixelCount != 200 {
		t.Errorf("Expected 200 green pixels, got %d", res.Coverage.GreenPixelCount)
	}
}

func TestNormalizeOrientation(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, red)

	tests := []struct {
		name        string
		orientation Orientation
		w, h        int
		x, y        int
	}{
		{"up", OrientationUp, 3, 2, 0, 0},
		{"unknown", OrientationUnknown, 3, 2, 0, 0},
		{"up mirrored", OrientationUpMirrored, 3, 2, 2, 0},
		{"down", OrientationDown, 3, 2, 2, 1},
		{"down mirrored", OrientationDownMirror, 3, 2, 0, 1},
		{"left mirrored", OrientationLeftMirror, 2, 3, 0, 0},
		{"right", OrientationRight, 2, 3, 1, 0},
		{"right mirrored", OrientationRightMirror, 2, 3, 1, 2},
		{"left", OrientationLeft, 2, 3, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NormalizeOrientation(img, tt.orientation)
			b := out.Bounds()
			if b.Dx() != tt.w || b.Dy() != tt.h {
				t.Fatalf("Expected %dx%d, got %dx%d", tt.w, tt.h, b.Dx(), b.Dy())
			}
			r, _, _, _ := out.At(b.Min.X+tt.x, b.Min.Y+tt.y).RGBA()
			if r != 0xffff {
				t.Errorf("Expected marker pixel at (%d,%d)", tt.x, tt.y)
			}
			if tt.orientation.SwapsDimensions() != (tt.w == 2) {
				t.Errorf("SwapsDimensions() = %v for %s", tt.orientation.SwapsDimensions(), tt.name)
			}
		})
	}

	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0xffff {
		t.Error("NormalizeOrientation modified its input")
	}
}

func BenchmarkAnalyze(b *testing.B) {
	a := New()
	img := createTestImage(1920, 1080, 0.4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Analyze(context.Background(), Request{Image: img})
	}
}
