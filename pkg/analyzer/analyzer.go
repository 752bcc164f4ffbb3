// Package analyzer runs the vegetation coverage pipeline: orientation
// normalization, pixel conversion, segmentation and percentage computation.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/greenscout/scout-engine/pkg/types"
	"github.com/greenscout/scout-engine/pkg/vegetation"
)

// CoverageAnalyzer estimates green coverage of field photographs
type CoverageAnalyzer struct {
	config    Config
	segmenter *vegetation.Segmenter
	logger    zerolog.Logger
}

// Config holds configuration for the coverage analyzer
type Config struct {
	Classifier   vegetation.ClassifierConfig
	Workers      int
	RowsPerShard int
	Quality      QualityThresholds
}

// DefaultConfig returns the standard analyzer configuration
func DefaultConfig() Config {
	return Config{
		Classifier: vegetation.DefaultClassifierConfig(),
		Quality:    DefaultQualityThresholds(),
	}
}

// New creates a new CoverageAnalyzer with default configuration
func New() *CoverageAnalyzer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new CoverageAnalyzer with custom configuration
func NewWithConfig(config Config) *CoverageAnalyzer {
	if config.Quality == (QualityThresholds{}) {
		config.Quality = DefaultQualityThresholds()
	}
	classifier := vegetation.NewClassifierWithConfig(config.Classifier)
	return &CoverageAnalyzer{
		config: config,
		segmenter: vegetation.NewSegmenterWithConfig(classifier, vegetation.SegmenterConfig{
			Workers:      config.Workers,
			RowsPerShard: config.RowsPerShard,
		}),
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger for the analyzer and its segmenter
func (a *CoverageAnalyzer) WithLogger(logger zerolog.Logger) *CoverageAnalyzer {
	a.logger = logger.With().Str("component", "analyzer").Logger()
	a.segmenter.WithLogger(a.logger)
	return a
}

// Request is one image submitted for analysis. Orientation comes from the
// acquisition side (for example the EXIF orientation tag of the source file).
type Request struct {
	Image       image.Image
	Orientation Orientation
}

// Result bundles the coverage figures with the two visualization masks
type Result struct {
	Coverage    types.CoverageResult `json:"coverage"`
	Quality     QualityAssessment    `json:"quality"`
	Info        ImageInfo            `json:"info"`
	Masked      *types.PixelBuffer   `json:"-"`
	Transparent *types.PixelBuffer   `json:"-"`
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Pixels      int     `json:"pixels"`
}

// GetImageInfo returns basic information about an image
func (a *CoverageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Pixels: width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// Analyze runs the full coverage pipeline. The input image is never modified and
// either a complete result or an error is returned, never a partial result.
func (a *CoverageAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("%w: no image supplied", types.ErrInvalidInput)
	}
	start := time.Now()

	oriented := NormalizeOrientation(req.Image, req.Orientation)

	info := a.GetImageInfo(oriented)
	if info.Pixels == 0 {
		return nil, fmt.Errorf("%w: image has no pixels (%dx%d)", types.ErrInvalidInput, info.Width, info.Height)
	}

	quality := a.AssessQuality(info.Width, info.Height)
	switch quality.Tier {
	case QualityRejected, QualityLow:
		a.logger.Warn().Str("tier", quality.Tier.String()).Int("pixels", info.Pixels).Msg(quality.Message)
	case QualityGood:
		a.logger.Info().Str("tier", quality.Tier.String()).Int("pixels", info.Pixels).Msg(quality.Message)
	}

	buf, err := toPixelBuffer(oriented)
	if err != nil {
		return nil, err
	}

	seg, err := a.segmenter.Segment(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("coverage analysis failed: %w", err)
	}

	raw := vegetation.Percentage(seg.GreenCount, seg.TotalCount)
	duration := time.Since(start)

	a.logger.Debug().
		Int("green", seg.GreenCount).
		Int("total", seg.TotalCount).
		Float64("raw_percentage", raw).
		Dur("duration", duration).
		Msg("analysis complete")

	return &Result{
		Coverage: types.CoverageResult{
			GreenPercentage:           clamp(raw, 0, 100),
			TotalPixelCount:           seg.TotalCount,
			GreenPixelCount:           seg.GreenCount,
			ProcessingDurationSeconds: duration.Seconds(),
			RawPercentage:             raw,
			SensitivityUsed:           a.config.Classifier.Sensitivity,
		},
		Quality:     quality,
		Info:        info,
		Masked:      seg.Opaque,
		Transparent: seg.Transparent,
	}, nil
}

// toPixelBuffer converts any image into a freshly allocated RGBA buffer
func toPixelBuffer(img image.Image) (*types.PixelBuffer, error) {
	nrgba := imaging.Clone(img)
	buf := &types.PixelBuffer{
		Width:  nrgba.Rect.Dx(),
		Height: nrgba.Rect.Dy(),
		Stride: nrgba.Stride,
		Pix:    nrgba.Pix,
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("cannot convert image: %w", err)
	}
	return buf, nil
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
