package analyzer

import "fmt"

// QualityTier is an advisory classification of input resolution
type QualityTier int

const (
	QualityRejected QualityTier = iota
	QualityLow
	QualityGood
	QualityExcellent
)

func (t QualityTier) String() string {
	switch t {
	case QualityRejected:
		return "rejected"
	case QualityLow:
		return "low"
	case QualityGood:
		return "good"
	case QualityExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (t QualityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *QualityTier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "rejected":
		*t = QualityRejected
	case "low":
		*t = QualityLow
	case "good":
		*t = QualityGood
	case "excellent":
		*t = QualityExcellent
	default:
		return fmt.Errorf("unknown quality tier %q", text)
	}
	return nil
}

// QualityThresholds are pixel counts separating the quality tiers
type QualityThresholds struct {
	MinimumPixels     int `json:"minimum_pixels" yaml:"minimum_pixels"`
	WarningPixels     int `json:"warning_pixels" yaml:"warning_pixels"`
	RecommendedPixels int `json:"recommended_pixels" yaml:"recommended_pixels"`
}

// DefaultQualityThresholds returns 1024², 2048² and 4096² pixel thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinimumPixels:     1024 * 1024,
		WarningPixels:     2048 * 2048,
		RecommendedPixels: 4096 * 4096,
	}
}

// QualityAssessment is attached to every analysis result. It never blocks the
// analysis; callers decide whether to let the user proceed.
type QualityAssessment struct {
	Tier       QualityTier `json:"tier"`
	Pixels     int         `json:"pixels"`
	Score      float64     `json:"score"`
	Acceptable bool        `json:"acceptable"`
	Message    string      `json:"message,omitempty"`
}

// AssessQuality classifies a resolution into a quality tier
func (a *CoverageAnalyzer) AssessQuality(width, height int) QualityAssessment {
	return AssessQuality(a.config.Quality, width, height)
}

// AssessQuality classifies a resolution using the given thresholds
func AssessQuality(th QualityThresholds, width, height int) QualityAssessment {
	pixels := width * height
	res := FormatResolution(pixels)

	switch {
	case pixels < th.MinimumPixels:
		return QualityAssessment{
			Tier:   QualityRejected,
			Pixels: pixels,
			Score:  0.4,
			Message: fmt.Sprintf("Image resolution is too low (%s). Please use a higher resolution image (minimum 1024x1024) for accurate analysis.",
				res),
		}
	case pixels < th.WarningPixels:
		return QualityAssessment{
			Tier:       QualityLow,
			Pixels:     pixels,
			Score:      0.6,
			Acceptable: true,
			Message: fmt.Sprintf("Warning: Low image resolution (%s) may reduce accuracy. For best results, use images with at least 2048x2048 resolution.",
				res),
		}
	case pixels < th.RecommendedPixels:
		return QualityAssessment{
			Tier:       QualityGood,
			Pixels:     pixels,
			Score:      0.8,
			Acceptable: true,
			Message: fmt.Sprintf("Good image quality (%s). For optimal results, consider using 4K resolution (4096x4096) or higher.",
				res),
		}
	default:
		return QualityAssessment{
			Tier:       QualityExcellent,
			Pixels:     pixels,
			Score:      1.0,
			Acceptable: true,
		}
	}
}

// FormatResolution renders a pixel count as kilopixels or megapixels
func FormatResolution(pixels int) string {
	megapixels := float64(pixels) / 1_000_000.0
	if megapixels < 1 {
		return fmt.Sprintf("%dK pixels", pixels/1000)
	}
	return fmt.Sprintf("%.1f megapixels", megapixels)
}
