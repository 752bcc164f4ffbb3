// Package vegetation classifies pixels as vegetation and segments images into
// green/non-green masks.
package vegetation

import "math"

// Classifier decides whether an RGB sample is vegetation
type Classifier struct {
	config ClassifierConfig
}

// ClassifierConfig holds the thresholds used by the classifier
type ClassifierConfig struct {
	HueMin              float64 `json:"hue_min" yaml:"hue_min"` // degrees
	HueMax              float64 `json:"hue_max" yaml:"hue_max"` // degrees
	SaturationThreshold float64 `json:"saturation_threshold" yaml:"saturation_threshold"`
	ValueThreshold      float64 `json:"value_threshold" yaml:"value_threshold"`
	// ExcessThreshold is the minimum g - max(r, b) for green-dominant pixels
	ExcessThreshold float64 `json:"excess_threshold" yaml:"excess_threshold"`
	// Sensitivity is reported back in results
	Sensitivity float64 `json:"sensitivity" yaml:"sensitivity"`
}

// DefaultClassifierConfig returns the standard vegetation thresholds
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		HueMin:              60,
		HueMax:              180,
		SaturationThreshold: 0.15,
		ValueThreshold:      0.15,
		ExcessThreshold:     0.05,
		Sensitivity:         1.0,
	}
}

// NewClassifier creates a Classifier with default thresholds
func NewClassifier() *Classifier {
	return &Classifier{config: DefaultClassifierConfig()}
}

// NewClassifierWithConfig creates a Classifier with custom thresholds
func NewClassifierWithConfig(config ClassifierConfig) *Classifier {
	return &Classifier{config: config}
}

// Config returns the thresholds in use
func (c *Classifier) Config() ClassifierConfig {
	return c.config
}

// IsVegetation reports whether the sample (channels in [0,1]) is vegetation.
// A pixel qualifies if its hue falls in the green band with enough saturation
// and brightness, or if green strictly dominates both other channels by the
// excess threshold.
func (c *Classifier) IsVegetation(r, g, b float64) bool {
	h, s, v := RGBToHSV(r, g, b)

	hueInGreenRange := h >= c.config.HueMin && h <= c.config.HueMax
	if hueInGreenRange && s >= c.config.SaturationThreshold && v >= c.config.ValueThreshold {
		return true
	}

	greenDominant := g > r && g > b
	return greenDominant && g-math.Max(r, b) >= c.config.ExcessThreshold
}

// IsVegetation8 classifies an 8-bit sample
func (c *Classifier) IsVegetation8(r, g, b uint8) bool {
	return c.IsVegetation(float64(r)/255.0, float64(g)/255.0, float64(b)/255.0)
}

// RGBToHSV converts RGB in [0,1] to hue in degrees [0,360) and saturation/value in [0,1].
// Hue is 0 for achromatic input.
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	if delta > 0 {
		switch maxC {
		case r:
			h = math.Mod((g-b)/delta, 6)
		case g:
			h = (b-r)/delta + 2
		default:
			h = (r-g)/delta + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
	}

	if maxC != 0 {
		s = delta / maxC
	}
	v = maxC

	return h, s, v
}
