// Package chemical derives application rates, spray volumes, tank loads and
// mixing instructions from field data and coverage estimates.
package chemical

import (
	"fmt"
	"strings"

	"github.com/greenscout/scout-engine/pkg/types"
)

// CropType identifies the crop grown in a field
type CropType string

const (
	CropPasture CropType = "pasture"
	CropWheat   CropType = "wheat"
	CropCorn    CropType = "corn"
	CropBarley  CropType = "barley"
	CropCanola  CropType = "canola"
	CropOther   CropType = "other"
)

// baseRates holds the base application rate per crop in L/ha
var baseRates = map[CropType]float64{
	CropPasture: 1.5,
	CropWheat:   2.0,
	CropCorn:    2.5,
	CropBarley:  1.8,
	CropCanola:  2.2,
	CropOther:   2.0,
}

// CropTypes returns all known crop types
func CropTypes() []CropType {
	return []CropType{CropPasture, CropWheat, CropCorn, CropBarley, CropCanola, CropOther}
}

// ParseCropType accepts a crop name case-insensitively ("maize" is an alias for corn)
func ParseCropType(s string) (CropType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "maize", "corn/maize":
		return CropCorn, nil
	}
	c := CropType(name)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown crop type %q", types.ErrInvalidInput, s)
	}
	return c, nil
}

// Valid reports whether c is a known crop
func (c CropType) Valid() bool {
	_, ok := baseRates[c]
	return ok
}

// Label returns the display name of the crop
func (c CropType) Label() string {
	switch c {
	case CropCorn:
		return "Corn/Maize"
	case "":
		return ""
	default:
		return strings.ToUpper(string(c[:1])) + string(c[1:])
	}
}

// BaseRate returns the base application rate in L/ha
func (c CropType) BaseRate() float64 {
	return baseRates[c]
}

// DensityLevel buckets green coverage into weed pressure classes
type DensityLevel int

const (
	DensityLight DensityLevel = iota
	DensityMedium
	DensityHeavy
)

// DensityFromCoverage maps a green coverage percentage to a density level:
// below 30 is light, below 70 is medium, anything else heavy.
func DensityFromCoverage(percent float64) DensityLevel {
	switch {
	case percent < 30:
		return DensityLight
	case percent < 70:
		return DensityMedium
	default:
		return DensityHeavy
	}
}

// Multiplier returns the rate multiplier for the density level
func (d DensityLevel) Multiplier() float64 {
	switch d {
	case DensityLight:
		return 0.7
	case DensityHeavy:
		return 1.3
	default:
		return 1.0
	}
}

func (d DensityLevel) String() string {
	switch d {
	case DensityLight:
		return "light"
	case DensityMedium:
		return "medium"
	case DensityHeavy:
		return "heavy"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (d DensityLevel) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *DensityLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "light":
		*d = DensityLight
	case "medium":
		*d = DensityMedium
	case "heavy":
		*d = DensityHeavy
	default:
		return fmt.Errorf("unknown density level %q", text)
	}
	return nil
}

// AdjustedRate returns base rate × density multiplier × (100 / concentration) in L/ha.
// Concentration is the active ingredient percentage and must be positive.
func AdjustedRate(crop CropType, density DensityLevel, concentration float64) (float64, error) {
	if !crop.Valid() {
		return 0, fmt.Errorf("%w: unknown crop type %q", types.ErrInvalidInput, crop)
	}
	if !(concentration > 0) {
		return 0, fmt.Errorf("%w: concentration must be positive, got %v", types.ErrInvalidInput, concentration)
	}
	return crop.BaseRate() * density.Multiplier() * (100.0 / concentration), nil
}
