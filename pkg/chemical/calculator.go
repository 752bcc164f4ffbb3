package chemical

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenscout/scout-engine/pkg/types"
)

// Standard spray volumes per hectare
const (
	SprayVolumeLow      = 50.0  // L/ha
	SprayVolumeStandard = 100.0 // L/ha
	SprayVolumeHigh     = 200.0 // L/ha
)

// Common sprayer tank sizes
const (
	TankSmall    = 500.0  // L
	TankStandard = 1000.0 // L
	TankLarge    = 2000.0 // L
)

// AcresToHectares converts acres to hectares
const AcresToHectares = 0.404686

// AreaUnit is the unit a field area is entered in
type AreaUnit string

const (
	Hectares AreaUnit = "hectares"
	Acres    AreaUnit = "acres"
)

// ParseAreaUnit accepts "ha", "hectares", "ac" or "acres"
func ParseAreaUnit(s string) (AreaUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ha", "hectare", "hectares":
		return Hectares, nil
	case "ac", "acre", "acres":
		return Acres, nil
	}
	return "", fmt.Errorf("%w: unknown area unit %q", types.ErrInvalidInput, s)
}

// ToHectaresMultiplier returns the factor converting this unit to hectares
func (u AreaUnit) ToHectaresMultiplier() float64 {
	switch u {
	case Acres:
		return AcresToHectares
	case Hectares:
		return 1.0
	default:
		return 0
	}
}

// FieldData is the user-entered description of the field being treated
type FieldData struct {
	Area                 float64   `json:"area"`
	AreaUnit             AreaUnit  `json:"area_unit"`
	GreenCoveragePercent float64   `json:"green_coverage_percent"`
	CropType             CropType  `json:"crop_type"`
	ApplicationDate      time.Time `json:"application_date"`
}

// Validate rejects field data that cannot be used for a calculation
func (f FieldData) Validate() error {
	if !(f.Area > 0) || math.IsInf(f.Area, 0) {
		return fmt.Errorf("%w: field area must be positive, got %v", types.ErrInvalidInput, f.Area)
	}
	if f.AreaUnit.ToHectaresMultiplier() == 0 {
		return fmt.Errorf("%w: unknown area unit %q", types.ErrInvalidInput, f.AreaUnit)
	}
	if !(f.GreenCoveragePercent >= 0 && f.GreenCoveragePercent <= 100) {
		return fmt.Errorf("%w: green coverage must be within 0-100, got %v", types.ErrInvalidInput, f.GreenCoveragePercent)
	}
	if !f.CropType.Valid() {
		return fmt.Errorf("%w: unknown crop type %q", types.ErrInvalidInput, f.CropType)
	}
	return nil
}

// AreaHectares returns the field area in hectares
func (f FieldData) AreaHectares() float64 {
	return f.Area * f.AreaUnit.ToHectaresMultiplier()
}

// Params are the product and sprayer settings for a calculation
type Params struct {
	Concentration    float64 `json:"concentration"`       // % active ingredient
	SprayVolumePerHa float64 `json:"spray_volume_per_ha"` // L/ha
	TankSize         float64 `json:"tank_size"`           // L
}

// DefaultParams returns 100% concentration, standard spray volume and tank
func DefaultParams() Params {
	return Params{
		Concentration:    100,
		SprayVolumePerHa: SprayVolumeStandard,
		TankSize:         TankStandard,
	}
}

// Validate rejects non-positive or non-finite settings
func (p Params) Validate() error {
	if !(p.Concentration > 0) || math.IsInf(p.Concentration, 0) {
		return fmt.Errorf("%w: concentration must be positive and finite, got %v", types.ErrInvalidInput, p.Concentration)
	}
	if !(p.SprayVolumePerHa > 0) || math.IsInf(p.SprayVolumePerHa, 0) {
		return fmt.Errorf("%w: spray volume must be positive and finite, got %v", types.ErrInvalidInput, p.SprayVolumePerHa)
	}
	if !(p.TankSize > 0) || math.IsInf(p.TankSize, 0) {
		return fmt.Errorf("%w: tank size must be positive and finite, got %v", types.ErrInvalidInput, p.TankSize)
	}
	return nil
}

// Result is the chemical requirement for one field
type Result struct {
	ChemicalVolume   float64      `json:"chemical_volume"`    // L
	WaterVolume      float64      `json:"water_volume"`       // L
	TotalSprayVolume float64      `json:"total_spray_volume"` // L
	TankLoads        int          `json:"tank_loads"`
	ApplicationRate  float64      `json:"application_rate"` // L/ha
	DensityLevel     DensityLevel `json:"density_level"`
	AreaHectares     float64      `json:"area_hectares"`
	// WaterShortfall is how far the chemical volume exceeds the total spray
	// volume. When positive, water volume is floored at zero and
	// ChemicalVolume+WaterVolume no longer equals TotalSprayVolume.
	WaterShortfall float64 `json:"water_shortfall,omitempty"`
}

// VolumesDiverge reports whether water was floored at zero
func (r Result) VolumesDiverge() bool {
	return r.WaterShortfall > 0
}

// CalculatorConfig holds configuration for the calculator
type CalculatorConfig struct {
	// StrictVolumes rejects rate/volume combinations where the chemical alone
	// exceeds the spray volume instead of flooring water at zero.
	StrictVolumes bool
}

// Calculator computes chemical requirements and mixing plans
type Calculator struct {
	config CalculatorConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewCalculator creates a Calculator with default configuration
func NewCalculator() *Calculator {
	return NewCalculatorWithConfig(CalculatorConfig{})
}

// NewCalculatorWithConfig creates a Calculator with custom configuration
func NewCalculatorWithConfig(config CalculatorConfig) *Calculator {
	return &Calculator{
		config: config,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// WithLogger sets the logger used by the calculator
func (c *Calculator) WithLogger(logger zerolog.Logger) *Calculator {
	c.logger = logger.With().Str("component", "calculator").Logger()
	return c
}

// Compute derives chemical volume, water volume and tank loads for a field
func (c *Calculator) Compute(field FieldData, p Params) (Result, error) {
	if err := field.Validate(); err != nil {
		return Result{}, err
	}
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	areaHa := field.AreaHectares()
	density := DensityFromCoverage(field.GreenCoveragePercent)

	rate, err := AdjustedRate(field.CropType, density, p.Concentration)
	if err != nil {
		return Result{}, err
	}

	chemical := rate * areaHa
	total := p.SprayVolumePerHa * areaHa
	if math.IsInf(chemical, 0) || math.IsInf(total, 0) {
		return Result{}, fmt.Errorf("%w: volumes overflow for %v ha", types.ErrInvalidInput, areaHa)
	}
	loads := math.Ceil(total / p.TankSize)
	if !(loads < float64(math.MaxInt32)) {
		return Result{}, fmt.Errorf("%w: %.0f tank loads of %v L is out of range", types.ErrInvalidInput, loads, p.TankSize)
	}
	shortfall := chemical - total

	res := Result{
		ChemicalVolume:   chemical,
		WaterVolume:      math.Max(0, total-chemical),
		TotalSprayVolume: total,
		TankLoads:        int(loads),
		ApplicationRate:  rate,
		DensityLevel:     density,
		AreaHectares:     areaHa,
	}
	if shortfall > 0 {
		if c.config.StrictVolumes {
			return Result{}, fmt.Errorf("%w: chemical volume %.2f L exceeds spray volume %.2f L", types.ErrInvalidInput, chemical, total)
		}
		res.WaterShortfall = shortfall
		c.logger.Warn().
			Float64("chemical_l", chemical).
			Float64("spray_l", total).
			Msg("chemical volume exceeds spray volume; water floored at zero")
	}

	c.logger.Debug().
		Float64("area_ha", areaHa).
		Str("density", density.String()).
		Float64("rate_l_ha", rate).
		Int("tank_loads", res.TankLoads).
		Msg("chemical requirement computed")

	return res, nil
}

// EstimateCost returns the product cost for a chemical volume
func EstimateCost(volumeLiters, costPerLiter float64) float64 {
	return volumeLiters * costPerLiter
}
