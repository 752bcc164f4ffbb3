package compliance

import (
	"encoding/json"
	"sort"

	"github.com/rs/zerolog"

	"github.com/greenscout/scout-engine/pkg/catalog"
	"github.com/greenscout/scout-engine/pkg/types"
)

// Thresholds are the limits the weather and location checks compare against
type Thresholds struct {
	MaxWindSpeed    float64 `json:"max_wind_speed_kmh" yaml:"max_wind_speed_kmh"`
	MaxTemperature  float64 `json:"max_temperature_c" yaml:"max_temperature_c"`
	WaterBufferZone float64 `json:"water_buffer_zone_m" yaml:"water_buffer_zone_m"`
}

// DefaultThresholds returns 15 km/h wind, 30 °C and a 30 m water buffer
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxWindSpeed:    15.0,
		MaxTemperature:  30.0,
		WaterBufferZone: 30.0,
	}
}

// WaterSourceLocator looks up the distance from a location to the nearest
// water body. known is false when no dataset covers the location.
type WaterSourceLocator interface {
	DistanceToWater(loc types.Location) (meters float64, known bool)
}

// NoWaterData is the locator used when no water-body dataset is configured.
// It never reports a distance, so the near-water check is never triggered
// and reports are marked WaterCheckUnavailable.
type NoWaterData struct{}

func (NoWaterData) DistanceToWater(types.Location) (float64, bool) {
	return 0, false
}

// WaterCheck is the outcome of the near-water check
type WaterCheck int

const (
	// WaterCheckUnavailable means no location or no water data; it is not a clearance
	WaterCheckUnavailable WaterCheck = iota
	WaterCheckClear
	WaterCheckNear
)

func (w WaterCheck) String() string {
	switch w {
	case WaterCheckClear:
		return "clear"
	case WaterCheckNear:
		return "near"
	default:
		return "unavailable"
	}
}

// MarshalText implements encoding.TextMarshaler
func (w WaterCheck) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// Evaluator runs the compliance checks. It holds no state between calls.
type Evaluator struct {
	thresholds Thresholds
	water      WaterSourceLocator
	logger     zerolog.Logger
}

// NewEvaluator creates an evaluator with default thresholds and no water data
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithConfig(DefaultThresholds(), nil)
}

// NewEvaluatorWithConfig creates an evaluator with custom thresholds and
// water locator. A nil locator means NoWaterData.
func NewEvaluatorWithConfig(thresholds Thresholds, water WaterSourceLocator) *Evaluator {
	if water == nil {
		water = NoWaterData{}
	}
	return &Evaluator{
		thresholds: thresholds,
		water:      water,
		logger:     zerolog.Nop(),
	}
}

// WithLogger sets the logger used by the evaluator
func (e *Evaluator) WithLogger(logger zerolog.Logger) *Evaluator {
	e.logger = logger.With().Str("component", "compliance").Logger()
	return e
}

// Thresholds returns the configured limits
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate checks an application of product at appliedRate (L/ha) under the
// given weather. Checks are independent; every triggered one is reported.
func (e *Evaluator) Evaluate(product catalog.Product, appliedRate float64, weather types.WeatherConditions, location *types.Location) Report {
	var warnings []Warning

	if appliedRate > product.MaxRate {
		warnings = append(warnings, ExcessiveRate{Applied: appliedRate, Maximum: product.MaxRate})
	}
	if weather.WindSpeed > e.thresholds.MaxWindSpeed {
		warnings = append(warnings, HighWind{Speed: weather.WindSpeed})
	}
	if weather.Temperature > e.thresholds.MaxTemperature {
		warnings = append(warnings, HighTemperature{Temperature: weather.Temperature})
	}
	if product.RestrictedUse {
		warnings = append(warnings, RestrictedUseProduct{})
	}

	check := WaterCheckUnavailable
	if location != nil {
		if d, known := e.water.DistanceToWater(*location); known {
			check = WaterCheckClear
			if d <= e.thresholds.WaterBufferZone {
				check = WaterCheckNear
				warnings = append(warnings, NearWaterSource{DistanceMeters: d})
			}
		}
	}

	if product.WithdrawalPeriod > 0 {
		warnings = append(warnings, PreHarvestInterval{Days: product.WithdrawalPeriod})
	}

	report := Report{Warnings: warnings, WaterCheck: check}
	e.logger.Debug().
		Str("product", product.Name).
		Float64("rate_l_ha", appliedRate).
		Int("warnings", len(warnings)).
		Str("water_check", check.String()).
		Bool("blocking", report.HasBlockingWarnings()).
		Msg("compliance evaluated")

	return report
}

// Report is the result of one evaluation
type Report struct {
	// Warnings in check order
	Warnings   []Warning
	WaterCheck WaterCheck
}

// Sorted returns the warnings ordered for display
func (r Report) Sorted() []Warning {
	return Sort(r.Warnings)
}

// HasBlockingWarnings reports whether any warning is critical
func (r Report) HasBlockingWarnings() bool {
	return HasBlockingWarnings(r.Warnings)
}

// Rendered returns the sorted warnings with severity and message
func (r Report) Rendered() []Rendered {
	sorted := r.Sorted()
	out := make([]Rendered, len(sorted))
	for i, w := range sorted {
		out[i] = Render(w)
	}
	return out
}

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Warnings   []Rendered `json:"warnings"`
		WaterCheck WaterCheck `json:"water_check"`
		Blocking   bool       `json:"blocking"`
	}{r.Rendered(), r.WaterCheck, r.HasBlockingWarnings()})
}

// Sort returns a copy of ws ordered by severity descending, then by message
func Sort(ws []Warning) []Warning {
	out := make([]Warning, len(ws))
	copy(out, ws)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := SeverityOf(out[i]), SeverityOf(out[j])
		if si != sj {
			return si > sj
		}
		return Message(out[i]) < Message(out[j])
	})
	return out
}

// HasBlockingWarnings reports whether any warning in ws is critical
func HasBlockingWarnings(ws []Warning) bool {
	for _, w := range ws {
		if SeverityOf(w) == Critical {
			return true
		}
	}
	return false
}
