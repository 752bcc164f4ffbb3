// Package compliance evaluates a planned application against product limits
// and weather and reports severity-ranked safety warnings.
package compliance

import (
	"fmt"
)

// Severity ranks warnings; higher values are more serious
type Severity int

const (
	Caution Severity = iota + 1
	Warn
	Critical
)

func (s Severity) String() string {
	switch s {
	case Critical:
		return "critical"
	case Warn:
		return "warning"
	case Caution:
		return "caution"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Warning is one triggered compliance check. The set of implementations is
// closed: ExcessiveRate, HighWind, HighTemperature, RestrictedUseProduct,
// NearWaterSource and PreHarvestInterval.
type Warning interface {
	Kind() string
	warning()
}

// ExcessiveRate fires when the applied rate exceeds the product maximum
type ExcessiveRate struct {
	Applied float64 `json:"applied_rate"` // L/ha
	Maximum float64 `json:"maximum_rate"` // L/ha
}

// HighWind fires when wind speed makes drift likely
type HighWind struct {
	Speed float64 `json:"wind_speed_kmh"`
}

// HighTemperature fires when heat reduces effectiveness
type HighTemperature struct {
	Temperature float64 `json:"temperature_c"`
}

// RestrictedUseProduct fires for products that require licensing
type RestrictedUseProduct struct{}

// NearWaterSource fires when the field lies inside a water buffer zone
type NearWaterSource struct {
	DistanceMeters float64 `json:"distance_m,omitempty"`
}

// PreHarvestInterval fires when the product has a withdrawal period
type PreHarvestInterval struct {
	Days int `json:"days"`
}

func (ExcessiveRate) Kind() string        { return "excessive_rate" }
func (HighWind) Kind() string             { return "high_wind" }
func (HighTemperature) Kind() string      { return "high_temperature" }
func (RestrictedUseProduct) Kind() string { return "restricted_use_product" }
func (NearWaterSource) Kind() string      { return "near_water_source" }
func (PreHarvestInterval) Kind() string   { return "pre_harvest_interval" }

func (ExcessiveRate) warning()        {}
func (HighWind) warning()             {}
func (HighTemperature) warning()      {}
func (RestrictedUseProduct) warning() {}
func (NearWaterSource) warning()      {}
func (PreHarvestInterval) warning()   {}

// SeverityOf returns the severity of a warning
func SeverityOf(w Warning) Severity {
	switch w.(type) {
	case ExcessiveRate, RestrictedUseProduct:
		return Critical
	case HighWind, NearWaterSource, PreHarvestInterval:
		return Warn
	case HighTemperature:
		return Caution
	default:
		return 0
	}
}

// Message renders the human-readable text for a warning
func Message(w Warning) string {
	switch v := w.(type) {
	case ExcessiveRate:
		return fmt.Sprintf("Application rate (%.2f L/ha) exceeds maximum recommended rate (%.2f L/ha)", v.Applied, v.Maximum)
	case HighWind:
		return fmt.Sprintf("Wind speed (%.1f km/h) may cause drift. Consider postponing application.", v.Speed)
	case HighTemperature:
		return fmt.Sprintf("High temperature (%.1f°C) may reduce effectiveness and increase volatilization.", v.Temperature)
	case RestrictedUseProduct:
		return "This is a restricted use product. Ensure proper licensing and application procedures."
	case NearWaterSource:
		return "Buffer zones required near water sources. Check local regulations."
	case PreHarvestInterval:
		return fmt.Sprintf("Pre-harvest interval: %d days. Do not harvest before this period.", v.Days)
	default:
		return ""
	}
}

// Rendered is the presentation form of a warning
type Rendered struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Details  Warning  `json:"details,omitempty"`
}

// Render pairs a warning with its severity and message
func Render(w Warning) Rendered {
	return Rendered{
		Kind:     w.Kind(),
		Severity: SeverityOf(w),
		Message:  Message(w),
		Details:  w,
	}
}

