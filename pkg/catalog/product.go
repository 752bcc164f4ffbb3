// Package catalog holds the chemical product catalog: immutable product
// records keyed by id, a persistent store and change notifications.
package catalog

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/greenscout/scout-engine/pkg/types"
)

// ProductType classifies a chemical product
type ProductType string

const (
	Herbicide       ProductType = "herbicide"
	Insecticide     ProductType = "insecticide"
	Fungicide       ProductType = "fungicide"
	Fertilizer      ProductType = "fertilizer"
	GrowthRegulator ProductType = "growth_regulator"
)

// ProductTypes returns all product types
func ProductTypes() []ProductType {
	return []ProductType{Herbicide, Insecticide, Fungicide, Fertilizer, GrowthRegulator}
}

// ParseProductType accepts a product type name case-insensitively
func ParseProductType(s string) (ProductType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, " ", "_")
	for _, t := range ProductTypes() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown product type %q", types.ErrInvalidInput, s)
}

// Default application rates for new products, L/ha
const (
	DefaultMinRate = 1.0
	DefaultMaxRate = 4.0
)

// Product is a chemical product definition. Values are copied in and out of
// the catalog; change one by building a new value and calling Update.
type Product struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Manufacturer     string      `json:"manufacturer"`
	ActiveIngredient string      `json:"active_ingredient"`
	Concentration    float64     `json:"concentration"` // %
	Type             ProductType `json:"product_type"`
	MinRate          float64     `json:"min_application_rate"` // L/ha
	MaxRate          float64     `json:"max_application_rate"` // L/ha
	CompatibleWith   []string    `json:"compatible_with,omitempty"`
	RestrictedUse    bool        `json:"restricted_use"`
	WithdrawalPeriod int         `json:"withdrawal_period"` // days
	CostPerLiter     *float64    `json:"cost_per_liter,omitempty"`
}

// NewProduct returns a product with a fresh id and default rates
func NewProduct(name string, productType ProductType, concentration float64) Product {
	return Product{
		ID:            uuid.NewString(),
		Name:          name,
		Concentration: concentration,
		Type:          productType,
		MinRate:       DefaultMinRate,
		MaxRate:       DefaultMaxRate,
	}
}

// Validate rejects product definitions that must not be persisted
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", types.ErrInvalidInput)
	}
	if p.ID != "" {
		if _, err := uuid.Parse(p.ID); err != nil {
			return fmt.Errorf("%w: product id %q is not a uuid", types.ErrInvalidInput, p.ID)
		}
	}
	if !(p.Concentration > 0) || math.IsInf(p.Concentration, 0) {
		return fmt.Errorf("%w: concentration must be positive, got %v", types.ErrInvalidInput, p.Concentration)
	}
	if p.Type != "" {
		if _, err := ParseProductType(string(p.Type)); err != nil {
			return err
		}
	}
	if !(p.MinRate >= 0) {
		return fmt.Errorf("%w: minimum rate must not be negative, got %v", types.ErrInvalidInput, p.MinRate)
	}
	if !(p.MaxRate >= p.MinRate) {
		return fmt.Errorf("%w: maximum rate %v is below minimum rate %v", types.ErrInvalidInput, p.MaxRate, p.MinRate)
	}
	if p.WithdrawalPeriod < 0 {
		return fmt.Errorf("%w: withdrawal period must not be negative, got %d", types.ErrInvalidInput, p.WithdrawalPeriod)
	}
	if p.CostPerLiter != nil && !(*p.CostPerLiter >= 0) {
		return fmt.Errorf("%w: cost per liter must not be negative, got %v", types.ErrInvalidInput, *p.CostPerLiter)
	}
	return nil
}

// WithCost returns a copy of p with the given price per litre
func (p Product) WithCost(costPerLiter float64) Product {
	p.CostPerLiter = &costPerLiter
	return p
}

// Clone returns a deep copy of p
func (p Product) Clone() Product {
	p.CompatibleWith = slices.Clone(p.CompatibleWith)
	if p.CostPerLiter != nil {
		c := *p.CostPerLiter
		p.CostPerLiter = &c
	}
	return p
}

// CostPerHectareRange returns the product cost per hectare at the minimum
// and maximum rate. ok is false when no price is set.
func (p Product) CostPerHectareRange() (low, high float64, ok bool) {
	if p.CostPerLiter == nil {
		return 0, 0, false
	}
	return *p.CostPerLiter * p.MinRate, *p.CostPerLiter * p.MaxRate, true
}

// TankCoverage returns how many hectares one tank of product covers at the
// maximum and minimum rate. A zero rate covers an unbounded area.
func (p Product) TankCoverage(tankLiters float64) (low, high float64) {
	return tankLiters / p.MaxRate, tankLiters / p.MinRate
}

// Compatible reports whether two products may be tank-mixed. Either product
// listing the other is enough.
func Compatible(a, b Product) bool {
	if a.ID == "" || b.ID == "" {
		return false
	}
	return slices.Contains(a.CompatibleWith, b.ID) || slices.Contains(b.CompatibleWith, a.ID)
}
