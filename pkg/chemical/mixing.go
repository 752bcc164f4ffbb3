package chemical

import (
	"fmt"
	"strings"
	"time"
)

// DefaultProductName is used in instructions when no product is named
const DefaultProductName = "Herbicide"

// MixingInstruction is one step of a tank mixing plan
type MixingInstruction struct {
	Step        int      `json:"step"`
	Instruction string   `json:"instruction"`
	Amount      *float64 `json:"amount,omitempty"`
	Unit        string   `json:"unit,omitempty"`
}

func (m MixingInstruction) String() string {
	if m.Amount == nil {
		return fmt.Sprintf("%d. %s", m.Step, m.Instruction)
	}
	return fmt.Sprintf("%d. %s (%.2f %s)", m.Step, m.Instruction, *m.Amount, m.Unit)
}

func liters(v float64) *float64 {
	return &v
}

// GenerateMixingInstructions turns a calculation into numbered mixing steps.
// Product is split evenly across all tank loads, including a partial last load.
// A repeat step is appended only when more than one load is needed.
func GenerateMixingInstructions(result Result, tankSize float64, productName string) []MixingInstruction {
	if strings.TrimSpace(productName) == "" {
		productName = DefaultProductName
	}
	loads := result.TankLoads
	if loads < 1 {
		loads = 1
	}
	chemicalPerTank := result.ChemicalVolume / float64(loads)

	steps := []MixingInstruction{
		{Instruction: "Half-fill spray tank with clean water", Amount: liters(tankSize / 2), Unit: "L"},
		{Instruction: "Start agitation system"},
		{Instruction: fmt.Sprintf("Add %s to tank", productName), Amount: liters(chemicalPerTank), Unit: "L"},
		{Instruction: "Top up with water to total volume", Amount: liters(tankSize), Unit: "L"},
		{Instruction: "Continue agitation for 2-3 minutes before spraying"},
	}
	if result.TankLoads > 1 {
		steps = append(steps, MixingInstruction{
			Instruction: fmt.Sprintf("Repeat for %d tank loads total", result.TankLoads),
		})
	}

	for i := range steps {
		steps[i].Step = i + 1
	}
	return steps
}

// SprayParameters are the recommended boom settings for a density level
type SprayParameters struct {
	Pressure   string `json:"pressure"`
	NozzleType string `json:"nozzle_type"`
}

// SprayParametersFor returns pressure and nozzle recommendations
func SprayParametersFor(density DensityLevel) SprayParameters {
	switch density {
	case DensityLight:
		return SprayParameters{Pressure: "2.0-2.5 bar", NozzleType: "Flat fan 110°"}
	case DensityHeavy:
		return SprayParameters{Pressure: "3.0-3.5 bar", NozzleType: "Flat fan 80°"}
	default:
		return SprayParameters{Pressure: "2.5-3.0 bar", NozzleType: "Flat fan 110°"}
	}
}

// Report is the complete calculation handed to persistence and export
type Report struct {
	Field        FieldData           `json:"field"`
	ProductName  string              `json:"product_name"`
	Params       Params              `json:"params"`
	Result       Result              `json:"result"`
	Instructions []MixingInstruction `json:"instructions"`
	Spray        SprayParameters     `json:"spray"`
	// EstimatedCost is set only when the product price is known
	EstimatedCost *float64  `json:"estimated_cost,omitempty"`
	CalculatedAt  time.Time `json:"calculated_at"`
}

// Perform computes the requirement and builds the full report
func (c *Calculator) Perform(field FieldData, p Params, productName string) (*Report, error) {
	res, err := c.Compute(field, p)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(productName) == "" {
		productName = DefaultProductName
	}

	return &Report{
		Field:        field,
		ProductName:  productName,
		Params:       p,
		Result:       res,
		Instructions: GenerateMixingInstructions(res, p.TankSize, productName),
		Spray:        SprayParametersFor(res.DensityLevel),
		CalculatedAt: c.now(),
	}, nil
}

// WithCost attaches a cost estimate based on the product price per litre
func (r *Report) WithCost(costPerLiter float64) *Report {
	cost := EstimateCost(r.Result.ChemicalVolume, costPerLiter)
	r.EstimatedCost = &cost
	return r
}
