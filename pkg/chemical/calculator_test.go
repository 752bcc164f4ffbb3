package chemical

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/greenscout/scout-engine/pkg/types"
)

func wheatField(area float64, coverage float64) FieldData {
	return FieldData{
		Area:                 area,
		AreaUnit:             Hectares,
		GreenCoveragePercent: coverage,
		CropType:             CropWheat,
		ApplicationDate:      time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeReferenceField(t *testing.T) {
	c := NewCalculator()

	res, err := c.Compute(wheatField(10, 50), Params{Concentration: 100, SprayVolumePerHa: 100, TankSize: 1000})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if res.ApplicationRate != 2.0 {
		t.Errorf("Expected rate 2.0 L/ha, got %f", res.ApplicationRate)
	}
	if res.ChemicalVolume != 20 {
		t.Errorf("Expected 20 L chemical, got %f", res.ChemicalVolume)
	}
	if res.TotalSprayVolume != 1000 {
		t.Errorf("Expected 1000 L spray, got %f", res.TotalSprayVolume)
	}
	if res.WaterVolume != 980 {
		t.Errorf("Expected 980 L water, got %f", res.WaterVolume)
	}
	if res.TankLoads != 1 {
		t.Errorf("Expected 1 tank load, got %d", res.TankLoads)
	}
	if res.DensityLevel != DensityMedium {
		t.Errorf("Expected medium density, got %s", res.DensityLevel)
	}
	if res.VolumesDiverge() {
		t.Error("Volumes should not diverge for the reference field")
	}
}

func TestComputeAcres(t *testing.T) {
	c := NewCalculator()
	field := wheatField(10, 50)
	field.AreaUnit = Acres

	res, err := c.Compute(field, DefaultParams())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if math.Abs(res.AreaHectares-4.04686) > 1e-9 {
		t.Errorf("Expected 4.04686 ha, got %f", res.AreaHectares)
	}
	if math.Abs(res.ChemicalVolume-8.09372) > 1e-9 {
		t.Errorf("Expected 8.09372 L, got %f", res.ChemicalVolume)
	}
}

func TestComputeTankLoads(t *testing.T) {
	c := NewCalculator()

	for _, area := range []float64{0.01, 1, 9.99, 10, 10.01, 25, 123.4} {
		for _, tank := range []float64{TankSmall, TankStandard, TankLarge, 333} {
			res, err := c.Compute(wheatField(area, 20), Params{Concentration: 100, SprayVolumePerHa: 100, TankSize: tank})
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			want := int(math.Ceil(res.TotalSprayVolume / tank))
			if res.TankLoads != want {
				t.Errorf("area %v tank %v: expected %d loads, got %d", area, tank, want, res.TankLoads)
			}
			if res.TankLoads < 1 {
				t.Errorf("area %v tank %v: tank loads must be at least 1", area, tank)
			}
		}
	}
}

func TestComputeWaterFloor(t *testing.T) {
	c := NewCalculator()

	res, err := c.Compute(wheatField(10, 50), Params{Concentration: 1, SprayVolumePerHa: 100, TankSize: 1000})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if res.WaterVolume != 0 {
		t.Errorf("Expected water floored at 0, got %f", res.WaterVolume)
	}
	if !res.VolumesDiverge() || math.Abs(res.WaterShortfall-1000) > 1e-9 {
		t.Errorf("Expected 1000 L shortfall, got %f", res.WaterShortfall)
	}
}

func TestComputeStrictVolumes(t *testing.T) {
	c := NewCalculatorWithConfig(CalculatorConfig{StrictVolumes: true})

	_, err := c.Compute(wheatField(10, 50), Params{Concentration: 1, SprayVolumePerHa: 100, TankSize: 1000})
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput in strict mode, got %v", err)
	}
}

func TestComputeInvalidInput(t *testing.T) {
	c := NewCalculator()
	good := DefaultParams()

	tests := []struct {
		name   string
		field  FieldData
		params Params
	}{
		{"zero area", wheatField(0, 50), good},
		{"negative area", wheatField(-1, 50), good},
		{"coverage above 100", wheatField(1, 101), good},
		{"unknown unit", FieldData{Area: 1, AreaUnit: "furlongs", CropType: CropWheat}, good},
		{"unknown crop", FieldData{Area: 1, AreaUnit: Hectares, CropType: "rice"}, good},
		{"zero concentration", wheatField(1, 50), Params{Concentration: 0, SprayVolumePerHa: 100, TankSize: 1000}},
		{"zero spray volume", wheatField(1, 50), Params{Concentration: 100, SprayVolumePerHa: 0, TankSize: 1000}},
		{"zero tank", wheatField(1, 50), Params{Concentration: 100, SprayVolumePerHa: 100, TankSize: 0}},
		{"infinite concentration", wheatField(1, 50), Params{Concentration: math.Inf(1), SprayVolumePerHa: 100, TankSize: 1000}},
		{"infinite spray volume", wheatField(10, 50), Params{Concentration: 100, SprayVolumePerHa: math.Inf(1), TankSize: 1000}},
		{"infinite tank", wheatField(1, 50), Params{Concentration: 100, SprayVolumePerHa: 100, TankSize: math.Inf(1)}},
		{"NaN spray volume", wheatField(1, 50), Params{Concentration: 100, SprayVolumePerHa: math.NaN(), TankSize: 1000}},
		{"volume overflow", wheatField(1e307, 50), Params{Concentration: 100, SprayVolumePerHa: 200, TankSize: 1000}},
		{"tank loads out of range", wheatField(1e6, 50), Params{Concentration: 100, SprayVolumePerHa: 100, TankSize: 1e-300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Compute(tt.field, tt.params); !errors.Is(err, types.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseAreaUnit(t *testing.T) {
	for in, want := range map[string]AreaUnit{"ha": Hectares, "Hectares": Hectares, "ac": Acres, "ACRES": Acres} {
		if got, err := ParseAreaUnit(in); err != nil || got != want {
			t.Errorf("ParseAreaUnit(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAreaUnit("m2"); err == nil {
		t.Error("Expected error for unknown unit")
	}
}

func TestGenerateMixingInstructions(t *testing.T) {
	single := Result{ChemicalVolume: 20, TankLoads: 1}
	steps := GenerateMixingInstructions(single, 1000, "Glyphosate 360")

	if len(steps) != 5 {
		t.Fatalf("Expected 5 steps for one load, got %d", len(steps))
	}
	for i, s := range steps {
		if s.Step != i+1 {
			t.Errorf("Step %d numbered %d", i, s.Step)
		}
	}
	if *steps[0].Amount != 500 {
		t.Errorf("Half-fill amount = %f, want 500", *steps[0].Amount)
	}
	if steps[1].Amount != nil {
		t.Error("Agitation step should carry no amount")
	}
	if !strings.Contains(steps[2].Instruction, "Glyphosate 360") {
		t.Errorf("Product name missing from %q", steps[2].Instruction)
	}
	if *steps[2].Amount != 20 {
		t.Errorf("Product amount = %f, want 20", *steps[2].Amount)
	}
	if *steps[3].Amount != 1000 {
		t.Errorf("Top-up amount = %f, want 1000", *steps[3].Amount)
	}

	multi := Result{ChemicalVolume: 30, TankLoads: 3}
	steps = GenerateMixingInstructions(multi, 1000, "")
	if len(steps) != 6 {
		t.Fatalf("Expected 6 steps for three loads, got %d", len(steps))
	}
	if steps[5].Step != 6 || !strings.Contains(steps[5].Instruction, "3 tank loads") {
		t.Errorf("Unexpected repeat step %+v", steps[5])
	}
	if *steps[2].Amount != 10 {
		t.Errorf("Per-tank amount = %f, want 10", *steps[2].Amount)
	}
	if !strings.Contains(steps[2].Instruction, DefaultProductName) {
		t.Errorf("Default product name missing from %q", steps[2].Instruction)
	}
}

func TestMixingInstructionString(t *testing.T) {
	amount := 12.5
	s := MixingInstruction{Step: 3, Instruction: "Add Herbicide to tank", Amount: &amount, Unit: "L"}
	if got := s.String(); got != "3. Add Herbicide to tank (12.50 L)" {
		t.Errorf("String() = %q", got)
	}
	s = MixingInstruction{Step: 2, Instruction: "Start agitation system"}
	if got := s.String(); got != "2. Start agitation system" {
		t.Errorf("String() = %q", got)
	}
}

func TestSprayParametersFor(t *testing.T) {
	if p := SprayParametersFor(DensityHeavy); p.NozzleType != "Flat fan 80°" || p.Pressure != "3.0-3.5 bar" {
		t.Errorf("Unexpected heavy parameters %+v", p)
	}
	if p := SprayParametersFor(DensityLight); p.Pressure != "2.0-2.5 bar" {
		t.Errorf("Unexpected light parameters %+v", p)
	}
}

func TestPerform(t *testing.T) {
	c := NewCalculator()
	fixed := time.Date(2024, 10, 2, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	report, err := c.Perform(wheatField(25, 80), Params{Concentration: 100, SprayVolumePerHa: 100, TankSize: 1000}, "Glyphosate")
	if err != nil {
		t.Fatalf("Perform failed: %v", err)
	}

	if report.Result.TankLoads != 3 {
		t.Errorf("Expected 3 tank loads, got %d", report.Result.TankLoads)
	}
	if len(report.Instructions) != 6 {
		t.Errorf("Expected 6 instructions, got %d", len(report.Instructions))
	}
	if report.Spray != SprayParametersFor(DensityHeavy) {
		t.Errorf("Expected heavy spray parameters, got %+v", report.Spray)
	}
	if !report.CalculatedAt.Equal(fixed) {
		t.Errorf("CalculatedAt = %v", report.CalculatedAt)
	}
	if report.EstimatedCost != nil {
		t.Error("Cost should be unset without a price")
	}

	report.WithCost(10)
	if report.EstimatedCost == nil || math.Abs(*report.EstimatedCost-report.Result.ChemicalVolume*10) > 1e-9 {
		t.Errorf("Unexpected cost %v", report.EstimatedCost)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Result != report.Result || decoded.Field.CropType != CropWheat || len(decoded.Instructions) != 6 {
		t.Errorf("Report did not survive a JSON round trip: %+v", decoded)
	}
}

func TestPerformInvalid(t *testing.T) {
	c := NewCalculator()
	if _, err := c.Perform(wheatField(0, 50), DefaultParams(), "x"); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
