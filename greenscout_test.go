package greenscout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/greenscout/scout-engine/internal/utils"
	"github.com/greenscout/scout-engine/pkg/catalog"
	"github.com/greenscout/scout-engine/pkg/chemical"
	"github.com/greenscout/scout-engine/pkg/compliance"
	"github.com/greenscout/scout-engine/pkg/types"
)

// createTestImage creates a field photo whose left greenFraction columns are vegetation
func createTestImage(width, height int, greenFraction float64) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	split := int(float64(width) * greenFraction)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < split {
				img.SetNRGBA(x, y, color.NRGBA{30, 160, 40, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{110, 85, 50, 255})
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	e := New()
	if e == nil {
		t.Fatal("New() returned nil")
	}
	if e.analyzer == nil || e.processor == nil || e.calculator == nil || e.evaluator == nil {
		t.Error("Engine component is nil")
	}
	if GetVersion() != Version {
		t.Errorf("Expected version %s, got %s", Version, GetVersion())
	}
}

func TestPlan(t *testing.T) {
	e := New()
	product := catalog.NewProduct("Glyphosate 360", catalog.Herbicide, 50).WithCost(8)
	product.MaxRate = 3
	product.WithdrawalPeriod = 7

	plan, err := e.Plan(context.Background(), PlanRequest{
		Image:   createTestImage(100, 40, 0.8),
		Field:   chemical.FieldData{Area: 10, AreaUnit: chemical.Hectares, CropType: chemical.CropWheat},
		Params:  chemical.Params{SprayVolumePerHa: 100, TankSize: 1000},
		Product: &product,
		Weather: &types.WeatherConditions{Temperature: 22, WindSpeed: 10},
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if plan.Analysis.Coverage.GreenPercentage != 80 {
		t.Errorf("Expected 80%% coverage, got %f", plan.Analysis.Coverage.GreenPercentage)
	}

	calc := plan.Calculation
	if calc.Field.GreenCoveragePercent != 80 {
		t.Errorf("Coverage not passed to the calculator: %f", calc.Field.GreenCoveragePercent)
	}
	if calc.Result.DensityLevel != chemical.DensityHeavy {
		t.Errorf("Expected heavy density, got %s", calc.Result.DensityLevel)
	}
	// wheat 2.0 × heavy 1.3 × 100/50
	if math.Abs(calc.Result.ApplicationRate-5.2) > 1e-9 {
		t.Errorf("Expected 5.2 L/ha, got %f", calc.Result.ApplicationRate)
	}
	if calc.ProductName != "Glyphosate 360" {
		t.Errorf("Expected product name in report, got %q", calc.ProductName)
	}
	if calc.EstimatedCost == nil || math.Abs(*calc.EstimatedCost-52*8) > 1e-9 {
		t.Errorf("Unexpected cost %v", calc.EstimatedCost)
	}

	if plan.Compliance == nil {
		t.Fatal("Expected a compliance report")
	}
	sorted := plan.Compliance.Sorted()
	if len(sorted) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", sorted)
	}
	if _, ok := sorted[0].(compliance.ExcessiveRate); !ok {
		t.Errorf("Expected excessive rate first, got %T", sorted[0])
	}
	if plan.Compliance.WaterCheck != compliance.WaterCheckUnavailable {
		t.Errorf("Expected water check unavailable, got %s", plan.Compliance.WaterCheck)
	}

	if _, err := json.Marshal(plan); err != nil {
		t.Errorf("Plan should encode as JSON: %v", err)
	}
}

func TestPlanWithoutProduct(t *testing.T) {
	plan, err := New().Plan(context.Background(), PlanRequest{
		Image:  createTestImage(20, 20, 0.1),
		Field:  chemical.FieldData{Area: 5, AreaUnit: chemical.Acres, CropType: chemical.CropBarley},
		Params: chemical.DefaultParams(),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Compliance != nil {
		t.Error("Compliance needs a product and weather")
	}
	if plan.Calculation.ProductName != chemical.DefaultProductName {
		t.Errorf("Expected default product name, got %q", plan.Calculation.ProductName)
	}
}

func TestPlanInvalid(t *testing.T) {
	e := New()
	ctx := context.Background()

	if _, err := e.Plan(ctx, PlanRequest{Field: chemical.FieldData{Area: 1, AreaUnit: chemical.Hectares, CropType: chemical.CropWheat}, Params: chemical.DefaultParams()}); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput without image, got %v", err)
	}

	_, err := e.Plan(ctx, PlanRequest{
		Image:  createTestImage(4, 4, 0.5),
		Field:  chemical.FieldData{Area: 0, AreaUnit: chemical.Hectares, CropType: chemical.CropWheat},
		Params: chemical.DefaultParams(),
	})
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero area, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	e := New()
	img := createTestImage(10, 2, 0.5)
	res, err := e.Analyze(context.Background(), img)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	out, err := e.Compare(img, res, 1)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if out.NRGBAAt(0, 0) != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("Expected highlighted vegetation, got %v", out.NRGBAAt(0, 0))
	}
	if out.NRGBAAt(9, 1) != (color.NRGBA{110, 85, 50, 255}) {
		t.Errorf("Expected original soil, got %v", out.NRGBAAt(9, 1))
	}

	if _, err := e.Compare(img, nil, 0.5); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessImageFile(t *testing.T) {
	e := New()
	dir := t.TempDir()
	input := filepath.Join(dir, "paddock.png")
	if err := e.Processor().SaveImage(createTestImage(30, 10, 0.3), input, "png", 0, false); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	res, files, err := e.ProcessImageFile(context.Background(), input, outDir, DefaultOutputOptions())
	if err != nil {
		t.Fatalf("ProcessImageFile failed: %v", err)
	}
	if res.Coverage.GreenPixelCount != 90 {
		t.Errorf("Expected 90 green pixels, got %d", res.Coverage.GreenPixelCount)
	}
	if !utils.FileExists(files.Mask) || !utils.FileExists(files.Transparent) {
		t.Errorf("Expected both masks on disk: %+v", files)
	}
	if filepath.Base(files.Mask) != "paddock_mask.png" {
		t.Errorf("Unexpected mask name %s", files.Mask)
	}
	if filepath.Base(files.Transparent) != "paddock_overlay.png" {
		t.Errorf("Unexpected overlay name %s", files.Transparent)
	}
}

func TestProcessImageFileOutputOptions(t *testing.T) {
	e := New()
	dir := t.TempDir()
	input := filepath.Join(dir, "paddock.png")
	if err := e.Processor().SaveImage(createTestImage(120, 80, 0.4), input, "png", 0, false); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	sizes := map[int]int64{}
	for _, quality := range []int{5, 100} {
		outDir := filepath.Join(dir, fmt.Sprintf("q%d", quality))
		_, files, err := e.ProcessImageFile(context.Background(), input, outDir, OutputOptions{
			Format:  "jpg",
			Quality: quality,
			Prefix:  "scan_",
			Suffix:  "_veg",
		})
		if err != nil {
			t.Fatalf("ProcessImageFile failed: %v", err)
		}
		if filepath.Base(files.Mask) != "scan_paddock_veg.jpg" {
			t.Errorf("Unexpected mask name %s", files.Mask)
		}
		if filepath.Base(files.Transparent) != "scan_paddock_overlay.png" {
			t.Errorf("Unexpected overlay name %s", files.Transparent)
		}
		info, err := os.Stat(files.Mask)
		if err != nil {
			t.Fatalf("Mask not written: %v", err)
		}
		sizes[quality] = info.Size()
	}

	if sizes[5] >= sizes[100] {
		t.Errorf("Expected quality to reach the jpeg encoder: q5 %d bytes, q100 %d bytes", sizes[5], sizes[100])
	}
}
