package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	greenscout "github.com/greenscout/scout-engine"
	"github.com/greenscout/scout-engine/pkg/catalog"
	"github.com/greenscout/scout-engine/pkg/chemical"
	"github.com/greenscout/scout-engine/pkg/compliance"
	"github.com/greenscout/scout-engine/pkg/types"
)

type calculateOptions struct {
	area          float64
	unit          string
	crop          string
	coverage      float64
	image         string
	concentration float64
	sprayVolume   float64
	tankSize      float64
	product       string
	weather       weatherFlags
}

type weatherFlags struct {
	temperature float64
	windSpeed   float64
	humidity    float64
	rain        float64
}

func (w weatherFlags) conditions() types.WeatherConditions {
	return types.WeatherConditions{
		Temperature:   w.temperature,
		WindSpeed:     w.windSpeed,
		Humidity:      w.humidity,
		Precipitation: w.rain,
	}
}

func addWeatherFlags(cmd *cobra.Command, w *weatherFlags) {
	cmd.Flags().Float64Var(&w.temperature, "temp", 20, "air temperature (°C)")
	cmd.Flags().Float64Var(&w.windSpeed, "wind", 0, "wind speed (km/h)")
	cmd.Flags().Float64Var(&w.humidity, "humidity", 0, "relative humidity (%)")
	cmd.Flags().Float64Var(&w.rain, "rain", 0, "precipitation (mm)")
}

var calculateOpts calculateOptions

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute chemical and water volumes and a mixing plan",
	Long: `Compute chemical volume, water volume, tank loads and mixing steps for a
field. Coverage comes from --coverage or from analyzing --image.

With --product, the product is looked up in the catalog by id or name for
its concentration, price and compliance checks.

Exit codes:
  0 - Plan computed, no blocking warnings
  1 - Plan computed with blocking compliance warnings
  2 - Error (invalid input, unknown product, unreadable image)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runCalculate(ctx, os.Stdout, current, calculateOpts); code != exitOK {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(calculateCmd)
	f := calculateCmd.Flags()
	f.Float64Var(&calculateOpts.area, "area", 0, "field area")
	f.StringVar(&calculateOpts.unit, "unit", "", "area unit: ha|ac (default from config)")
	f.StringVar(&calculateOpts.crop, "crop", "", "crop: pasture|wheat|corn|barley|canola|other (default from config)")
	f.Float64Var(&calculateOpts.coverage, "coverage", 0, "green coverage percentage (ignored with --image)")
	f.StringVar(&calculateOpts.image, "image", "", "field photo to analyze for coverage")
	f.Float64Var(&calculateOpts.concentration, "concentration", 0, "active ingredient % (default from product or config)")
	f.Float64Var(&calculateOpts.sprayVolume, "spray-volume", 0, "spray volume L/ha (default from config)")
	f.Float64Var(&calculateOpts.tankSize, "tank", 0, "tank size L (default from config)")
	f.StringVar(&calculateOpts.product, "product", "", "catalog product id or name")
	addWeatherFlags(calculateCmd, &calculateOpts.weather)
}

// calculationOutput is the JSON shape of calculate
type calculationOutput struct {
	Coverage    *types.CoverageResult `json:"coverage,omitempty"`
	Calculation *chemical.Report      `json:"calculation"`
	Compliance  *compliance.Report    `json:"compliance,omitempty"`
}

func runCalculate(ctx context.Context, w io.Writer, a *app, opts calculateOptions) int {
	field, params, err := resolveCalculation(a, opts)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	var product *catalog.Product
	if opts.product != "" {
		c, err := a.openCatalog()
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		p, err := findProduct(c, opts.product)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		product = &p
		if opts.concentration == 0 {
			params.Concentration = 0
		}
	}

	var out calculationOutput
	weather := opts.weather.conditions()

	if opts.image != "" {
		img, err := a.engine.LoadImage(opts.image)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		req := greenscout.PlanRequest{Image: img, Field: field, Params: params, Product: product}
		if product != nil {
			req.Weather = &weather
		}
		plan, err := a.engine.Plan(ctx, req)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		out = calculationOutput{Coverage: &plan.Analysis.Coverage, Calculation: plan.Calculation, Compliance: plan.Compliance}
	} else {
		productName := ""
		if product != nil {
			productName = product.Name
			if params.Concentration == 0 {
				params.Concentration = product.Concentration
			}
		}
		report, err := a.engine.Calculate(field, params, productName)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		if product != nil {
			if product.CostPerLiter != nil {
				report.WithCost(*product.CostPerLiter)
			}
			cr := a.engine.Evaluate(*product, report.Result.ApplicationRate, weather, nil)
			out.Compliance = &cr
		}
		out.Calculation = report
	}

	if jsonOutput {
		if err := writeJSON(w, out); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
	} else {
		fmt.Fprint(w, formatCalculationHuman(out))
	}

	if out.Compliance != nil && out.Compliance.HasBlockingWarnings() {
		return exitBlocked
	}
	return exitOK
}

// resolveCalculation fills unset flags from the config
func resolveCalculation(a *app, opts calculateOptions) (chemical.FieldData, chemical.Params, error) {
	unitName := opts.unit
	if unitName == "" {
		unitName = a.cfg.Calculator.AreaUnit
	}
	unit, err := chemical.ParseAreaUnit(unitName)
	if err != nil {
		return chemical.FieldData{}, chemical.Params{}, err
	}

	cropName := opts.crop
	if cropName == "" {
		cropName = a.cfg.Calculator.CropType
	}
	crop, err := chemical.ParseCropType(cropName)
	if err != nil {
		return chemical.FieldData{}, chemical.Params{}, err
	}

	params := a.cfg.ChemicalParams()
	if opts.concentration != 0 {
		params.Concentration = opts.concentration
	}
	if opts.sprayVolume != 0 {
		params.SprayVolumePerHa = opts.sprayVolume
	}
	if opts.tankSize != 0 {
		params.TankSize = opts.tankSize
	}

	field := chemical.FieldData{
		Area:                 opts.area,
		AreaUnit:             unit,
		GreenCoveragePercent: opts.coverage,
		CropType:             crop,
		ApplicationDate:      time.Now(),
	}
	return field, params, nil
}

func formatCalculationHuman(out calculationOutput) string {
	var b strings.Builder
	r := out.Calculation.Result

	if out.Coverage != nil {
		fmt.Fprintf(&b, "Coverage:         %.2f%%\n", out.Coverage.GreenPercentage)
	}
	fmt.Fprintf(&b, "Field:            %.2f ha %s, %s density\n", r.AreaHectares, out.Calculation.Field.CropType.Label(), r.DensityLevel)
	fmt.Fprintf(&b, "Application rate: %.2f L/ha\n", r.ApplicationRate)
	fmt.Fprintf(&b, "Chemical:         %.2f L\n", r.ChemicalVolume)
	fmt.Fprintf(&b, "Water:            %.2f L\n", r.WaterVolume)
	fmt.Fprintf(&b, "Total spray:      %.2f L\n", r.TotalSprayVolume)
	fmt.Fprintf(&b, "Tank loads:       %d\n", r.TankLoads)
	if r.VolumesDiverge() {
		fmt.Fprintf(&b, "Note: chemical exceeds spray volume by %.2f L; water floored at 0\n", r.WaterShortfall)
	}
	if out.Calculation.EstimatedCost != nil {
		fmt.Fprintf(&b, "Estimated cost:   %.2f\n", *out.Calculation.EstimatedCost)
	}

	fmt.Fprintf(&b, "\nMixing (%s):\n", out.Calculation.ProductName)
	for _, step := range out.Calculation.Instructions {
		fmt.Fprintf(&b, "  %s\n", step)
	}
	fmt.Fprintf(&b, "Spray: %s, %s\n", out.Calculation.Spray.Pressure, out.Calculation.Spray.NozzleType)

	if out.Compliance != nil {
		b.WriteString("\n")
		b.WriteString(formatComplianceHuman(*out.Compliance))
	}
	return b.String()
}
