// Package greenscout estimates vegetation coverage from field photographs and
// turns it into a herbicide mixing plan with safety checks.
//
// Basic usage:
//
//	engine := greenscout.New()
//
//	img, err := engine.LoadImage("paddock.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plan, err := engine.Plan(ctx, greenscout.PlanRequest{
//		Image: img,
//		Field: chemical.FieldData{Area: 12, AreaUnit: chemical.Hectares, CropType: chemical.CropWheat},
//		Params: chemical.DefaultParams(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("%.1f%% green, %.2f L product in %d tank loads\n",
//		plan.Analysis.Coverage.GreenPercentage,
//		plan.Calculation.Result.ChemicalVolume,
//		plan.Calculation.Result.TankLoads)
//
// The package ties together the components under pkg/:
//
//  1. vegetation: per-pixel classification and mask generation
//  2. analyzer: the coverage pipeline, quality advisory and analysis sessions
//  3. chemical: application rates, volumes, tank loads and mixing steps
//  4. compliance: weather, rate and product safety warnings
//  5. catalog: the chemical product collection
//  6. processing and comparison: image I/O and before/after rendering
package greenscout

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/greenscout/scout-engine/internal/utils"
	"github.com/greenscout/scout-engine/pkg/analyzer"
	"github.com/greenscout/scout-engine/pkg/catalog"
	"github.com/greenscout/scout-engine/pkg/chemical"
	"github.com/greenscout/scout-engine/pkg/comparison"
	"github.com/greenscout/scout-engine/pkg/compliance"
	"github.com/greenscout/scout-engine/pkg/processing"
	"github.com/greenscout/scout-engine/pkg/types"
)

// Version of the engine
const Version = "1.0.0"

// Options configures every component of the engine
type Options struct {
	Analyzer   analyzer.Config
	Calculator chemical.CalculatorConfig
	Compliance compliance.Thresholds
	Water      compliance.WaterSourceLocator
	Processing processing.Config
}

// DefaultOptions returns the default configuration of every component
func DefaultOptions() Options {
	return Options{
		Analyzer:   analyzer.DefaultConfig(),
		Compliance: compliance.DefaultThresholds(),
		Processing: processing.DefaultConfig(),
	}
}

// Engine provides a high-level interface over analysis, calculation and compliance
type Engine struct {
	analyzer   *analyzer.CoverageAnalyzer
	processor  *processing.Processor
	calculator *chemical.Calculator
	evaluator  *compliance.Evaluator
}

// New creates an Engine with default configuration
func New() *Engine {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an Engine with custom configuration
func NewWithOptions(opts Options) *Engine {
	return &Engine{
		analyzer:   analyzer.NewWithConfig(opts.Analyzer),
		processor:  processing.NewProcessorWithConfig(opts.Processing),
		calculator: chemical.NewCalculatorWithConfig(opts.Calculator),
		evaluator:  compliance.NewEvaluatorWithConfig(opts.Compliance, opts.Water),
	}
}

// WithLogger sets the logger on every component
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.analyzer.WithLogger(logger)
	e.processor.WithLogger(logger)
	e.calculator.WithLogger(logger)
	e.evaluator.WithLogger(logger)
	return e
}

// Analyzer returns the coverage analyzer, for example to open a Session
func (e *Engine) Analyzer() *analyzer.CoverageAnalyzer {
	return e.analyzer
}

// Processor returns the image processor
func (e *Engine) Processor() *processing.Processor {
	return e.processor
}

// LoadImage loads an image from a file path or http(s) URL
func (e *Engine) LoadImage(source string) (image.Image, error) {
	return e.processor.LoadImageSmart(context.Background(), source)
}

// Analyze estimates the vegetation coverage of an upright image
func (e *Engine) Analyze(ctx context.Context, img image.Image) (*analyzer.Result, error) {
	return e.analyzer.Analyze(ctx, analyzer.Request{Image: img, Orientation: analyzer.OrientationUp})
}

// AnalyzeFile loads an image file upright from its EXIF orientation and analyzes it
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*analyzer.Result, error) {
	img, err := e.processor.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return e.Analyze(ctx, img)
}

// Calculate builds a mixing plan for a field with known coverage
func (e *Engine) Calculate(field chemical.FieldData, params chemical.Params, productName string) (*chemical.Report, error) {
	return e.calculator.Perform(field, params, productName)
}

// Evaluate runs the compliance checks for one application
func (e *Engine) Evaluate(product catalog.Product, rate float64, weather types.WeatherConditions, location *types.Location) compliance.Report {
	return e.evaluator.Evaluate(product, rate, weather, location)
}

// PlanRequest is one photograph plus the field and product details entered for it
type PlanRequest struct {
	Image       image.Image
	Orientation analyzer.Orientation
	Field       chemical.FieldData
	Params      chemical.Params
	// Product is optional. When set it supplies the product name, the
	// concentration if Params leaves it zero, and the price for costing.
	Product *catalog.Product
	// Weather is optional. Compliance is evaluated only when both Product
	// and Weather are set.
	Weather  *types.WeatherConditions
	Location *types.Location
}

// PlanResult is the full report for one field
type PlanResult struct {
	Analysis    *analyzer.Result   `json:"analysis"`
	Calculation *chemical.Report   `json:"calculation"`
	Compliance  *compliance.Report `json:"compliance,omitempty"`
}

// Plan analyzes the photograph, feeds the coverage into the calculator and
// evaluates compliance when product and weather are known
func (e *Engine) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	orientation := req.Orientation
	if orientation == analyzer.OrientationUnknown {
		orientation = analyzer.OrientationUp
	}

	analysis, err := e.analyzer.Analyze(ctx, analyzer.Request{Image: req.Image, Orientation: orientation})
	if err != nil {
		return nil, err
	}

	field := req.Field
	field.GreenCoveragePercent = analysis.Coverage.GreenPercentage

	params := req.Params
	productName := ""
	if req.Product != nil {
		productName = req.Product.Name
		if params.Concentration == 0 {
			params.Concentration = req.Product.Concentration
		}
	}

	calc, err := e.calculator.Perform(field, params, productName)
	if err != nil {
		return nil, fmt.Errorf("calculation failed: %w", err)
	}
	if req.Product != nil && req.Product.CostPerLiter != nil {
		calc.WithCost(*req.Product.CostPerLiter)
	}

	result := &PlanResult{Analysis: analysis, Calculation: calc}
	if req.Product != nil && req.Weather != nil {
		report := e.evaluator.Evaluate(*req.Product, calc.Result.ApplicationRate, *req.Weather, req.Location)
		result.Compliance = &report
	}
	return result, nil
}

// Compare renders the before/after slider composite for an analysis
func (e *Engine) Compare(original image.Image, result *analyzer.Result, split float64) (*image.NRGBA, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: no analysis result", types.ErrInvalidInput)
	}
	return comparison.ComposeMask(original, result.Transparent, split, comparison.DefaultOptions())
}

// OutputFiles lists the files written by ProcessImageFile
type OutputFiles struct {
	Mask        string `json:"mask"`
	Transparent string `json:"transparent"`
}

// OutputOptions controls how masks are named and encoded. The mask is
// written as <Prefix><name><Suffix>.<Format>, the transparent overlay as
// <Prefix><name>_overlay.png.
type OutputOptions struct {
	Format  string
	Quality int
	Prefix  string
	Suffix  string
}

// DefaultOutputOptions returns png masks with a _mask suffix
func DefaultOutputOptions() OutputOptions {
	return OutputOptions{Format: "png", Quality: 90, Suffix: "_mask"}
}

// Paths returns the mask file names for an input inside outputDir
func (o OutputOptions) Paths(inputPath, outputDir string) OutputFiles {
	format := o.Format
	if format == "" {
		format = "png"
	}
	return OutputFiles{
		Mask:        utils.OutputPath(inputPath, outputDir, o.Prefix, o.Suffix, format),
		Transparent: utils.OutputPath(inputPath, outputDir, o.Prefix, "_overlay", "png"),
	}
}

// SaveMasks writes both masks of a result. The transparent mask is always
// png so its alpha survives.
func (e *Engine) SaveMasks(result *analyzer.Result, inputPath, outputDir string, out OutputOptions) (OutputFiles, error) {
	if err := utils.EnsureDir(outputDir); err != nil {
		return OutputFiles{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := out.Paths(inputPath, outputDir)
	format := utils.GetFileExtension(files.Mask)
	if err := e.processor.SaveMask(result.Masked, files.Mask, format, out.Quality); err != nil {
		return OutputFiles{}, fmt.Errorf("failed to save mask: %w", err)
	}
	if err := e.processor.SaveMask(result.Transparent, files.Transparent, "png", 0); err != nil {
		return OutputFiles{}, fmt.Errorf("failed to save overlay: %w", err)
	}
	return files, nil
}

// ProcessImageFile loads an image file, honouring its EXIF orientation,
// analyzes it and writes both masks
func (e *Engine) ProcessImageFile(ctx context.Context, inputPath, outputDir string, out OutputOptions) (*analyzer.Result, OutputFiles, error) {
	img, err := e.processor.LoadImage(inputPath)
	if err != nil {
		return nil, OutputFiles{}, fmt.Errorf("failed to load image: %w", err)
	}

	result, err := e.Analyze(ctx, img)
	if err != nil {
		return nil, OutputFiles{}, err
	}

	files, err := e.SaveMasks(result, inputPath, outputDir, out)
	if err != nil {
		return nil, OutputFiles{}, err
	}
	return result, files, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
