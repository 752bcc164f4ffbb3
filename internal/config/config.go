package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/greenscout/scout-engine/internal/utils"
	"github.com/greenscout/scout-engine/pkg/analyzer"
	"github.com/greenscout/scout-engine/pkg/chemical"
	"github.com/greenscout/scout-engine/pkg/compliance"
	"github.com/greenscout/scout-engine/pkg/vegetation"
)

// Environment variables read by ApplyEnv
const (
	EnvConfig   = "GREENSCOUT_CONFIG"
	EnvLogLevel = "GREENSCOUT_LOG_LEVEL"
	EnvCatalog  = "GREENSCOUT_CATALOG"
)

// Config holds the application configuration
type Config struct {
	Analyzer   AnalyzerConfig              `json:"analyzer" yaml:"analyzer"`
	Classifier vegetation.ClassifierConfig `json:"classifier" yaml:"classifier"`
	Calculator CalculatorConfig            `json:"calculator" yaml:"calculator"`
	Compliance compliance.Thresholds       `json:"compliance" yaml:"compliance"`
	Catalog    CatalogConfig               `json:"catalog" yaml:"catalog"`
	Output     OutputConfig                `json:"output" yaml:"output"`
	Logging    LoggingConfig               `json:"logging" yaml:"logging"`
}

// AnalyzerConfig holds configuration for coverage analysis
type AnalyzerConfig struct {
	Workers          int                        `json:"workers" yaml:"workers"`
	RowsPerShard     int                        `json:"rows_per_shard" yaml:"rows_per_shard"`
	SupportedFormats []string                   `json:"supported_formats" yaml:"supported_formats"`
	Quality          analyzer.QualityThresholds `json:"quality" yaml:"quality"`
}

// CalculatorConfig holds defaults for chemical calculations
type CalculatorConfig struct {
	StrictVolumes    bool    `json:"strict_volumes" yaml:"strict_volumes"`
	Concentration    float64 `json:"concentration" yaml:"concentration"`
	SprayVolumePerHa float64 `json:"spray_volume_per_ha" yaml:"spray_volume_per_ha"`
	TankSize         float64 `json:"tank_size" yaml:"tank_size"`
	AreaUnit         string  `json:"area_unit" yaml:"area_unit"`
	CropType         string  `json:"crop_type" yaml:"crop_type"`
}

// CatalogConfig holds the product catalog location
type CatalogConfig struct {
	Path string `json:"path" yaml:"path"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format" yaml:"default_format"`
	OutputDir     string `json:"output_dir" yaml:"output_dir"`
	Prefix        string `json:"prefix" yaml:"prefix"`
	Suffix        string `json:"suffix" yaml:"suffix"`
	Quality       int    `json:"quality" yaml:"quality"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	params := chemical.DefaultParams()
	return &Config{
		Analyzer: AnalyzerConfig{
			SupportedFormats: []string{"jpg", "jpeg", "png", "webp", "tiff"},
			Quality:          analyzer.DefaultQualityThresholds(),
		},
		Classifier: vegetation.DefaultClassifierConfig(),
		Calculator: CalculatorConfig{
			Concentration:    params.Concentration,
			SprayVolumePerHa: params.SprayVolumePerHa,
			TankSize:         params.TankSize,
			AreaUnit:         string(chemical.Hectares),
			CropType:         string(chemical.CropWheat),
		},
		Compliance: compliance.DefaultThresholds(),
		Catalog: CatalogConfig{
			Path: defaultCatalogPath(),
		},
		Output: OutputConfig{
			DefaultFormat: "png",
			OutputDir:     "./output",
			Suffix:        "_mask",
			Quality:       90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Fields missing
// from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON, or YAML for .yaml/.yml paths
func (c *Config) SaveToFile(filename string) error {
	if err := utils.EnsureDir(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from GREENSCOUT_* environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvCatalog); v != "" {
		c.Catalog.Path = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Analyzer.Workers < 0 {
		return fmt.Errorf("analyzer.workers must not be negative")
	}

	if c.Analyzer.RowsPerShard < 0 {
		return fmt.Errorf("analyzer.rows_per_shard must not be negative")
	}

	if len(c.Analyzer.SupportedFormats) == 0 {
		return fmt.Errorf("analyzer.supported_formats cannot be empty")
	}

	q := c.Analyzer.Quality
	if q.MinimumPixels < 0 || q.WarningPixels < q.MinimumPixels || q.RecommendedPixels < q.WarningPixels {
		return fmt.Errorf("analyzer.quality thresholds must be non-negative and ascending")
	}

	if c.Classifier.HueMin < 0 || c.Classifier.HueMax > 360 || c.Classifier.HueMin > c.Classifier.HueMax {
		return fmt.Errorf("classifier hue range must lie within 0-360 with hue_min <= hue_max")
	}

	if c.Classifier.SaturationThreshold < 0 || c.Classifier.SaturationThreshold > 1 {
		return fmt.Errorf("classifier.saturation_threshold must be between 0 and 1")
	}

	if c.Classifier.ValueThreshold < 0 || c.Classifier.ValueThreshold > 1 {
		return fmt.Errorf("classifier.value_threshold must be between 0 and 1")
	}

	if c.Classifier.ExcessThreshold < 0 || c.Classifier.ExcessThreshold > 1 {
		return fmt.Errorf("classifier.excess_threshold must be between 0 and 1")
	}

	if err := c.ChemicalParams().Validate(); err != nil {
		return fmt.Errorf("calculator: %w", err)
	}

	if _, err := chemical.ParseAreaUnit(c.Calculator.AreaUnit); err != nil {
		return fmt.Errorf("calculator.area_unit: %w", err)
	}

	if _, err := chemical.ParseCropType(c.Calculator.CropType); err != nil {
		return fmt.Errorf("calculator.crop_type: %w", err)
	}

	if c.Compliance.MaxWindSpeed <= 0 || c.Compliance.MaxTemperature <= -273.15 || c.Compliance.WaterBufferZone < 0 {
		return fmt.Errorf("compliance thresholds are out of range")
	}

	switch strings.ToLower(c.Output.DefaultFormat) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.default_format must be jpg, png or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// AnalyzerOptions returns the analyzer package configuration
func (c *Config) AnalyzerOptions() analyzer.Config {
	return analyzer.Config{
		Classifier:   c.Classifier,
		Workers:      c.Analyzer.Workers,
		RowsPerShard: c.Analyzer.RowsPerShard,
		Quality:      c.Analyzer.Quality,
	}
}

// CalculatorOptions returns the chemical calculator configuration
func (c *Config) CalculatorOptions() chemical.CalculatorConfig {
	return chemical.CalculatorConfig{StrictVolumes: c.Calculator.StrictVolumes}
}

// ChemicalParams returns the default product and sprayer settings
func (c *Config) ChemicalParams() chemical.Params {
	return chemical.Params{
		Concentration:    c.Calculator.Concentration,
		SprayVolumePerHa: c.Calculator.SprayVolumePerHa,
		TankSize:         c.Calculator.TankSize,
	}
}

// GetConfigPath returns the configuration file path, honouring GREENSCOUT_CONFIG
func GetConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "greenscout", "config.json")
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./catalog.json"
	}
	return filepath.Join(home, ".config", "greenscout", "catalog.json")
}

func isYAML(filename string) bool {
	switch utils.GetFileExtension(filename) {
	case "yaml", "yml":
		return true
	}
	return false
}
