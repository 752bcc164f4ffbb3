package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	greenscout "github.com/greenscout/scout-engine"
	"github.com/greenscout/scout-engine/internal/config"
	"github.com/greenscout/scout-engine/internal/logger"
	"github.com/greenscout/scout-engine/internal/utils"
	"github.com/greenscout/scout-engine/pkg/catalog"
	"github.com/greenscout/scout-engine/pkg/processing"
)

// Exit codes
const (
	exitOK      = 0
	exitBlocked = 1
	exitError   = 2
)

var (
	configPath  string
	logLevel    string
	catalogPath string
	jsonOutput  bool
	envFile     string

	current *app
)

var rootCmd = &cobra.Command{
	Use:   "greenscout",
	Short: "Vegetation coverage and spray planning for field scouting",
	Long: `greenscout estimates green coverage from field photographs and turns it
into a herbicide mixing plan with safety and compliance checks.

Environment Variables:
  GREENSCOUT_CONFIG     Config file (JSON or YAML)
  GREENSCOUT_LOG_LEVEL  Log level (debug, info, warn, error)
  GREENSCOUT_CATALOG    Product catalog file`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(os.Stderr)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (overrides GREENSCOUT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config and GREENSCOUT_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "product catalog file (overrides GREENSCOUT_CATALOG)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// app holds what every subcommand needs
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	engine *greenscout.Engine
}

func newApp(cfg *config.Config, log zerolog.Logger) *app {
	engine := greenscout.NewWithOptions(greenscout.Options{
		Analyzer:   cfg.AnalyzerOptions(),
		Calculator: cfg.CalculatorOptions(),
		Compliance: cfg.Compliance,
		Processing: processing.DefaultConfig(),
	}).WithLogger(log)

	return &app{cfg: cfg, logger: log, engine: engine}
}

// setup loads the dotenv file, the config file and the environment, in that
// order, then applies command-line overrides
func setup(logOut io.Writer) (*app, error) {
	if envFile != "" && utils.FileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg := config.Default()
	if utils.FileExists(path) {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if configPath != "" {
		return nil, fmt.Errorf("config file %s not found", configPath)
	}

	cfg.ApplyEnv(os.Getenv)
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("config", path).Str("catalog", cfg.Catalog.Path).Msg("configuration loaded")

	return newApp(cfg, log), nil
}

func (a *app) openCatalog() (*catalog.Catalog, error) {
	c, err := catalog.New(catalog.NewFileStore(a.cfg.Catalog.Path))
	if err != nil {
		return nil, err
	}
	return c.WithLogger(a.logger), nil
}

// findProduct resolves a product by id, then by name
func findProduct(c *catalog.Catalog, ref string) (catalog.Product, error) {
	if p, err := c.Get(ref); err == nil {
		return p, nil
	}
	return c.Find(ref)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
