package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greenscout/scout-engine/pkg/compliance"
	"github.com/greenscout/scout-engine/pkg/types"
)

type complyOptions struct {
	product   string
	rate      float64
	weather   weatherFlags
	latitude  float64
	longitude float64
}

var complyOpts complyOptions

var complyCmd = &cobra.Command{
	Use:   "comply",
	Short: "Check an application against product limits and weather",
	Long: `Check an application rate against a catalog product and the current
weather and list the resulting safety warnings, most severe first.

Exit codes:
  0 - No blocking warnings
  1 - One or more critical warnings
  2 - Error (unknown product, invalid input)`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := complyOpts
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
			opts.latitude, opts.longitude = math.NaN(), math.NaN()
		}
		if code := runComply(os.Stdout, current, opts); code != exitOK {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(complyCmd)
	complyCmd.Flags().StringVar(&complyOpts.product, "product", "", "catalog product id or name")
	complyCmd.Flags().Float64Var(&complyOpts.rate, "rate", 0, "applied rate (L/ha)")
	complyCmd.Flags().Float64Var(&complyOpts.latitude, "lat", 0, "field latitude")
	complyCmd.Flags().Float64Var(&complyOpts.longitude, "lon", 0, "field longitude")
	addWeatherFlags(complyCmd, &complyOpts.weather)
	complyCmd.MarkFlagRequired("product")
	complyCmd.MarkFlagRequired("rate")
}

func runComply(w io.Writer, a *app, opts complyOptions) int {
	if !(opts.rate >= 0) {
		fmt.Fprintln(w, "Error: --rate must not be negative")
		return exitError
	}

	c, err := a.openCatalog()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	product, err := findProduct(c, opts.product)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	var location *types.Location
	if !math.IsNaN(opts.latitude) && !math.IsNaN(opts.longitude) {
		location = &types.Location{Latitude: opts.latitude, Longitude: opts.longitude}
	}

	report := a.engine.Evaluate(product, opts.rate, opts.weather.conditions(), location)

	if jsonOutput {
		if err := writeJSON(w, report); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
	} else {
		fmt.Fprintf(w, "%s at %.2f L/ha\n", product.Name, opts.rate)
		fmt.Fprint(w, formatComplianceHuman(report))
	}

	if report.HasBlockingWarnings() {
		return exitBlocked
	}
	return exitOK
}

func formatComplianceHuman(r compliance.Report) string {
	var b strings.Builder

	rendered := r.Rendered()
	if len(rendered) == 0 {
		b.WriteString("✓ No compliance warnings\n")
	}
	for _, w := range rendered {
		symbol := "!"
		if w.Severity == compliance.Critical {
			symbol = "✗"
		}
		fmt.Fprintf(&b, "%s [%s] %s\n", symbol, w.Severity, w.Message)
	}
	if r.WaterCheck == compliance.WaterCheckUnavailable {
		b.WriteString("? Water proximity not checked: no location or water-body data\n")
	}

	if r.HasBlockingWarnings() {
		b.WriteString("\nBLOCKED: resolve critical warnings before spraying\n")
	}
	return b.String()
}
