package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/greenscout/scout-engine/pkg/catalog"
	"github.com/greenscout/scout-engine/pkg/chemical"
)

type productFlags struct {
	name             string
	manufacturer     string
	activeIngredient string
	productType      string
	concentration    float64
	minRate          float64
	maxRate          float64
	compatibleWith   []string
	restricted       bool
	withdrawal       int
	cost             float64
}

// product builds a product from the flags. A negative cost means no price.
func (f productFlags) product() (catalog.Product, error) {
	pt, err := catalog.ParseProductType(f.productType)
	if err != nil {
		return catalog.Product{}, err
	}
	p := catalog.NewProduct(f.name, pt, f.concentration)
	p.Manufacturer = f.manufacturer
	p.ActiveIngredient = f.activeIngredient
	p.MinRate = f.minRate
	p.MaxRate = f.maxRate
	p.CompatibleWith = f.compatibleWith
	p.RestrictedUse = f.restricted
	p.WithdrawalPeriod = f.withdrawal
	if f.cost >= 0 {
		p = p.WithCost(f.cost)
	}
	return p, nil
}

var addFlags productFlags

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the chemical product catalog",
}

var catalogAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product",
	Run: func(cmd *cobra.Command, args []string) {
		if code := runCatalogAdd(os.Stdout, current, addFlags); code != exitOK {
			os.Exit(code)
		}
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Run: func(cmd *cobra.Command, args []string) {
		if code := runCatalogList(os.Stdout, current); code != exitOK {
			os.Exit(code)
		}
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show one product with cost and tank coverage",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if code := runCatalogShow(os.Stdout, current, args[0]); code != exitOK {
			os.Exit(code)
		}
	},
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if code := runCatalogDelete(os.Stdout, current, args[0]); code != exitOK {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogAddCmd, catalogListCmd, catalogShowCmd, catalogDeleteCmd)

	f := catalogAddCmd.Flags()
	f.StringVar(&addFlags.name, "name", "", "product name")
	f.StringVar(&addFlags.manufacturer, "manufacturer", "", "manufacturer")
	f.StringVar(&addFlags.activeIngredient, "ingredient", "", "active ingredient")
	f.StringVar(&addFlags.productType, "type", string(catalog.Herbicide), "herbicide|insecticide|fungicide|fertilizer|growth_regulator")
	f.Float64Var(&addFlags.concentration, "concentration", 100, "active ingredient %")
	f.Float64Var(&addFlags.minRate, "min-rate", catalog.DefaultMinRate, "minimum application rate (L/ha)")
	f.Float64Var(&addFlags.maxRate, "max-rate", catalog.DefaultMaxRate, "maximum application rate (L/ha)")
	f.StringSliceVar(&addFlags.compatibleWith, "compatible", nil, "ids of products it can be tank-mixed with")
	f.BoolVar(&addFlags.restricted, "restricted", false, "restricted use product")
	f.IntVar(&addFlags.withdrawal, "withdrawal", 0, "pre-harvest withdrawal period (days)")
	f.Float64Var(&addFlags.cost, "cost", -1, "price per litre (omit if unknown)")
	catalogAddCmd.MarkFlagRequired("name")
}

func runCatalogAdd(w io.Writer, a *app, flags productFlags) int {
	c, err := a.openCatalog()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	p, err := flags.product()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	added, err := c.Add(p)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if jsonOutput {
		writeJSON(w, added)
	} else {
		fmt.Fprintf(w, "Added %s (%s)\n", added.Name, added.ID)
	}
	return exitOK
}

func runCatalogList(w io.Writer, a *app) int {
	c, err := a.openCatalog()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	products := c.List()

	if jsonOutput {
		writeJSON(w, products)
		return exitOK
	}

	if len(products) == 0 {
		fmt.Fprintln(w, "No products in catalog")
		return exitOK
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCONC\tRATE L/HA\tRESTRICTED")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.2f-%.2f\t%v\n", p.ID, p.Name, p.Type, p.Concentration, p.MinRate, p.MaxRate, p.RestrictedUse)
	}
	tw.Flush()
	return exitOK
}

func runCatalogShow(w io.Writer, a *app, ref string) int {
	c, err := a.openCatalog()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	p, err := findProduct(c, ref)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if jsonOutput {
		writeJSON(w, p)
		return exitOK
	}
	fmt.Fprint(w, formatProductHuman(c, p))
	return exitOK
}

func runCatalogDelete(w io.Writer, a *app, ref string) int {
	c, err := a.openCatalog()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	p, err := findProduct(c, ref)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	if err := c.Delete(p.ID); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	fmt.Fprintf(w, "Deleted %s (%s)\n", p.Name, p.ID)
	return exitOK
}

func formatProductHuman(c *catalog.Catalog, p catalog.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", p.Name, p.ID)
	if p.Manufacturer != "" {
		fmt.Fprintf(&b, "  Manufacturer:      %s\n", p.Manufacturer)
	}
	if p.ActiveIngredient != "" {
		fmt.Fprintf(&b, "  Active ingredient: %s\n", p.ActiveIngredient)
	}
	fmt.Fprintf(&b, "  Type:              %s\n", p.Type)
	fmt.Fprintf(&b, "  Concentration:     %.1f%%\n", p.Concentration)
	fmt.Fprintf(&b, "  Rate:              %.2f-%.2f L/ha\n", p.MinRate, p.MaxRate)

	low, high := p.TankCoverage(chemical.TankStandard)
	fmt.Fprintf(&b, "  Per 1000 L tank:   %s-%s ha\n", formatHectares(low), formatHectares(high))
	if lowCost, highCost, ok := p.CostPerHectareRange(); ok {
		fmt.Fprintf(&b, "  Cost:              %.2f/L, %.2f-%.2f/ha\n", *p.CostPerLiter, lowCost, highCost)
	}
	if p.RestrictedUse {
		b.WriteString("  Restricted use\n")
	}
	if p.WithdrawalPeriod > 0 {
		fmt.Fprintf(&b, "  Withdrawal period: %d days\n", p.WithdrawalPeriod)
	}

	var mixes []string
	for _, other := range c.List() {
		if other.ID != p.ID && catalog.Compatible(p, other) {
			mixes = append(mixes, other.Name)
		}
	}
	if len(mixes) > 0 {
		fmt.Fprintf(&b, "  Tank-mix with:     %s\n", strings.Join(mixes, ", "))
	}
	return b.String()
}

func formatHectares(v float64) string {
	if math.IsInf(v, 0) {
		return "∞"
	}
	return fmt.Sprintf("%.1f", v)
}
