package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	greenscout "github.com/greenscout/scout-engine"
	"github.com/greenscout/scout-engine/internal/utils"
	"github.com/greenscout/scout-engine/pkg/analyzer"
)

type analyzeOptions struct {
	outDir      string
	format      string
	saveMasks   bool
	orientation int
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image|dir|url>...",
	Short: "Estimate green coverage of field photographs",
	Long: `Estimate green coverage of one or more field photographs.

Directories are scanned recursively for supported image files. With
--masks, a solid mask and a transparent overlay are written per image,
named with the output prefix and suffix from the config.

Image files are turned upright from their EXIF orientation. URL inputs
carry no usable metadata here, so --orientation sets theirs.

Exit codes:
  0 - All images analyzed
  2 - Error (unreadable image, invalid input)`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runAnalyze(ctx, os.Stdout, current, analyzeOpts, args); code != exitOK {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeOpts.outDir, "out", "", "output directory for masks (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.format, "format", "", "mask format: png|jpg|webp (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.saveMasks, "masks", false, "write mask images")
	analyzeCmd.Flags().IntVar(&analyzeOpts.orientation, "orientation", 0, "EXIF orientation 1-8 applied to URL inputs; files always use their own metadata (0 = upright)")
}

// analysisRecord is one line of analyze output
type analysisRecord struct {
	Source  string           `json:"source"`
	Result  *analyzer.Result `json:"result,omitempty"`
	Mask    string           `json:"mask,omitempty"`
	Overlay string           `json:"overlay,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runAnalyze(ctx context.Context, w io.Writer, a *app, opts analyzeOptions, args []string) int {
	if opts.orientation < 0 || opts.orientation > 8 {
		fmt.Fprintln(w, "Error: --orientation must be between 0 and 8")
		return exitError
	}
	if opts.outDir == "" {
		opts.outDir = a.cfg.Output.OutputDir
	}
	if opts.format == "" {
		opts.format = a.cfg.Output.DefaultFormat
	}

	sources, err := expandSources(args, a.cfg.Analyzer.SupportedFormats)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	records := make([]analysisRecord, 0, len(sources))
	failed := 0
	for _, src := range sources {
		rec := analyzeSource(ctx, a, opts, src)
		if rec.Error != "" {
			failed++
			a.logger.Error().Str("source", src).Msg(rec.Error)
		}
		records = append(records, rec)
	}

	if jsonOutput {
		if err := writeJSON(w, records); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
	} else {
		fmt.Fprint(w, formatAnalysisHuman(records))
	}

	if failed > 0 {
		return exitError
	}
	return exitOK
}

func analyzeSource(ctx context.Context, a *app, opts analyzeOptions, src string) analysisRecord {
	rec := analysisRecord{Source: src}
	out := greenscout.OutputOptions{
		Format:  opts.format,
		Quality: a.cfg.Output.Quality,
		Prefix:  a.cfg.Output.Prefix,
		Suffix:  a.cfg.Output.Suffix,
	}

	if !isURL(src) {
		var (
			res   *analyzer.Result
			files greenscout.OutputFiles
			err   error
		)
		if opts.saveMasks {
			res, files, err = a.engine.ProcessImageFile(ctx, src, opts.outDir, out)
		} else {
			res, err = a.engine.AnalyzeFile(ctx, src)
		}
		if err != nil {
			rec.Error = err.Error()
			return rec
		}
		rec.Result, rec.Mask, rec.Overlay = res, files.Mask, files.Transparent
		return rec
	}

	img, err := a.engine.Processor().LoadImageFromURL(ctx, src)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	orientation := analyzer.Orientation(opts.orientation)
	if orientation == analyzer.OrientationUnknown {
		orientation = analyzer.OrientationUp
	}
	res, err := a.engine.Analyzer().Analyze(ctx, analyzer.Request{Image: img, Orientation: orientation})
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	rec.Result = res

	if opts.saveMasks {
		name := src[strings.LastIndex(src, "/")+1:]
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
		files, err := a.engine.SaveMasks(res, name, opts.outDir, out)
		if err != nil {
			rec.Error = err.Error()
			return rec
		}
		rec.Mask, rec.Overlay = files.Mask, files.Transparent
	}
	return rec
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// expandSources replaces directories with the image files they contain
func expandSources(args []string, formats []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if utils.DirExists(arg) {
			files, err := utils.ListImageFiles(arg, formats...)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			if len(files) == 0 {
				return nil, fmt.Errorf("no images found in %s", arg)
			}
			out = append(out, files...)
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func formatAnalysisHuman(records []analysisRecord) string {
	var b strings.Builder
	for _, r := range records {
		if r.Error != "" {
			fmt.Fprintf(&b, "✗ %s: %s\n", r.Source, r.Error)
			continue
		}
		c := r.Result.Coverage
		fmt.Fprintf(&b, "✓ %s: %.2f%% green (%d/%d px) in %.2fs\n",
			r.Source, c.GreenPercentage, c.GreenPixelCount, c.TotalPixelCount, c.ProcessingDurationSeconds)
		if r.Result.Quality.Message != "" {
			fmt.Fprintf(&b, "  quality %s: %s\n", r.Result.Quality.Tier, r.Result.Quality.Message)
		}
		if r.Mask != "" {
			fmt.Fprintf(&b, "  mask: %s%s\n", r.Mask, sizeSuffix(r.Mask))
			fmt.Fprintf(&b, "  overlay: %s%s\n", r.Overlay, sizeSuffix(r.Overlay))
		}
	}
	return b.String()
}

func sizeSuffix(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return " (" + utils.FormatFileSize(info.Size()) + ")"
}
