package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/exporter"
	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/render"
	"github.com/petmvp/passportview/internal/shared"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <passport-number>",
	Short: "Render one passport to a file or stdout",
	Long: `Fetch a passport from the backend and render the booklet.

Examples:
  passportview render BG01AB123456 --lang bg --format pdf --out rex.pdf
  passportview render BG01AB123456 --format json | jq .failed_sections`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := renderOptions{}
		opts.Language, _ = cmd.Flags().GetString("lang")
		opts.Section, _ = cmd.Flags().GetString("section")
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Out, _ = cmd.Flags().GetString("out")

		cfg, err := loadRenderConfig(configPath)
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runRender(ctx, cfg, args[0], opts, cmd.OutOrStdout())
	},
}

func init() {
	renderCmd.Flags().String("lang", "", "national language of the booklet (default from config)")
	renderCmd.Flags().String("section", "", "page shown first (default cover)")
	renderCmd.Flags().String("format", "html", "output format: html, json or pdf")
	renderCmd.Flags().String("out", "", "output file (default stdout)")
}

// renderOptions are the flags of the render command
type renderOptions struct {
	Language string
	Section  string
	Format   string
	Out      string
}

// loadRenderConfig loads the configuration file when present; render works on defaults otherwise.
// Console logs go to stderr so stdout only carries the document.
func loadRenderConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultConfigPath
	}

	cfg := config.Default()
	if config.Exists(path) {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if appErr := cfg.Validate(); appErr != nil {
		return nil, appErr
	}

	cfg.Logging.Stderr = true
	if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	return cfg, nil
}

// runRender renders one passport and writes it to opts.Out, or to stdout when empty
func runRender(ctx context.Context, cfg *config.Config, number string, opts renderOptions, stdout io.Writer) error {
	exportFormat, err := exporter.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	services, err := shared.Init(cfg, telemetry.GetMetrics())
	if err != nil {
		return err
	}

	res, err := services.Controller.View(ctx, number, render.ViewOptions{
		Language: opts.Language,
		Section:  opts.Section,
	})
	if err != nil {
		return err
	}
	for _, f := range res.Failed {
		logger.Debug("Page left empty",
			zap.String(logger.FieldSection, f.Section),
			zap.String("error", f.Message),
		)
	}
	if len(res.Failed) > 0 {
		logger.Warn("Some pages were left empty", zap.Strings("pages", emptyPages(res.Failed)))
	}

	if opts.Out != "" {
		return services.Exporters.ExportToFile(ctx, res, opts.Out, exportFormat)
	}

	data, err := services.Exporters.Export(ctx, res, exportFormat)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

// emptyPages names the failed pages for people: "rabies-vaccination" -> "rabies vaccination"
func emptyPages(failed []render.SectionFailure) []string {
	pages := make([]string, len(failed))
	for i, f := range failed {
		pages[i] = format.ToKebabCase(format.ToSnakeCase(f.Section))
	}
	return pages
}
