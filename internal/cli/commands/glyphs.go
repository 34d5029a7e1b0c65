package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
	"github.com/fontmill/fontmill/internal/project"
	"github.com/fontmill/fontmill/internal/svgimport"
)

// NewGlyphsCommand creates the glyphs command
func NewGlyphsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "glyphs [weight...]",
		Short: "Import SVG glyph drawings into the UFO sources",
		Long: `Import every configured SVG drawing into its weight's UFO package.
Unchanged glyphs are left untouched, so repeated imports are cheap and
never dirty the build.

A malformed drawing skips only that glyph; the import finishes the
directory and reports all offenders together.`,
		RunE: runGlyphs,
	}
}

func runGlyphs(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	weights, err := selectWeights(cfg, args)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.WeightNotFoundError(
			err.Error(), ui.FindSimilar(err.Error(), cfg.Weights, nil), flagNoColor))
		return fmt.Errorf("unknown weight %q", err.Error())
	}

	var failures []error
	for _, weight := range weights {
		cfgPath := cfg.ImportConfigPath(weight)
		if _, err := os.Stat(cfgPath); err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(
				fmt.Sprintf("%s: no import config at %s, skipping", weight, cfgPath),
				nil, flagNoColor))
			continue
		}

		report, err := svgimport.ImportWeight(cfgPath, cfg.SVGDir(weight))
		if err != nil {
			return fmt.Errorf("%s: %w", weight, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d imported, %d skipped, %d failed\n",
			weight, len(report.Imported), len(report.Skipped), len(report.Failed))
		for _, skipped := range report.Skipped {
			verbosef("  skipped %s", skipped)
		}
		if err := report.Err(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	ui.WriteSuccess(cmd.OutOrStdout(), "Glyphs imported", flagNoColor)
	return nil
}

// selectWeights narrows the configured weights to the requested ones.
// The returned error message is the first unknown weight name.
func selectWeights(cfg *project.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return cfg.Weights, nil
	}
	known := make(map[string]bool, len(cfg.Weights))
	for _, w := range cfg.Weights {
		known[w] = true
	}
	for _, w := range args {
		if !known[w] {
			return nil, errors.New(w)
		}
	}
	return args, nil
}
