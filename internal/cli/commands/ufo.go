package commands

import (
	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
	"github.com/fontmill/fontmill/internal/normalize"
)

// NewUFOCommand creates the ufo command
func NewUFOCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ufo",
		Short: "Import glyphs and normalize the UFO sources",
		Long: `Run the SVG import for every weight, then rewrite each UFO package
through the canonical serializer. Normalization is a semantic no-op:
running it twice produces byte-identical sources.`,
		RunE: runUFO,
	}
}

func runUFO(cmd *cobra.Command, args []string) error {
	if err := runGlyphs(cmd, nil); err != nil {
		return err
	}

	cfg, err := loadProject()
	if err != nil {
		return err
	}
	if err := normalize.Normalize(ufoPaths(cfg)); err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), "Sources normalized", flagNoColor)
	return nil
}
