package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
	"github.com/fontmill/fontmill/internal/normalize"
)

// NewLintCommand creates the lint command
func NewLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check the UFO sources for structural problems",
		Long: `Run the source linter over every weight's UFO package: missing or
orphaned glif files, dangling component references, duplicate unicode
assignments, glyph-order mismatches and cross-weight metric drift.
The sources are never modified. Any violation exits non-zero.`,
		RunE: runLint,
	}
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	violations, err := normalize.LintFamily(ufoPaths(cfg))
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintln(cmd.ErrOrStderr(), v.String())
		}
		return normalize.Error(violations)
	}

	ui.WriteSuccess(cmd.OutOrStdout(), "Sources are clean", flagNoColor)
	return nil
}
