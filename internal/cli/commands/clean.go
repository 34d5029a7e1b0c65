package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
)

// NewCleanCommand creates the clean command
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the build output directory",
		Long:  "Delete every built artifact and the hash cache. The next build starts from scratch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			if err := os.RemoveAll(cfg.BuildDir()); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Build directory removed", flagNoColor)
			return nil
		},
	}
}
