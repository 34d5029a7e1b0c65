package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
	"github.com/fontmill/fontmill/internal/pipeline"
)

// NewProofCommand creates the proof command
func NewProofCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proof",
		Short: "Render PDF proof sheets for every weight",
		Long: `Render two proof sheets per weight into build/proofs/: a glyph
table covering every encoded character, and text samples from the
corpus files under tests/, shaped with the font's own substitution
and positioning rules. Builds the binaries first if they are stale.`,
		RunE: runProof,
	}
}

func runProof(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, pipeline.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Log:    verbosef,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Build(cmd.Context(), "proofs"); err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(),
		fmt.Sprintf("Proof sheets in %s", cfg.BuildDir()+"/proofs"), flagNoColor)
	return nil
}
