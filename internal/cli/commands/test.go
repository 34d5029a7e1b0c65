package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/checks"
	"github.com/fontmill/fontmill/internal/cli/ui"
)

// NewTestCommand creates the test command
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Validate the built binaries and their sources",
		Long: `Run the full conformance battery: source lint, designspace
consistency and the binary checks (tables, name records, weight
classes, coverage, embedding bits, version). Requires built OTF
binaries; run 'fontmill build otf' first.

Check ids listed under validator.exclude in fontmill.yaml are skipped.`,
		RunE: runTest,
	}
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	// The battery reads every binary; the spinner covers the pause.
	var results []checks.Result
	err = ui.WithSpinner(cmd.OutOrStdout(), "Validating "+cfg.Family, flagNoColor, func() error {
		var err error
		results, err = checks.NewRunner(cfg).Run()
		return err
	})
	if err != nil {
		return err
	}

	table := ui.NewTable(cmd.OutOrStdout(), []string{"CHECK", "STATUS", "MESSAGE"},
		&ui.TableOptions{NoColor: flagNoColor})
	for _, res := range results {
		table.AddRow(res.ID, string(res.Status), res.Message)
	}
	table.Render()

	if checks.Failed(results) {
		return fmt.Errorf("validation failed")
	}
	ui.WriteSuccess(cmd.OutOrStdout(), "All checks passed", flagNoColor)
	return nil
}
