package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
)

// NewInstallCommand creates the install command
func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the OTF binaries into the system font directory",
		Long: `Copy the built OTF binaries into <prefix>/<family> (default
/usr/share/fonts). Set DESTDIR to stage into a packaging root.
Requires built binaries; run 'fontmill build otf' first.`,
		RunE: runInstall,
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	dest := cfg.InstallDir()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	err = ui.WithProgress(cmd.OutOrStdout(), len(cfg.Weights), flagNoColor, func(bar *ui.ProgressBar) error {
		for _, weight := range cfg.Weights {
			bar.Step(weight)
			src := cfg.BinaryPath(weight, "otf")
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("no binary for %s (run `fontmill build otf` first): %w", weight, err)
			}
			target := filepath.Join(dest, filepath.Base(src))
			if err := copyFile(src, target); err != nil {
				return err
			}
			verbosef("installed %s", target)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(),
		fmt.Sprintf("Installed %d weight(s) into %s", len(cfg.Weights), dest), flagNoColor)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
