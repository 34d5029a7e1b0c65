// Package commands implements the fontmill command tree.
package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
	"github.com/fontmill/fontmill/internal/project"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagVerbose bool
	flagNoColor bool
	flagJobs    int
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fontmill",
		Short: "Build pipeline for UFO font families",
		Long: color.CyanString(`fontmill - font family build pipeline

fontmill turns a directory of SVG glyph drawings and UFO masters into
installable OpenType binaries, webfonts and PDF proof sheets, driven
by a content-hash-aware build graph.

Typical loop:
  • fontmill glyphs   - import SVG drawings into the UFO sources
  • fontmill build    - compile OTF binaries for every weight
  • fontmill test     - lint the sources and validate the binaries
  • fontmill proof    - render PDF proof sheets`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Show detailed output")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	pf.IntVar(&flagJobs, "jobs", 1, "Reserved; builds run sequentially")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewNewCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewGlyphsCommand())
	rootCmd.AddCommand(NewUFOCommand())
	rootCmd.AddCommand(NewLintCommand())
	rootCmd.AddCommand(NewTestCommand())
	rootCmd.AddCommand(NewProofCommand())
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewWatchCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the fontmill version and, inside a project, the family version from the VERSION file",
		Run: func(cmd *cobra.Command, args []string) {
			table := ui.NewKeyValueTable(cmd.OutOrStdout(), flagNoColor)
			table.AddRow("fontmill version", Version)
			table.AddRow("Git commit", GitCommit)
			table.AddRow("Build date", BuildDate)
			table.AddRow("Go version", runtime.Version())

			if cfg, err := loadProject(); err == nil {
				table.AddRow("Family", cfg.Family)
				if v, err := cfg.Version(); err == nil {
					table.AddRow("Family version", v)
				}
			}
			table.Render()
		},
	}
}

// loadProject locates the enclosing fontmill project and loads its
// configuration.
func loadProject() (*project.Config, error) {
	root, err := project.FindRoot()
	if err != nil {
		return nil, err
	}
	return project.Load(root)
}

// ufoPaths returns the source UFO paths for every configured weight.
func ufoPaths(cfg *project.Config) []string {
	paths := make([]string, len(cfg.Weights))
	for i, w := range cfg.Weights {
		paths[i] = cfg.UFOPath(w)
	}
	return paths
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// verbosef prints one line of progress when --verbose is set.
func verbosef(format string, args ...any) {
	if !flagVerbose {
		return
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Printf(format, args...)
}
