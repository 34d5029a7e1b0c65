package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fontmill/fontmill/internal/cli/ui"
	"github.com/fontmill/fontmill/internal/normalize"
	"github.com/fontmill/fontmill/internal/pipeline"
)

var buildNoCache bool

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [target]",
		Short: "Build font binaries, webfonts and proofs",
		Long: `Run the build graph for a target. Only artifacts whose inputs
changed since the last successful build are rebuilt.

Targets:
  otf       - production OTF binaries, one per weight (default)
  ttf       - TTF binaries for interpolation testing
  webfonts  - WOFF and WOFF2 containers
  proofs    - PDF proof sheets
  all       - everything above

A concrete output path under build/ is also accepted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBuild,
	}

	cmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Skip the content-hash cache, trust mtimes alone")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	target := "otf"
	if len(args) > 0 {
		target = args[0]
	}

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if !knownTarget(target) && !looksLikePath(target) {
		suggestions := ui.FindSimilar(target, pipeline.Targets, nil)
		fmt.Fprint(cmd.ErrOrStderr(), ui.FormatError(ui.ErrorOptions{
			Level:       ui.ErrorLevelError,
			Context:     "UNKNOWN TARGET",
			Problem:     fmt.Sprintf("No build target '%s'.", target),
			Suggestions: suggestions,
			HelpCommands: []string{
				"See targets: fontmill build --help",
			},
			NoColor: flagNoColor,
		}))
		return fmt.Errorf("unknown target %q", target)
	}

	// Dirty sources never reach the compiler.
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

	start := time.Now()
	p, err := pipeline.New(cfg, pipeline.Options{
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Log:     verbosef,
		NoCache: buildNoCache,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Build(cmd.Context(), target); err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.BuildError(err.Error(), nil, flagNoColor))
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(),
		fmt.Sprintf("Built %s in %s", target, time.Since(start).Round(time.Millisecond)),
		flagNoColor)
	return nil
}

func knownTarget(target string) bool {
	for _, t := range pipeline.Targets {
		if t == target {
			return true
		}
	}
	return false
}

func looksLikePath(target string) bool {
	for _, r := range target {
		if r == '/' || r == '\\' || r == '.' {
			return true
		}
	}
	return false
}
