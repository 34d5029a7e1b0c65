// Package toolchain drives the external programs the pipeline depends
// on: the font compiler and the WOFF2 encoder. Both are black boxes;
// fontmill only arranges their inputs, flags, and output paths.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Compiler invokes the external UFO compiler (fontmake by default).
type Compiler struct {
	// Command is the compiler executable.
	Command string
	// OTFCheck enables the compiler's UFO validity check in OTF mode.
	OTFCheck bool
	// TTFTolerance is the cu2qu conversion error budget, in em units,
	// passed in TTF mode.
	TTFTolerance float64

	// Stdout and Stderr receive the compiler's output; nil streams to
	// the process's own.
	Stdout io.Writer
	Stderr io.Writer
}

// CompileOTF builds a CFF-flavored binary from a UFO source. The
// compiler writes into a scratch directory and the result is renamed
// into place, so an interrupted run never leaves a fresh-looking
// partial artifact at the output path.
func (c *Compiler) CompileOTF(ctx context.Context, ufoPath, outPath string) error {
	args := []string{"-u", ufoPath, "-o", "otf"}
	if !c.OTFCheck {
		args = append(args, "--no-check")
	}
	return c.run(ctx, ufoPath, outPath, ".otf", args)
}

// CompileTTF builds a TrueType-flavored binary, converting the cubic
// sources to quadratic within the configured tolerance.
func (c *Compiler) CompileTTF(ctx context.Context, ufoPath, outPath string) error {
	args := []string{"-u", ufoPath, "-o", "ttf",
		"--conversion-error", strconv.FormatFloat(c.TTFTolerance, 'f', -1, 64)}
	return c.run(ctx, ufoPath, outPath, ".ttf", args)
}

func (c *Compiler) run(ctx context.Context, ufoPath, outPath, ext string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	scratch, err := os.MkdirTemp(filepath.Dir(outPath), "fontmill-compile-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	args = append(args, "--output-dir", scratch)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", c.Command, ufoPath, err)
	}

	built := filepath.Join(scratch, filepath.Base(outPath))
	if _, err := os.Stat(built); err != nil {
		// The compiler names its output after the UFO's family-style;
		// fall back to the only file it produced.
		entries, derr := os.ReadDir(scratch)
		if derr != nil || len(entries) != 1 {
			return fmt.Errorf("%s produced no %s output for %s", c.Command, ext, ufoPath)
		}
		built = filepath.Join(scratch, entries[0].Name())
	}
	return os.Rename(built, outPath)
}
