package webfont

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// WOFF2Encoder wraps the external WOFF2 compressor (woff2_compress by
// default). The encoder writes its output next to its input, so the
// input is staged into a scratch directory and the result renamed into
// place.
type WOFF2Encoder struct {
	Command string

	Stdout io.Writer
	Stderr io.Writer
}

// Encode compresses the binary at inPath into a WOFF2 file at outPath.
func (e *WOFF2Encoder) Encode(ctx context.Context, inPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	scratch, err := os.MkdirTemp(filepath.Dir(outPath), "fontmill-woff2-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	staged := filepath.Join(scratch, filepath.Base(inPath))
	if err := copyFile(inPath, staged); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.Command, staged)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", e.Command, inPath, err)
	}

	ext := filepath.Ext(staged)
	produced := strings.TrimSuffix(staged, ext) + ".woff2"
	if _, err := os.Stat(produced); err != nil {
		return fmt.Errorf("%s produced no woff2 output for %s", e.Command, inPath)
	}
	return os.Rename(produced, outPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
