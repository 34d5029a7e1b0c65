package svgimport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fontmill/fontmill/internal/ufo"
)

// Report summarizes one weight's import run.
type Report struct {
	Imported []string
	Skipped  []string
	Failed   []GlyphError
}

// GlyphError records a per-drawing failure.
type GlyphError struct {
	File string
	Err  error
}

func (e GlyphError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Err returns a single error describing every failed drawing, or nil.
// A failed drawing never aborts its siblings: the importer finishes the
// whole directory and reports the offenders together.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		msgs[i] = f.Error()
	}
	return fmt.Errorf("import failed for %d drawing(s):\n  %s",
		len(r.Failed), strings.Join(msgs, "\n  "))
}

// ImportWeight imports every SVG drawing in svgDir into the UFO package
// named by the configuration at cfgPath. Drawing file name (without
// extension) is the configuration lookup key; drawings without a
// configuration entry are skipped, matching the behavior of the design
// tools that produce stray helper files.
//
// Re-running with unchanged drawings and configuration is idempotent:
// unchanged glyphs are not rewritten.
func ImportWeight(cfgPath, svgDir string) (*Report, error) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	ufoPath := cfg.Font.UFO
	if !filepath.IsAbs(ufoPath) {
		ufoPath = filepath.Join(filepath.Dir(cfgPath), ufoPath)
	}
	font, err := ufo.Open(ufoPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(svgDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".svg") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	report := &Report{}
	for _, file := range files {
		name := strings.TrimSuffix(file, ".svg")
		gcfg, ok := cfg.SVGs[name]
		if !ok {
			report.Skipped = append(report.Skipped, file)
			continue
		}
		if err := importGlyph(font, cfg, gcfg, filepath.Join(svgDir, file)); err != nil {
			report.Failed = append(report.Failed, GlyphError{File: file, Err: err})
			continue
		}
		report.Imported = append(report.Imported, gcfg.GlyphName)
	}
	return report, nil
}

// importGlyph converts one drawing and writes it into the font. The
// glyph's geometry is a pure function of (drawing, config): advance is
// the SVG width plus the configured side bearings, the outline runs
// through the font-level matrix with the bearings and baseline offset
// folded into the translation.
func importGlyph(font *ufo.Font, cfg *Config, gcfg GlyphConfig, svgPath string) error {
	drawing, err := ParseDrawing(svgPath)
	if err != nil {
		return err
	}

	unicodes, err := parseUnicodes(gcfg.Unicode)
	if err != nil {
		return err
	}

	m, err := parseTransform(cfg.Font.Transform)
	if err != nil {
		return err
	}
	m[4] += float64(gcfg.Left)
	m[5] += drawing.Height + float64(gcfg.Base)

	contours, err := drawing.Outline(m)
	if err != nil {
		return err
	}

	g := &ufo.Glyph{
		Name:     gcfg.GlyphName,
		Format:   cfg.Font.Version,
		Width:    drawing.Width + float64(gcfg.Left) + float64(gcfg.Right),
		Height:   font.UnitsPerEm(),
		Unicodes: unicodes,
		Contours: contours,
	}
	return font.WriteGlyph(g)
}
