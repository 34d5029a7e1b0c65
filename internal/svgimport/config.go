// Package svgimport converts SVG glyph drawings into UFO glyph entries,
// driven by a per-weight YAML configuration.
package svgimport

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the per-weight import configuration document.
type Config struct {
	Font FontConfig             `yaml:"font"`
	SVGs map[string]GlyphConfig `yaml:"svgs"`
}

// FontConfig holds the font-level import parameters.
type FontConfig struct {
	// UFO is the path of the target UFO package, relative to the config file.
	UFO string `yaml:"ufo"`
	// Transform is a 6-element affine matrix "a b c d e f" applied to
	// every imported outline, mapping SVG coordinates to font units.
	Transform string `yaml:"transform"`
	// Version is the GLIF format version to emit.
	Version int `yaml:"version"`
}

// GlyphConfig describes how one drawing maps onto a glyph.
type GlyphConfig struct {
	GlyphName string `yaml:"glyph_name"`
	// Unicode holds space- or comma-separated hex code points, empty for
	// unencoded glyphs.
	Unicode string `yaml:"unicode"`
	Left    int    `yaml:"left"`
	Right   int    `yaml:"right"`
	Base    int    `yaml:"base"`
}

// LoadConfig reads and validates an import configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Font.UFO == "" {
		return nil, fmt.Errorf("%s: missing font.ufo", path)
	}
	if _, err := parseTransform(cfg.Font.Transform); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Font.Version == 0 {
		cfg.Font.Version = 2
	}
	for name, g := range cfg.SVGs {
		if g.GlyphName == "" {
			return nil, fmt.Errorf("%s: svgs.%s: missing glyph_name", path, name)
		}
	}
	return &cfg, nil
}

// parseTransform parses "a b c d e f" (commas allowed) into a matrix.
func parseTransform(s string) ([6]float64, error) {
	var m [6]float64
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 6 {
		return m, fmt.Errorf("transform needs 6 values, got %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return m, fmt.Errorf("bad transform value %q", f)
		}
		m[i] = v
	}
	return m, nil
}

// parseUnicodes parses space- or comma-separated hex code points.
func parseUnicodes(s string) ([]rune, error) {
	var out []rune
	for _, f := range strings.Fields(strings.ReplaceAll(s, ",", " ")) {
		n, err := strconv.ParseUint(strings.TrimPrefix(f, "U+"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad unicode value %q", f)
		}
		out = append(out, rune(n))
	}
	return out, nil
}
