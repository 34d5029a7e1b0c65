// Package project loads the fontmill project configuration and resolves
// the family's file layout.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the fontmill project configuration.
type Config struct {
	Family  string   `mapstructure:"family"`
	Weights []string `mapstructure:"weights"`

	Dirs      DirsConfig      `mapstructure:"dirs"`
	Compiler  CompilerConfig  `mapstructure:"compiler"`
	Webfonts  WebfontsConfig  `mapstructure:"webfonts"`
	Proofs    ProofsConfig    `mapstructure:"proofs"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Install   InstallConfig   `mapstructure:"install"`

	// Designspace is the path of the family's designspace document.
	Designspace string `mapstructure:"designspace"`

	// Root is the directory the configuration was loaded from.
	Root string `mapstructure:"-"`
}

// DirsConfig represents the project directory layout.
type DirsConfig struct {
	Sources string `mapstructure:"sources"`
	SVGs    string `mapstructure:"svgs"`
	Build   string `mapstructure:"build"`
	Tests   string `mapstructure:"tests"`
}

// CompilerConfig represents the external font compiler invocation.
type CompilerConfig struct {
	Command string `mapstructure:"command"`
	// OTFCheck enables the compiler's UFO validity check in OTF mode.
	OTFCheck bool `mapstructure:"otf_check"`
	// TTFTolerance is the interpolation error budget passed in TTF mode.
	TTFTolerance float64 `mapstructure:"ttf_tolerance"`
}

// WebfontsConfig represents webfont packing options.
type WebfontsConfig struct {
	WOFF2Command string `mapstructure:"woff2_command"`
}

// ProofsConfig represents how proof sheets shape their text samples.
type ProofsConfig struct {
	// Script is the ISO 15924 code the corpus is written in.
	Script string `mapstructure:"script"`
	// Language is a BCP 47 tag passed to the shaper.
	Language string `mapstructure:"language"`
}

// ValidatorConfig represents the conformance check configuration.
type ValidatorConfig struct {
	// Exclude lists check ids skipped by the validator.
	Exclude []string `mapstructure:"exclude"`
}

// InstallConfig represents where `fontmill install` places binaries.
type InstallConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// Load loads fontmill.yml or fontmill.yaml from dir.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("dirs.sources", "sources")
	v.SetDefault("dirs.svgs", "sources/svgs")
	v.SetDefault("dirs.build", "build")
	v.SetDefault("dirs.tests", "tests")
	v.SetDefault("compiler.command", "fontmake")
	v.SetDefault("compiler.otf_check", true)
	v.SetDefault("compiler.ttf_tolerance", 0.25)
	v.SetDefault("webfonts.woff2_command", "woff2_compress")
	v.SetDefault("proofs.script", "Latn")
	v.SetDefault("proofs.language", "en")
	v.SetDefault("validator.exclude", []string{"binary/fstype", "binary/monotonic-weights"})
	v.SetDefault("install.prefix", "/usr/share/fonts")

	v.SetConfigName("fontmill")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Root = dir

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// FindRoot walks upward from the working directory looking for a
// fontmill config file.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "fontmill.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "fontmill.yaml")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a fontmill project (no fontmill.yml found)")
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Family == "" {
		return fmt.Errorf("family must be set")
	}
	if strings.ContainsAny(cfg.Family, " /") {
		return fmt.Errorf("family must be a single file-name-safe word, got: %s", cfg.Family)
	}
	if len(cfg.Weights) == 0 {
		return fmt.Errorf("at least one weight must be listed")
	}
	seen := make(map[string]bool, len(cfg.Weights))
	for _, w := range cfg.Weights {
		if seen[w] {
			return fmt.Errorf("weight %s listed twice", w)
		}
		seen[w] = true
	}
	if cfg.Designspace == "" {
		return fmt.Errorf("designspace must be set")
	}
	return nil
}

// UFOPath returns the source UFO package path for a weight.
func (c *Config) UFOPath(weight string) string {
	return filepath.Join(c.Root, c.Dirs.Sources, c.Family+"-"+weight+".ufo")
}

// SVGDir returns the SVG drawing directory for a weight.
func (c *Config) SVGDir(weight string) string {
	return filepath.Join(c.Root, c.Dirs.SVGs, strings.ToLower(weight))
}

// ImportConfigPath returns the per-weight SVG import configuration file.
func (c *Config) ImportConfigPath(weight string) string {
	return filepath.Join(c.Root, c.Dirs.SVGs, strings.ToLower(weight)+".yaml")
}

// BuildDir returns the build output directory.
func (c *Config) BuildDir() string {
	return filepath.Join(c.Root, c.Dirs.Build)
}

// BinaryPath returns the built binary path for a weight and format
// ("otf", "ttf", "woff", "woff2").
func (c *Config) BinaryPath(weight, format string) string {
	return filepath.Join(c.BuildDir(), c.Family+"-"+weight+"."+format)
}

// ProofPath returns the output path of a proof sheet for a weight.
// kind is "glyphs" or "samples".
func (c *Config) ProofPath(weight, kind string) string {
	return filepath.Join(c.BuildDir(), "proofs", c.Family+"-"+weight+"-"+kind+".pdf")
}

// DesignspacePath returns the absolute designspace document path.
func (c *Config) DesignspacePath() string {
	if filepath.IsAbs(c.Designspace) {
		return c.Designspace
	}
	return filepath.Join(c.Root, c.Designspace)
}

// TestsDir returns the proof corpus directory.
func (c *Config) TestsDir() string {
	return filepath.Join(c.Root, c.Dirs.Tests)
}

// InstallDir returns the directory binaries are installed into,
// honoring a DESTDIR staging override.
func (c *Config) InstallDir() string {
	dir := filepath.Join(c.Install.Prefix, strings.ToLower(c.Family))
	if destdir := os.Getenv("DESTDIR"); destdir != "" {
		dir = filepath.Join(destdir, dir)
	}
	return dir
}

// Version reads the VERSION file at the project root.
func (c *Config) Version() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.Root, "VERSION"))
	if err != nil {
		return "", fmt.Errorf("read VERSION: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("VERSION file is empty")
	}
	return v, nil
}
