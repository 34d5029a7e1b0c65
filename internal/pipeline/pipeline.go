// Package pipeline assembles the build graph for a font project: one
// compiled binary per weight and format, webfont containers derived
// from them, and PDF proof sheets, with the content-hash cache kept
// under the build directory.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/language"

	"github.com/fontmill/fontmill/internal/graph"
	"github.com/fontmill/fontmill/internal/project"
	"github.com/fontmill/fontmill/internal/proof"
	"github.com/fontmill/fontmill/internal/toolchain"
	"github.com/fontmill/fontmill/internal/webfont"
)

const cacheFile = "fontmill-cache.db"

// Targets are the named build targets, in the order `fontmill build`
// documents them.
var Targets = []string{"otf", "ttf", "webfonts", "proofs", "all"}

// Options configures pipeline construction.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Log receives progress lines ("build x", "up to date x").
	Log func(format string, args ...any)
	// NoCache disables the persistent hash cache; freshness then
	// rests on mtimes alone.
	NoCache bool
}

// Pipeline wires a project's artifacts into the build graph.
type Pipeline struct {
	cfg   *project.Config
	g     *graph.Graph
	cache *graph.Cache
}

// New builds the graph for cfg. Call Close when done to release the
// hash cache.
func New(cfg *project.Config, opts Options) (*Pipeline, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	script, err := language.ParseScript(cfg.Proofs.Script)
	if err != nil {
		return nil, fmt.Errorf("proofs.script %q: %w", cfg.Proofs.Script, err)
	}
	lang, err := language.Parse(cfg.Proofs.Language)
	if err != nil {
		return nil, fmt.Errorf("proofs.language %q: %w", cfg.Proofs.Language, err)
	}

	if err := os.MkdirAll(cfg.BuildDir(), 0o755); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, g: graph.New(afero.NewOsFs())}
	p.g.Log = opts.Log

	if !opts.NoCache {
		cache, err := graph.OpenCache(filepath.Join(cfg.BuildDir(), cacheFile))
		if err != nil {
			return nil, fmt.Errorf("open hash cache: %w", err)
		}
		p.cache = cache
		p.g.SetCache(cache)
	}

	compiler := &toolchain.Compiler{
		Command:      cfg.Compiler.Command,
		OTFCheck:     cfg.Compiler.OTFCheck,
		TTFTolerance: cfg.Compiler.TTFTolerance,
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
	}
	encoder := &webfont.WOFF2Encoder{
		Command: cfg.Webfonts.WOFF2Command,
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	}

	p.g.AddPattern(p.binaryRule(compiler, encoder))

	var otf, ttf, webfonts, proofs []string
	for _, weight := range cfg.Weights {
		otfPath := cfg.BinaryPath(weight, "otf")
		otf = append(otf, otfPath)
		ttf = append(ttf, cfg.BinaryPath(weight, "ttf"))
		webfonts = append(webfonts,
			cfg.BinaryPath(weight, "woff"), cfg.BinaryPath(weight, "woff2"))

		glyphsPDF := cfg.ProofPath(weight, "glyphs")
		p.g.Add(&graph.Rule{
			Output: glyphsPDF,
			Inputs: []string{otfPath},
			Action: func(ctx context.Context) error {
				if err := os.MkdirAll(filepath.Dir(glyphsPDF), 0o755); err != nil {
					return err
				}
				return proof.GlyphTable(otfPath, glyphsPDF)
			},
		})

		samplesPDF := cfg.ProofPath(weight, "samples")
		samplesInputs := []string{otfPath}
		if _, err := os.Stat(cfg.TestsDir()); err == nil {
			samplesInputs = append(samplesInputs, cfg.TestsDir())
		}
		p.g.Add(&graph.Rule{
			Output: samplesPDF,
			Inputs: samplesInputs,
			Action: func(ctx context.Context) error {
				corpus, err := corpusFiles(cfg.TestsDir())
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(samplesPDF), 0o755); err != nil {
					return err
				}
				return proof.TextSamples(otfPath, samplesPDF, corpus, script, lang)
			},
		})
		proofs = append(proofs, glyphsPDF, samplesPDF)
	}

	p.g.AddAggregate("otf", otf...)
	p.g.AddAggregate("ttf", ttf...)
	p.g.AddAggregate("webfonts", webfonts...)
	p.g.AddAggregate("proofs", proofs...)

	var all []string
	all = append(all, otf...)
	all = append(all, ttf...)
	all = append(all, webfonts...)
	all = append(all, proofs...)
	p.g.AddAggregate("all", all...)

	return p, nil
}

// Build brings target up to date. target is one of Targets or a
// concrete output path.
func (p *Pipeline) Build(ctx context.Context, target string) error {
	return p.g.Build(ctx, target)
}

// Close releases the hash cache.
func (p *Pipeline) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

// binaryRule maps any build/<Family>-<Weight>.<format> path to its
// rule: otf and ttf compile from the weight's UFO, woff repacks the
// otf, woff2 re-encodes the ttf.
func (p *Pipeline) binaryRule(compiler *toolchain.Compiler, encoder *webfont.WOFF2Encoder) graph.PatternFunc {
	return func(target string) (*graph.Rule, bool) {
		if filepath.Dir(target) != p.cfg.BuildDir() {
			return nil, false
		}
		base := filepath.Base(target)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		weight := strings.TrimPrefix(stem, p.cfg.Family+"-")
		if weight == stem || !p.hasWeight(weight) {
			return nil, false
		}

		switch ext {
		case ".otf":
			ufoPath := p.cfg.UFOPath(weight)
			return &graph.Rule{
				Output: target,
				Inputs: []string{ufoPath, p.cfg.DesignspacePath()},
				Action: func(ctx context.Context) error {
					return compiler.CompileOTF(ctx, ufoPath, target)
				},
			}, true
		case ".ttf":
			ufoPath := p.cfg.UFOPath(weight)
			return &graph.Rule{
				Output: target,
				Inputs: []string{ufoPath, p.cfg.DesignspacePath()},
				Action: func(ctx context.Context) error {
					return compiler.CompileTTF(ctx, ufoPath, target)
				},
			}, true
		case ".woff":
			otfPath := p.cfg.BinaryPath(weight, "otf")
			return &graph.Rule{
				Output: target,
				Inputs: []string{otfPath},
				Action: func(ctx context.Context) error {
					return webfont.WriteWOFF1(otfPath, target)
				},
			}, true
		case ".woff2":
			ttfPath := p.cfg.BinaryPath(weight, "ttf")
			return &graph.Rule{
				Output: target,
				Inputs: []string{ttfPath},
				Action: func(ctx context.Context) error {
					return encoder.Encode(ctx, ttfPath, target)
				},
			}, true
		}
		return nil, false
	}
}

func (p *Pipeline) hasWeight(weight string) bool {
	for _, w := range p.cfg.Weights {
		if w == weight {
			return true
		}
	}
	return false
}

// corpusFiles lists the proof corpus, sorted for stable page order.
// A missing corpus directory means an empty corpus, not an error.
func corpusFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
