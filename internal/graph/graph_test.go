package graph

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, fs afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	require.NoError(t, fs.Chtimes(path, mtime, mtime))
}

func writeRule(fs afero.Fs, output string, ran *int) Action {
	return func(ctx context.Context) error {
		*ran++
		return afero.WriteFile(fs, output, []byte("out"), 0o644)
	}
}

func TestBuildRunsChainInDependencyOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "src/a.txt", "a", base)

	var order []string
	g := New(fs)
	g.Add(&Rule{
		Output: "build/mid",
		Inputs: []string{"src/a.txt"},
		Action: func(ctx context.Context) error {
			order = append(order, "mid")
			return afero.WriteFile(fs, "build/mid", []byte("m"), 0o644)
		},
	})
	g.Add(&Rule{
		Output: "build/final",
		Inputs: []string{"build/mid"},
		Action: func(ctx context.Context) error {
			order = append(order, "final")
			return afero.WriteFile(fs, "build/final", []byte("f"), 0o644)
		},
	})

	require.NoError(t, g.Build(context.Background(), "build/final"))
	assert.Equal(t, []string{"mid", "final"}, order)
}

func TestBuildSkipsFreshOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "src/a.txt", "a", base)
	touch(t, fs, "build/out", "out", base.Add(time.Minute))

	ran := 0
	g := New(fs)
	g.Add(&Rule{Output: "build/out", Inputs: []string{"src/a.txt"}, Action: writeRule(fs, "build/out", &ran)})

	require.NoError(t, g.Build(context.Background(), "build/out"))
	assert.Zero(t, ran)

	// dirtying the input forces a rebuild
	touch(t, fs, "src/a.txt", "changed", base.Add(2*time.Minute))
	g2 := New(fs)
	g2.Add(&Rule{Output: "build/out", Inputs: []string{"src/a.txt"}, Action: writeRule(fs, "build/out", &ran)})
	require.NoError(t, g2.Build(context.Background(), "build/out"))
	assert.Equal(t, 1, ran)
}

func TestDirectoryInputDirtiesOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "src/Test.ufo/glyphs/ka.glif", "v1", base)
	require.NoError(t, fs.Chtimes("src/Test.ufo", base, base))
	touch(t, fs, "build/out.otf", "bin", base.Add(time.Minute))

	ran := 0
	g := New(fs)
	g.Add(&Rule{Output: "build/out.otf", Inputs: []string{"src/Test.ufo"}, Action: writeRule(fs, "build/out.otf", &ran)})
	require.NoError(t, g.Build(context.Background(), "build/out.otf"))
	assert.Zero(t, ran)

	// a nested glif edit must be seen even if the dir mtime is stale
	touch(t, fs, "src/Test.ufo/glyphs/ka.glif", "v2", base.Add(2*time.Minute))
	require.NoError(t, fs.Chtimes("src/Test.ufo", base, base))

	g2 := New(fs)
	g2.Add(&Rule{Output: "build/out.otf", Inputs: []string{"src/Test.ufo"}, Action: writeRule(fs, "build/out.otf", &ran)})
	require.NoError(t, g2.Build(context.Background(), "build/out.otf"))
	assert.Equal(t, 1, ran)
}

func TestPatternRule(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "sources/Test-Bold.ufo/fontinfo.plist", "x", base)

	ran := 0
	g := New(fs)
	g.AddPattern(func(target string) (*Rule, bool) {
		if !strings.HasSuffix(target, ".otf") {
			return nil, false
		}
		weight := strings.TrimSuffix(filepath.Base(target), ".otf")
		return &Rule{
			Output: target,
			Inputs: []string{"sources/" + weight + ".ufo"},
			Action: writeRule(fs, target, &ran),
		}, true
	})

	require.NoError(t, g.Build(context.Background(), "build/Test-Bold.otf"))
	assert.Equal(t, 1, ran)
	exists, _ := afero.Exists(fs, "build/Test-Bold.otf")
	assert.True(t, exists)
}

func TestConcreteRuleBuildsPatternProducedInput(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "sources/Test-Bold.ufo/fontinfo.plist", "x", base)

	otfRan := 0
	g := New(fs)
	g.AddPattern(func(target string) (*Rule, bool) {
		if !strings.HasSuffix(target, ".otf") {
			return nil, false
		}
		weight := strings.TrimSuffix(filepath.Base(target), ".otf")
		return &Rule{
			Output: target,
			Inputs: []string{"sources/" + weight + ".ufo"},
			Action: writeRule(fs, target, &otfRan),
		}, true
	})

	pdfRan := 0
	g.Add(&Rule{
		Output: "build/Test-Bold-glyphs.pdf",
		Inputs: []string{"build/Test-Bold.otf"},
		Action: func(ctx context.Context) error {
			pdfRan++
			if ok, _ := afero.Exists(fs, "build/Test-Bold.otf"); !ok {
				return errors.New("input missing")
			}
			return afero.WriteFile(fs, "build/Test-Bold-glyphs.pdf", []byte("pdf"), 0o644)
		},
	})

	require.NoError(t, g.Build(context.Background(), "build/Test-Bold-glyphs.pdf"))
	assert.Equal(t, 1, otfRan, "the pattern-produced input must be built first")
	assert.Equal(t, 1, pdfRan)
}

func TestRebuildOnSameGraphSeesNewEdits(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "src/a.txt", "v1", base)

	ran := 0
	g := New(fs)
	g.Add(&Rule{Output: "build/out", Inputs: []string{"src/a.txt"}, Action: writeRule(fs, "build/out", &ran)})

	require.NoError(t, g.Build(context.Background(), "build/out"))
	require.Equal(t, 1, ran)

	touch(t, fs, "src/a.txt", "v2", time.Now())
	require.NoError(t, g.Build(context.Background(), "build/out"))
	assert.Equal(t, 2, ran, "a second Build on the same graph must not trust stale memos")
}

func TestAggregateBuildsMembersAndAbortsOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := errors.New("boom")

	var built []string
	g := New(fs)
	g.Add(&Rule{Output: "build/a", Action: func(ctx context.Context) error {
		built = append(built, "a")
		return afero.WriteFile(fs, "build/a", []byte("a"), 0o644)
	}})
	g.Add(&Rule{Output: "build/b", Action: func(ctx context.Context) error {
		return boom
	}})
	g.Add(&Rule{Output: "build/c", Action: func(ctx context.Context) error {
		built = append(built, "c")
		return afero.WriteFile(fs, "build/c", []byte("c"), 0o644)
	}})
	g.AddAggregate("all", "build/a", "build/b", "build/c")

	err := g.Build(context.Background(), "all")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	// fail-fast: c never runs
	assert.Equal(t, []string{"a"}, built)
}

func TestCycleDetection(t *testing.T) {
	fs := afero.NewMemMapFs()
	nop := func(ctx context.Context) error { return nil }

	g := New(fs)
	g.Add(&Rule{Output: "a", Inputs: []string{"b"}, Action: nop})
	g.Add(&Rule{Output: "b", Inputs: []string{"c"}, Action: nop})
	g.Add(&Rule{Output: "c", Inputs: []string{"a"}, Action: nop})

	err := g.Build(context.Background(), "a")
	require.Error(t, err)

	var cerr *CycleError
	require.ErrorAs(t, err, &cerr)
	require.NotEmpty(t, cerr.Path)
	assert.Equal(t, cerr.Path[0], cerr.Path[len(cerr.Path)-1])
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestMissingRuleAndSource(t *testing.T) {
	g := New(afero.NewMemMapFs())
	err := g.Build(context.Background(), "build/nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rule to build")
}

func TestContextCancellationStopsBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := 0
	g := New(fs)
	g.Add(&Rule{Output: "build/out", Action: writeRule(fs, "build/out", &ran)})

	err := g.Build(ctx, "build/out")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran)
}

func TestHashCacheDetectsBackdatedChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)
	touch(t, fs, "src/a.txt", "v1", base)

	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	ran := 0
	mkGraph := func() *Graph {
		g := New(fs)
		g.SetCache(cache)
		g.Add(&Rule{Output: "build/out", Inputs: []string{"src/a.txt"}, Action: writeRule(fs, "build/out", &ran)})
		return g
	}

	require.NoError(t, mkGraph().Build(context.Background(), "build/out"))
	require.Equal(t, 1, ran)
	require.NoError(t, fs.Chtimes("build/out", base.Add(time.Minute), base.Add(time.Minute)))

	// same content, fresh mtimes: nothing to do
	require.NoError(t, mkGraph().Build(context.Background(), "build/out"))
	require.Equal(t, 1, ran)

	// content change with a backdated mtime still dirties the output
	touch(t, fs, "src/a.txt", "v2", base)
	require.NoError(t, mkGraph().Build(context.Background(), "build/out"))
	assert.Equal(t, 2, ran)
}
