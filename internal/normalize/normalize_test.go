package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontmill/fontmill/internal/ufo"
)

func newFont(t *testing.T, style string, upm int) *ufo.Font {
	t.Helper()
	f, err := ufo.Init(filepath.Join(t.TempDir(), "Test-"+style+".ufo"), "Test", style, upm)
	require.NoError(t, err)
	return f
}

func checksOf(vv []Violation) []string {
	out := make([]string, len(vv))
	for i, v := range vv {
		out[i] = v.Check
	}
	return out
}

func TestLintCleanFont(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{Name: "ka", Width: 600, Unicodes: []rune{0x0D15}}))

	vv, err := LintFont(f)
	require.NoError(t, err)
	assert.Empty(t, vv)
}

func TestLintMissingGlif(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{Name: "ka", Width: 600}))
	require.NoError(t, os.Remove(f.GlifPath("ka")))

	vv, err := LintFont(f)
	require.NoError(t, err)
	assert.Equal(t, []string{CheckMissingGlif}, checksOf(vv))
}

func TestLintOrphanGlif(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	stray := filepath.Join(f.Path, "glyphs", "stray.glif")
	require.NoError(t, os.WriteFile(stray, []byte(`<glyph name="stray" format="2"/>`), 0o644))

	vv, err := LintFont(f)
	require.NoError(t, err)
	require.Len(t, vv, 1)
	assert.Equal(t, CheckOrphanGlif, vv[0].Check)
	assert.Contains(t, vv[0].Message, "stray.glif")
}

func TestLintDanglingComponent(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{
		Name:  "kssa",
		Width: 900,
		Components: []ufo.Component{
			{Base: "ka", XScale: 1, YScale: 1},
		},
	}))

	vv, err := LintFont(f)
	require.NoError(t, err)
	require.Len(t, vv, 1)
	assert.Equal(t, CheckDanglingBase, vv[0].Check)
	assert.Contains(t, vv[0].Message, `"ka"`)
}

func TestLintDuplicateUnicode(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{Name: "ka", Unicodes: []rune{0x0D15}}))
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{Name: "ka.alt", Unicodes: []rune{0x0D15}}))

	vv, err := LintFont(f)
	require.NoError(t, err)
	require.Len(t, vv, 1)
	assert.Equal(t, CheckDuplicateUnicode, vv[0].Check)
	assert.Contains(t, vv[0].Message, "U+0D15")
	assert.Contains(t, vv[0].Message, "ka, ka.alt")
}

func TestLintGlyphOrderMismatch(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{Name: "ka"}))
	f.Lib["public.glyphOrder"] = []any{"ka", "ka", "ghost"}

	vv, err := LintFont(f)
	require.NoError(t, err)
	checks := checksOf(vv)
	assert.Equal(t, []string{CheckGlyphOrder, CheckGlyphOrder}, checks)
	assert.Contains(t, vv[0].Message, "listed 2 times")
	assert.Contains(t, vv[1].Message, `"ghost"`)
}

func TestLintFamilyUnitsPerEm(t *testing.T) {
	a := newFont(t, "Regular", 1000)
	b := newFont(t, "Bold", 2048)

	vv, err := LintFamily([]string{a.Path, b.Path})
	require.NoError(t, err)
	require.Len(t, vv, 1)
	assert.Equal(t, CheckUnitsPerEm, vv[0].Check)
	assert.Contains(t, vv[0].Message, "2048")
}

func TestNormalizeStable(t *testing.T) {
	f := newFont(t, "Regular", 1000)
	require.NoError(t, f.WriteGlyph(&ufo.Glyph{Name: "ka", Width: 600.0001}))

	require.NoError(t, Normalize([]string{f.Path}))
	first, err := os.ReadFile(f.GlifPath("ka"))
	require.NoError(t, err)

	require.NoError(t, Normalize([]string{f.Path}))
	second, err := os.ReadFile(f.GlifPath("ka"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestErrorAggregation(t *testing.T) {
	assert.NoError(t, Error(nil))

	err := Error([]Violation{
		{UFO: "/x/Test-Regular.ufo", Check: CheckMissingGlif, Message: "glyph missing"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 problem(s)")
	assert.Contains(t, err.Error(), CheckMissingGlif)
}
