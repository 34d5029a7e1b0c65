package checks

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/os2"

	"github.com/fontmill/fontmill/internal/designspace"
	"github.com/fontmill/fontmill/internal/project"
)

// fakeSfnt assembles a table directory with empty tables, enough for
// the raw directory parse.
func fakeSfnt(tags ...string) []byte {
	var out bytes.Buffer
	w := func(v any) { binary.Write(&out, binary.BigEndian, v) }
	w(uint32(0x4F54544F))
	w(uint16(len(tags)))
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))
	for _, tag := range tags {
		w([]byte(tag))
		w(uint32(0)) // checksum
		w(uint32(0)) // offset
		w(uint32(0)) // length
	}
	return out.Bytes()
}

func testConfig(t *testing.T) *project.Config {
	t.Helper()
	return &project.Config{
		Family:      "Sundar",
		Weights:     []string{"Regular", "Bold"},
		Root:        t.TempDir(),
		Designspace: "sources/Sundar.designspace",
	}
}

func testDoc() *designspace.Document {
	return &designspace.Document{
		Axes: []designspace.Axis{
			{Tag: "wght", Name: "Weight", Minimum: 100, Maximum: 700, Default: 400},
		},
		Sources: []designspace.Source{
			{
				Filename:  "Sundar-Regular.ufo",
				StyleName: "Regular",
				Location:  []designspace.Dimension{{Name: "Weight", XValue: 400}},
			},
			{
				Filename:  "Sundar-Bold.ufo",
				StyleName: "Bold",
				Location:  []designspace.Dimension{{Name: "Weight", XValue: 700}},
			},
		},
	}
}

func TestTableTags(t *testing.T) {
	tags, err := tableTags(fakeSfnt("cmap", "head", "name"))
	require.NoError(t, err)
	assert.True(t, tags["cmap"])
	assert.True(t, tags["head"])
	assert.False(t, tags["hmtx"])

	_, err = tableTags([]byte("abc"))
	assert.ErrorContains(t, err, "too short")

	truncated := fakeSfnt("cmap")[:14]
	_, err = tableTags(truncated)
	assert.ErrorContains(t, err, "past end of file")
}

func TestCheckTables(t *testing.T) {
	r := NewRunner(testConfig(t))

	complete := fakeSfnt("OS/2", "cmap", "head", "hhea", "hmtx", "name", "post")
	res := r.checkTables([]weightBinary{
		{weight: "Regular", raw: complete},
		{weight: "Bold", raw: complete},
	})
	assert.Equal(t, Pass, res.Status)

	res = r.checkTables([]weightBinary{
		{weight: "Regular", raw: complete},
		{weight: "Bold", raw: fakeSfnt("cmap", "head", "hhea", "hmtx", "name")},
	})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "Bold: missing OS/2, post")
}

func TestCheckNameEntries(t *testing.T) {
	r := NewRunner(testConfig(t))

	good := &sfnt.Font{FamilyName: "Sundar", Version: 1 << 16}
	res := r.checkNameEntries([]weightBinary{{weight: "Regular", info: good}})
	assert.Equal(t, Pass, res.Status)

	res = r.checkNameEntries([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{FamilyName: "Wrong", Version: 1 << 16}},
	})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, `family name "Wrong", want "Sundar"`)

	res = r.checkNameEntries([]weightBinary{
		{weight: "Bold", info: &sfnt.Font{FamilyName: "Sundar"}},
	})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "no version record")
}

func TestCheckUnitsPerEm(t *testing.T) {
	r := NewRunner(testConfig(t))

	res := r.checkUnitsPerEm([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{UnitsPerEm: 1000}},
		{weight: "Bold", info: &sfnt.Font{UnitsPerEm: 1000}},
	})
	assert.Equal(t, Pass, res.Status)
	assert.Contains(t, res.Message, "1000")

	res = r.checkUnitsPerEm([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{UnitsPerEm: 1000}},
		{weight: "Bold", info: &sfnt.Font{UnitsPerEm: 2048}},
	})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "Regular=1000, Bold=2048")
}

func TestCheckWeightClass(t *testing.T) {
	r := NewRunner(testConfig(t))
	doc := testDoc()

	res := r.checkWeightClass([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{Weight: 400}},
		{weight: "Bold", info: &sfnt.Font{Weight: 700}},
	}, doc)
	assert.Equal(t, Pass, res.Status)

	res = r.checkWeightClass([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{Weight: 400}},
		{weight: "Bold", info: &sfnt.Font{Weight: 400}},
	}, doc)
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "Bold: usWeightClass 400, designspace says 700")

	res = r.checkWeightClass(nil, &designspace.Document{})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "no wght axis")
}

func TestCheckFSType(t *testing.T) {
	r := NewRunner(testConfig(t))

	res := r.checkFSType([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{PermUse: os2.PermInstall}},
	})
	assert.Equal(t, Pass, res.Status)

	res = r.checkFSType([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{PermUse: os2.PermRestricted}},
	})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "Regular: embedding restricted")
}

func TestCheckVersion(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunner(cfg)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "VERSION"), []byte("1.5\n"), 0o644))

	match := &sfnt.Font{Version: 1<<16 + 1<<15} // 1.5 in 16.16
	res := r.checkVersion([]weightBinary{{weight: "Regular", info: match}})
	assert.Equal(t, Pass, res.Status)

	res = r.checkVersion([]weightBinary{
		{weight: "Regular", info: &sfnt.Font{Version: 1 << 16}},
	})
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "VERSION file says 1.5")
}

func TestCheckVersionMissingFile(t *testing.T) {
	r := NewRunner(testConfig(t))
	res := r.checkVersion(nil)
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "VERSION")
}

func TestCheckDesignspace(t *testing.T) {
	r := NewRunner(testConfig(t))

	res := r.checkDesignspace(testDoc())
	assert.Equal(t, Pass, res.Status)

	doc := testDoc()
	doc.Sources = doc.Sources[:1]
	res = r.checkDesignspace(doc)
	assert.Equal(t, Fail, res.Status)
	assert.Contains(t, res.Message, "weight Bold has no designspace source")
}

func TestRunnerHonorsExcludes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validator.Exclude = []string{CheckFSType, CheckMonotonic}
	r := NewRunner(cfg)

	assert.True(t, r.exclude[CheckFSType])
	assert.True(t, r.exclude[CheckMonotonic])
	assert.False(t, r.exclude[CheckTables])
}

func TestFailed(t *testing.T) {
	assert.False(t, Failed(nil))
	assert.False(t, Failed([]Result{{ID: CheckTables, Status: Pass}}))
	assert.False(t, Failed([]Result{{ID: CheckMonotonic, Status: Warn}}))
	assert.True(t, Failed([]Result{
		{ID: CheckTables, Status: Pass},
		{ID: CheckCoverage, Status: Fail},
	}))
}

func TestJoinLimited(t *testing.T) {
	assert.Equal(t, "a; b", joinLimited([]string{"a", "b"}, 8))
	assert.Equal(t, "a; b; and 2 more", joinLimited([]string{"a", "b", "c", "d"}, 2))
}

func TestDiffRunes(t *testing.T) {
	a := map[rune]bool{'a': true, 'b': true, 'c': true}
	b := map[rune]bool{'b': true}
	assert.Equal(t, []rune{'a', 'c'}, diffRunes(a, b))
	assert.Empty(t, diffRunes(b, a))
}
