// Package checks runs the conformance battery over a family's built
// binaries and UFO sources.
package checks

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/head"
	"seehuhn.de/go/sfnt/os2"

	"github.com/fontmill/fontmill/internal/designspace"
	"github.com/fontmill/fontmill/internal/normalize"
	"github.com/fontmill/fontmill/internal/project"
)

// Status is the outcome of a single check.
type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
	Warn Status = "WARN"
)

// Result is the outcome of one check over the whole family.
type Result struct {
	ID      string
	Status  Status
	Message string
}

// Check ids. These are stable strings, usable in validator.exclude.
const (
	CheckTables      = "binary/tables"
	CheckNameEntries = "binary/name-entries"
	CheckUnitsPerEm  = "binary/units-per-em"
	CheckWeightClass = "binary/weight-class"
	CheckCoverage    = "binary/glyph-coverage"
	CheckMonotonic   = "binary/monotonic-weights"
	CheckFSType      = "binary/fstype"
	CheckVersion     = "binary/version-string"
	CheckUFOLint     = "ufo/lint"
	CheckDesignspace = "designspace/sources"
)

var requiredTables = []string{"OS/2", "cmap", "head", "hhea", "hmtx", "name", "post"}

// Runner loads a family's binaries once and runs every check that is
// not excluded by the project configuration.
type Runner struct {
	cfg     *project.Config
	exclude map[string]bool
}

// NewRunner returns a Runner honoring cfg.Validator.Exclude.
func NewRunner(cfg *project.Config) *Runner {
	exclude := make(map[string]bool, len(cfg.Validator.Exclude))
	for _, id := range cfg.Validator.Exclude {
		exclude[id] = true
	}
	return &Runner{cfg: cfg, exclude: exclude}
}

// weightBinary is one weight's compiled binary, parsed and raw.
type weightBinary struct {
	weight string
	path   string
	raw    []byte
	info   *sfnt.Font
}

// Run executes the battery in fixed order. A missing or unreadable
// binary aborts the run; individual conformance problems come back as
// FAIL results instead.
func (r *Runner) Run() ([]Result, error) {
	doc, err := designspace.Load(r.cfg.DesignspacePath())
	if err != nil {
		return nil, err
	}

	bins := make([]weightBinary, 0, len(r.cfg.Weights))
	for _, w := range r.cfg.Weights {
		path := r.cfg.BinaryPath(w, "otf")
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("no binary for %s (run `fontmill build otf` first): %w", w, err)
		}
		info, err := sfnt.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		bins = append(bins, weightBinary{weight: w, path: path, raw: raw, info: info})
	}

	battery := []struct {
		id  string
		run func() Result
	}{
		{CheckTables, func() Result { return r.checkTables(bins) }},
		{CheckNameEntries, func() Result { return r.checkNameEntries(bins) }},
		{CheckUnitsPerEm, func() Result { return r.checkUnitsPerEm(bins) }},
		{CheckWeightClass, func() Result { return r.checkWeightClass(bins, doc) }},
		{CheckCoverage, func() Result { return r.checkCoverage(bins) }},
		{CheckMonotonic, func() Result { return r.checkMonotonic(bins, doc) }},
		{CheckFSType, func() Result { return r.checkFSType(bins) }},
		{CheckVersion, func() Result { return r.checkVersion(bins) }},
		{CheckUFOLint, func() Result { return r.checkUFOLint() }},
		{CheckDesignspace, func() Result { return r.checkDesignspace(doc) }},
	}

	var results []Result
	for _, c := range battery {
		if r.exclude[c.id] {
			continue
		}
		results = append(results, c.run())
	}
	return results, nil
}

// Failed reports whether any check in results failed.
func Failed(results []Result) bool {
	for _, res := range results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

func (r *Runner) checkTables(bins []weightBinary) Result {
	var problems []string
	for _, b := range bins {
		tags, err := tableTags(b.raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", b.weight, err))
			continue
		}
		var missing []string
		for _, tag := range requiredTables {
			if !tags[tag] {
				missing = append(missing, tag)
			}
		}
		if len(missing) > 0 {
			problems = append(problems,
				fmt.Sprintf("%s: missing %s", b.weight, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return Result{CheckTables, Fail, strings.Join(problems, "; ")}
	}
	return Result{CheckTables, Pass, "all required tables present"}
}

func (r *Runner) checkNameEntries(bins []weightBinary) Result {
	var problems []string
	for _, b := range bins {
		switch {
		case b.info.FamilyName == "":
			problems = append(problems, fmt.Sprintf("%s: no family name", b.weight))
		case b.info.FamilyName != r.cfg.Family:
			problems = append(problems,
				fmt.Sprintf("%s: family name %q, want %q", b.weight, b.info.FamilyName, r.cfg.Family))
		}
		if b.info.Version == 0 {
			problems = append(problems, fmt.Sprintf("%s: no version record", b.weight))
		}
	}
	if len(problems) > 0 {
		return Result{CheckNameEntries, Fail, strings.Join(problems, "; ")}
	}
	return Result{CheckNameEntries, Pass, "name records complete"}
}

func (r *Runner) checkUnitsPerEm(bins []weightBinary) Result {
	first := bins[0].info.UnitsPerEm
	for _, b := range bins[1:] {
		if b.info.UnitsPerEm != first {
			var all []string
			for _, b := range bins {
				all = append(all, fmt.Sprintf("%s=%d", b.weight, b.info.UnitsPerEm))
			}
			return Result{CheckUnitsPerEm, Fail, strings.Join(all, ", ")}
		}
	}
	return Result{CheckUnitsPerEm, Pass, fmt.Sprintf("%d across all weights", first)}
}

func (r *Runner) checkWeightClass(bins []weightBinary, doc *designspace.Document) Result {
	axis := doc.AxisByTag("wght")
	if axis == nil {
		return Result{CheckWeightClass, Fail, "designspace has no wght axis"}
	}
	var problems []string
	for _, b := range bins {
		src := doc.SourceForStyle(b.weight)
		if src == nil {
			problems = append(problems, fmt.Sprintf("%s: no designspace source", b.weight))
			continue
		}
		want, ok := src.WeightOf(axis.Name)
		if !ok {
			problems = append(problems,
				fmt.Sprintf("%s: source has no %s coordinate", b.weight, axis.Name))
			continue
		}
		if got := float64(b.info.Weight); got != want {
			problems = append(problems,
				fmt.Sprintf("%s: usWeightClass %g, designspace says %g", b.weight, got, want))
		}
	}
	if len(problems) > 0 {
		return Result{CheckWeightClass, Fail, strings.Join(problems, "; ")}
	}
	return Result{CheckWeightClass, Pass, "weight classes match the designspace"}
}

func (r *Runner) checkCoverage(bins []weightBinary) Result {
	sets := make([]map[rune]bool, len(bins))
	for i, b := range bins {
		set, err := coverage(b.info)
		if err != nil {
			return Result{CheckCoverage, Fail, fmt.Sprintf("%s: %v", b.weight, err)}
		}
		sets[i] = set
	}
	var problems []string
	for i, b := range bins[1:] {
		missing := diffRunes(sets[0], sets[i+1])
		extra := diffRunes(sets[i+1], sets[0])
		if len(missing) > 0 {
			problems = append(problems,
				fmt.Sprintf("%s: missing %s", b.weight, runeList(missing)))
		}
		if len(extra) > 0 {
			problems = append(problems,
				fmt.Sprintf("%s: extra %s (vs %s)", b.weight, runeList(extra), bins[0].weight))
		}
	}
	if len(problems) > 0 {
		return Result{CheckCoverage, Fail, strings.Join(problems, "; ")}
	}
	return Result{CheckCoverage, Pass,
		fmt.Sprintf("%d codepoints in every weight", len(sets[0]))}
}

// checkMonotonic compares the advance of a representative glyph along
// the weight axis. Heavier masters draw wider stems, so a heavier
// weight coming out narrower almost always means a drawing slipped.
func (r *Runner) checkMonotonic(bins []weightBinary, doc *designspace.Document) Result {
	axis := doc.AxisByTag("wght")
	if axis == nil {
		return Result{CheckMonotonic, Fail, "designspace has no wght axis"}
	}

	rep, ok := representativeRune(bins)
	if !ok {
		return Result{CheckMonotonic, Warn, "no codepoint shared by every weight"}
	}

	type sample struct {
		weight  string
		wght    float64
		advance int
	}
	samples := make([]sample, 0, len(bins))
	for _, b := range bins {
		src := doc.SourceForStyle(b.weight)
		if src == nil {
			return Result{CheckMonotonic, Fail,
				fmt.Sprintf("%s: no designspace source", b.weight)}
		}
		wght, _ := src.WeightOf(axis.Name)
		cm, err := b.info.CMapTable.GetBest()
		if err != nil {
			return Result{CheckMonotonic, Fail, fmt.Sprintf("%s: %v", b.weight, err)}
		}
		gid := cm.Lookup(rep)
		widths := b.info.Widths()
		if int(gid) >= len(widths) {
			return Result{CheckMonotonic, Fail,
				fmt.Sprintf("%s: glyph %d out of range", b.weight, gid)}
		}
		samples = append(samples, sample{b.weight, wght, int(widths[gid])})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].wght < samples[j].wght })

	for i := 1; i < len(samples); i++ {
		if samples[i].advance < samples[i-1].advance {
			return Result{CheckMonotonic, Fail,
				fmt.Sprintf("%s advance of %s is %d, below %s's %d",
					runeList([]rune{rep}), samples[i].weight, samples[i].advance,
					samples[i-1].weight, samples[i-1].advance)}
		}
	}
	return Result{CheckMonotonic, Pass,
		fmt.Sprintf("%s advance is monotone along the weight axis", runeList([]rune{rep}))}
}

func (r *Runner) checkFSType(bins []weightBinary) Result {
	var problems []string
	for _, b := range bins {
		if b.info.PermUse != os2.PermInstall {
			problems = append(problems,
				fmt.Sprintf("%s: embedding restricted to %q", b.weight, b.info.PermUse.String()))
		}
	}
	if len(problems) > 0 {
		return Result{CheckFSType, Fail, strings.Join(problems, "; ")}
	}
	return Result{CheckFSType, Pass, "all weights installable"}
}

func (r *Runner) checkVersion(bins []weightBinary) Result {
	version, err := r.cfg.Version()
	if err != nil {
		return Result{CheckVersion, Fail, err.Error()}
	}
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return Result{CheckVersion, Fail,
			fmt.Sprintf("VERSION file %q is not a number", version)}
	}
	want := head.Version(math.Round(v * 65536))

	var problems []string
	for _, b := range bins {
		if b.info.Version != want {
			problems = append(problems,
				fmt.Sprintf("%s: font revision %s, VERSION file says %s",
					b.weight, b.info.Version, version))
		}
	}
	if len(problems) > 0 {
		return Result{CheckVersion, Fail, strings.Join(problems, "; ")}
	}
	return Result{CheckVersion, Pass, fmt.Sprintf("all weights at version %s", version)}
}

func (r *Runner) checkUFOLint() Result {
	paths := make([]string, len(r.cfg.Weights))
	for i, w := range r.cfg.Weights {
		paths[i] = r.cfg.UFOPath(w)
	}
	violations, err := normalize.LintFamily(paths)
	if err != nil {
		return Result{CheckUFOLint, Fail, err.Error()}
	}
	if len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.String()
		}
		return Result{CheckUFOLint, Fail, joinLimited(msgs, 8)}
	}
	return Result{CheckUFOLint, Pass, "sources are clean"}
}

func (r *Runner) checkDesignspace(doc *designspace.Document) Result {
	problems := doc.Validate(r.cfg.Weights)
	if len(problems) > 0 {
		return Result{CheckDesignspace, Fail, joinLimited(problems, 8)}
	}
	return Result{CheckDesignspace, Pass, "sources and weights agree"}
}

// tableTags parses the sfnt table directory without interpreting any
// table contents.
func tableTags(raw []byte) (map[string]bool, error) {
	if len(raw) < 12 {
		return nil, fmt.Errorf("sfnt too short")
	}
	n := int(binary.BigEndian.Uint16(raw[4:6]))
	if len(raw) < 12+16*n {
		return nil, fmt.Errorf("table directory extends past end of file")
	}
	tags := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		rec := raw[12+16*i:]
		tags[string(rec[:4])] = true
	}
	return tags, nil
}

// coverage returns the set of codepoints mapped by the font's best cmap.
func coverage(info *sfnt.Font) (map[rune]bool, error) {
	cm, err := info.CMapTable.GetBest()
	if err != nil {
		return nil, fmt.Errorf("no usable cmap: %w", err)
	}
	set := make(map[rune]bool)
	low, high := cm.CodeRange()
	for c := low; c <= high; c++ {
		if cm.Lookup(c) != 0 {
			set[c] = true
		}
	}
	return set, nil
}

// representativeRune picks a codepoint covered by every weight,
// preferring 'o' when available since round letters show weight gain
// most clearly.
func representativeRune(bins []weightBinary) (rune, bool) {
	shared, err := coverage(bins[0].info)
	if err != nil {
		return 0, false
	}
	for _, b := range bins[1:] {
		set, err := coverage(b.info)
		if err != nil {
			return 0, false
		}
		for r := range shared {
			if !set[r] {
				delete(shared, r)
			}
		}
	}
	if len(shared) == 0 {
		return 0, false
	}
	if shared['o'] {
		return 'o', true
	}
	best := rune(-1)
	for r := range shared {
		if best < 0 || r < best {
			best = r
		}
	}
	return best, true
}

func diffRunes(a, b map[rune]bool) []rune {
	var out []rune
	for r := range a {
		if !b[r] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func runeList(rr []rune) string {
	parts := make([]string, len(rr))
	for i, r := range rr {
		parts[i] = fmt.Sprintf("U+%04X", r)
	}
	return joinLimited(parts, 8)
}

func joinLimited(parts []string, max int) string {
	if len(parts) <= max {
		return strings.Join(parts, "; ")
	}
	return fmt.Sprintf("%s; and %d more", strings.Join(parts[:max], "; "), len(parts)-max)
}
