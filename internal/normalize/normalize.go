// Package normalize rewrites UFO sources into their canonical form and
// lints them for the structural problems that break compilation.
package normalize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fontmill/fontmill/internal/ufo"
)

// Violation is one lint finding. Check is a stable identifier; Message
// is human-readable.
type Violation struct {
	UFO     string
	Check   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", filepath.Base(v.UFO), v.Check, v.Message)
}

// Lint check identifiers.
const (
	CheckMissingGlif      = "missing-glif"
	CheckOrphanGlif       = "orphan-glif"
	CheckDuplicateFile    = "duplicate-glif-ref"
	CheckDanglingBase     = "dangling-component"
	CheckDuplicateUnicode = "duplicate-unicode"
	CheckGlyphOrder       = "glyph-order"
	CheckUnitsPerEm       = "units-per-em"
)

// Error wraps a non-empty violation list for callers that want the
// whole report as a single error.
func Error(vv []Violation) error {
	if len(vv) == 0 {
		return nil
	}
	msgs := make([]string, len(vv))
	for i, v := range vv {
		msgs[i] = v.String()
	}
	return fmt.Errorf("lint found %d problem(s):\n  %s", len(vv), strings.Join(msgs, "\n  "))
}

// Normalize rewrites every UFO package at the given paths through the
// canonical serializer. Unchanged files keep their timestamps.
func Normalize(paths []string) error {
	for _, p := range paths {
		f, err := ufo.Open(p)
		if err != nil {
			return err
		}
		if err := f.Normalize(); err != nil {
			return fmt.Errorf("normalize %s: %w", p, err)
		}
	}
	return nil
}

// LintFamily lints every UFO package individually and then checks the
// cross-weight invariants. The linter never mutates the sources.
func LintFamily(paths []string) ([]Violation, error) {
	var all []Violation
	fonts := make([]*ufo.Font, 0, len(paths))
	for _, p := range paths {
		f, err := ufo.Open(p)
		if err != nil {
			return nil, err
		}
		fonts = append(fonts, f)
		vv, err := LintFont(f)
		if err != nil {
			return nil, err
		}
		all = append(all, vv...)
	}

	// unitsPerEm must agree across the family.
	if len(fonts) > 1 {
		upm := fonts[0].UnitsPerEm()
		for _, f := range fonts[1:] {
			if f.UnitsPerEm() != upm {
				all = append(all, Violation{
					UFO:   f.Path,
					Check: CheckUnitsPerEm,
					Message: fmt.Sprintf("unitsPerEm %g differs from %s's %g",
						f.UnitsPerEm(), filepath.Base(fonts[0].Path), upm),
				})
			}
		}
	}
	return all, nil
}

// LintFont runs the single-package checks.
func LintFont(f *ufo.Font) ([]Violation, error) {
	var vv []Violation
	add := func(check, format string, args ...any) {
		vv = append(vv, Violation{UFO: f.Path, Check: check, Message: fmt.Sprintf(format, args...)})
	}

	names := f.GlyphNames()

	// contents.plist entries must point at distinct, existing glif files.
	fileOwners := make(map[string][]string)
	for _, name := range names {
		file := f.Contents[name]
		fileOwners[file] = append(fileOwners[file], name)
		if _, err := os.Stat(filepath.Join(f.Path, "glyphs", file)); err != nil {
			add(CheckMissingGlif, "glyph %q: glif file %s is missing", name, file)
		}
	}
	for _, file := range sortedKeys(fileOwners) {
		if owners := fileOwners[file]; len(owners) > 1 {
			add(CheckDuplicateFile, "glif file %s claimed by glyphs %s",
				file, strings.Join(owners, ", "))
		}
	}

	// glif files not referenced by contents.plist.
	entries, err := os.ReadDir(filepath.Join(f.Path, "glyphs"))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".glif") {
			continue
		}
		if _, ok := fileOwners[e.Name()]; !ok {
			add(CheckOrphanGlif, "glif file %s is not listed in contents.plist", e.Name())
		}
	}

	// component bases and unicode assignments.
	unicodeOwners := make(map[rune][]string)
	for _, name := range names {
		g, err := f.LoadGlyph(name)
		if err != nil {
			// missing file already reported above
			continue
		}
		for _, c := range g.Components {
			if _, ok := f.Contents[c.Base]; !ok {
				add(CheckDanglingBase, "glyph %q references missing component base %q", name, c.Base)
			}
		}
		for _, u := range g.Unicodes {
			unicodeOwners[u] = append(unicodeOwners[u], name)
		}
	}
	codes := make([]rune, 0, len(unicodeOwners))
	for u := range unicodeOwners {
		codes = append(codes, u)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, u := range codes {
		if owners := unicodeOwners[u]; len(owners) > 1 {
			add(CheckDuplicateUnicode, "U+%04X assigned to glyphs %s", u, strings.Join(owners, ", "))
		}
	}

	// public.glyphOrder and contents.plist must list the same glyph set.
	order := f.GlyphOrder()
	if len(order) > 0 {
		inOrder := make(map[string]int, len(order))
		for _, n := range order {
			inOrder[n]++
		}
		for _, n := range sortedKeys2(inOrder) {
			if inOrder[n] > 1 {
				add(CheckGlyphOrder, "glyph %q listed %d times in public.glyphOrder", n, inOrder[n])
			}
		}
		for _, n := range names {
			if _, ok := inOrder[n]; !ok {
				add(CheckGlyphOrder, "glyph %q missing from public.glyphOrder", n)
			}
		}
		for _, n := range sortedKeys2(inOrder) {
			if _, ok := f.Contents[n]; !ok {
				add(CheckGlyphOrder, "public.glyphOrder names unknown glyph %q", n)
			}
		}
	}
	return vv, nil
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys2(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
