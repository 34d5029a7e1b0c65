// Package designspace reads the designspace document that ties a font
// family's weight masters together for interpolation and compilation.
package designspace

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Document is a parsed .designspace file.
type Document struct {
	XMLName xml.Name `xml:"designspace"`
	Format  string   `xml:"format,attr"`
	Axes    []Axis   `xml:"axes>axis"`
	Sources []Source `xml:"sources>source"`
}

// Axis is one interpolation axis, usually weight.
type Axis struct {
	Tag     string  `xml:"tag,attr"`
	Name    string  `xml:"name,attr"`
	Minimum float64 `xml:"minimum,attr"`
	Maximum float64 `xml:"maximum,attr"`
	Default float64 `xml:"default,attr"`
}

// Source is one master UFO and its location on the axes.
type Source struct {
	Filename   string      `xml:"filename,attr"`
	FamilyName string      `xml:"familyname,attr"`
	StyleName  string      `xml:"stylename,attr"`
	Location   []Dimension `xml:"location>dimension"`
}

// Dimension is one axis coordinate of a source location.
type Dimension struct {
	Name   string  `xml:"name,attr"`
	XValue float64 `xml:"xvalue,attr"`
}

// Load reads and parses a designspace document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &doc, nil
}

// SourceForStyle returns the source whose stylename matches, or nil.
func (d *Document) SourceForStyle(style string) *Source {
	for i := range d.Sources {
		if d.Sources[i].StyleName == style {
			return &d.Sources[i]
		}
	}
	return nil
}

// AxisByTag returns the axis with the given tag, or nil.
func (d *Document) AxisByTag(tag string) *Axis {
	for i := range d.Axes {
		if d.Axes[i].Tag == tag {
			return &d.Axes[i]
		}
	}
	return nil
}

// WeightOf returns the source's coordinate on the named axis.
func (s *Source) WeightOf(axisName string) (float64, bool) {
	for _, dim := range s.Location {
		if dim.Name == axisName {
			return dim.XValue, true
		}
	}
	return 0, false
}

// Validate checks the document against the configured weight styles:
// every style needs exactly one source, every source needs a configured
// style, and every location coordinate must lie inside its axis bounds.
// All problems are reported, sorted, in one pass.
func (d *Document) Validate(styles []string) []string {
	var problems []string

	if len(d.Axes) == 0 {
		problems = append(problems, "no axes defined")
	}
	axisByName := make(map[string]*Axis, len(d.Axes))
	for i := range d.Axes {
		a := &d.Axes[i]
		axisByName[a.Name] = a
		if a.Minimum > a.Maximum {
			problems = append(problems,
				fmt.Sprintf("axis %s: minimum %g exceeds maximum %g", a.Name, a.Minimum, a.Maximum))
		}
		if a.Default < a.Minimum || a.Default > a.Maximum {
			problems = append(problems,
				fmt.Sprintf("axis %s: default %g outside [%g, %g]", a.Name, a.Default, a.Minimum, a.Maximum))
		}
	}

	want := make(map[string]bool, len(styles))
	for _, s := range styles {
		want[s] = true
	}
	seen := make(map[string]int)
	for _, src := range d.Sources {
		seen[src.StyleName]++
		if !want[src.StyleName] {
			problems = append(problems,
				fmt.Sprintf("source %s: style %q not in the configured weights", src.Filename, src.StyleName))
		}
		for _, dim := range src.Location {
			a, ok := axisByName[dim.Name]
			if !ok {
				problems = append(problems,
					fmt.Sprintf("source %s: location names unknown axis %q", src.Filename, dim.Name))
				continue
			}
			if dim.XValue < a.Minimum || dim.XValue > a.Maximum {
				problems = append(problems,
					fmt.Sprintf("source %s: %s=%g outside [%g, %g]",
						src.Filename, dim.Name, dim.XValue, a.Minimum, a.Maximum))
			}
		}
	}
	for _, s := range styles {
		switch seen[s] {
		case 0:
			problems = append(problems, fmt.Sprintf("weight %s has no designspace source", s))
		case 1:
		default:
			problems = append(problems, fmt.Sprintf("weight %s has %d designspace sources", s, seen[s]))
		}
	}

	sort.Strings(problems)
	return problems
}

// UFOPaths returns the absolute paths of every source UFO, resolved
// relative to the designspace file.
func UFOPaths(docPath string, d *Document) []string {
	dir := filepath.Dir(docPath)
	out := make([]string, len(d.Sources))
	for i, s := range d.Sources {
		p := s.Filename
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		out[i] = p
	}
	return out
}
