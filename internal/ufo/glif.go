package ufo

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Glyph is one .glif entry of a UFO layer.
type Glyph struct {
	Name       string
	Format     int
	Width      float64
	Height     float64
	Unicodes   []rune
	Anchors    []Anchor
	Contours   []Contour
	Components []Component
}

// Anchor is a named attachment point.
type Anchor struct {
	Name string
	X, Y float64
}

// Contour is a closed outline path.
type Contour struct {
	Points []Point
}

// Point is one outline point. Type is "" for off-curve control points,
// otherwise one of "move", "line", "curve", "qcurve".
type Point struct {
	X, Y   float64
	Type   string
	Smooth bool
}

// Component references another glyph with an affine transform.
type Component struct {
	Base    string
	XScale  float64
	XYScale float64
	YXScale float64
	YScale  float64
	XOffset float64
	YOffset float64
}

type glifXML struct {
	XMLName xml.Name     `xml:"glyph"`
	Name    string       `xml:"name,attr"`
	Format  int          `xml:"format,attr"`
	Advance *advanceXML  `xml:"advance"`
	Unicode []unicodeXML `xml:"unicode"`
	Anchor  []anchorXML  `xml:"anchor"`
	Outline *outlineXML  `xml:"outline"`
}

type advanceXML struct {
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type unicodeXML struct {
	Hex string `xml:"hex,attr"`
}

type anchorXML struct {
	X    float64 `xml:"x,attr"`
	Y    float64 `xml:"y,attr"`
	Name string  `xml:"name,attr"`
}

type outlineXML struct {
	Contours   []contourXML   `xml:"contour"`
	Components []componentXML `xml:"component"`
}

type contourXML struct {
	Points []pointXML `xml:"point"`
}

type pointXML struct {
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Type   string  `xml:"type,attr"`
	Smooth string  `xml:"smooth,attr"`
}

type componentXML struct {
	Base    string   `xml:"base,attr"`
	XScale  *float64 `xml:"xScale,attr"`
	XYScale *float64 `xml:"xyScale,attr"`
	YXScale *float64 `xml:"yxScale,attr"`
	YScale  *float64 `xml:"yScale,attr"`
	XOffset *float64 `xml:"xOffset,attr"`
	YOffset *float64 `xml:"yOffset,attr"`
}

// ReadGlif parses a GLIF document.
func ReadGlif(r io.Reader) (*Glyph, error) {
	var doc glifXML
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("glif: missing glyph name")
	}
	g := &Glyph{
		Name:   doc.Name,
		Format: doc.Format,
	}
	if g.Format == 0 {
		g.Format = 2
	}
	if doc.Advance != nil {
		g.Width = doc.Advance.Width
		g.Height = doc.Advance.Height
	}
	for _, u := range doc.Unicode {
		n, err := strconv.ParseUint(strings.TrimPrefix(u.Hex, "U+"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("glif %s: bad unicode hex %q", doc.Name, u.Hex)
		}
		g.Unicodes = append(g.Unicodes, rune(n))
	}
	for _, a := range doc.Anchor {
		g.Anchors = append(g.Anchors, Anchor{Name: a.Name, X: a.X, Y: a.Y})
	}
	if doc.Outline != nil {
		for _, c := range doc.Outline.Contours {
			var ct Contour
			for _, p := range c.Points {
				ct.Points = append(ct.Points, Point{
					X:      p.X,
					Y:      p.Y,
					Type:   p.Type,
					Smooth: p.Smooth == "yes",
				})
			}
			g.Contours = append(g.Contours, ct)
		}
		for _, c := range doc.Outline.Components {
			comp := Component{Base: c.Base, XScale: 1, YScale: 1}
			if c.XScale != nil {
				comp.XScale = *c.XScale
			}
			if c.XYScale != nil {
				comp.XYScale = *c.XYScale
			}
			if c.YXScale != nil {
				comp.YXScale = *c.YXScale
			}
			if c.YScale != nil {
				comp.YScale = *c.YScale
			}
			if c.XOffset != nil {
				comp.XOffset = *c.XOffset
			}
			if c.YOffset != nil {
				comp.YOffset = *c.YOffset
			}
			g.Components = append(g.Components, comp)
		}
	}
	return g, nil
}

// ReadGlifFile reads one .glif file from disk.
func ReadGlifFile(path string) (*Glyph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := ReadGlif(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteGlif serializes the glyph in canonical form. The same glyph always
// produces byte-identical output: attribute order is fixed and numbers use
// the normalizer's precision rules.
func (g *Glyph) WriteGlif(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	format := g.Format
	if format == 0 {
		format = 2
	}
	fmt.Fprintf(bw, "<glyph name=\"%s\" format=\"%d\">\n", escapeXML(g.Name), format)
	if g.Width != 0 || g.Height != 0 {
		fmt.Fprintf(bw, "\t<advance")
		if g.Height != 0 {
			fmt.Fprintf(bw, " height=\"%s\"", formatNumber(g.Height))
		}
		if g.Width != 0 {
			fmt.Fprintf(bw, " width=\"%s\"", formatNumber(g.Width))
		}
		fmt.Fprintf(bw, "/>\n")
	}
	for _, u := range g.Unicodes {
		fmt.Fprintf(bw, "\t<unicode hex=\"%04X\"/>\n", u)
	}
	for _, a := range g.Anchors {
		fmt.Fprintf(bw, "\t<anchor x=\"%s\" y=\"%s\" name=\"%s\"/>\n",
			formatNumber(a.X), formatNumber(a.Y), escapeXML(a.Name))
	}
	if len(g.Contours) > 0 || len(g.Components) > 0 {
		fmt.Fprintf(bw, "\t<outline>\n")
		for _, c := range g.Components {
			fmt.Fprintf(bw, "\t\t<component base=\"%s\"", escapeXML(c.Base))
			if c.XScale != 1 {
				fmt.Fprintf(bw, " xScale=\"%s\"", formatNumber(c.XScale))
			}
			if c.XYScale != 0 {
				fmt.Fprintf(bw, " xyScale=\"%s\"", formatNumber(c.XYScale))
			}
			if c.YXScale != 0 {
				fmt.Fprintf(bw, " yxScale=\"%s\"", formatNumber(c.YXScale))
			}
			if c.YScale != 1 {
				fmt.Fprintf(bw, " yScale=\"%s\"", formatNumber(c.YScale))
			}
			if c.XOffset != 0 {
				fmt.Fprintf(bw, " xOffset=\"%s\"", formatNumber(c.XOffset))
			}
			if c.YOffset != 0 {
				fmt.Fprintf(bw, " yOffset=\"%s\"", formatNumber(c.YOffset))
			}
			fmt.Fprintf(bw, "/>\n")
		}
		for _, c := range g.Contours {
			fmt.Fprintf(bw, "\t\t<contour>\n")
			for _, p := range c.Points {
				fmt.Fprintf(bw, "\t\t\t<point x=\"%s\" y=\"%s\"",
					formatNumber(p.X), formatNumber(p.Y))
				if p.Type != "" {
					fmt.Fprintf(bw, " type=\"%s\"", p.Type)
				}
				if p.Smooth {
					fmt.Fprintf(bw, " smooth=\"yes\"")
				}
				fmt.Fprintf(bw, "/>\n")
			}
			fmt.Fprintf(bw, "\t\t</contour>\n")
		}
		fmt.Fprintf(bw, "\t</outline>\n")
	}
	fmt.Fprintf(bw, "</glyph>\n")
	return bw.Flush()
}

// Bytes returns the canonical GLIF serialization.
func (g *Glyph) Bytes() ([]byte, error) {
	var b strings.Builder
	if err := g.WriteGlif(&b); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
