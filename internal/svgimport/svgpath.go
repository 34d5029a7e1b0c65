package svgimport

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fontmill/fontmill/internal/ufo"
)

// Drawing is a parsed SVG glyph drawing: the document's declared size
// plus its outline converted to UFO contours (untransformed).
type Drawing struct {
	Width  float64
	Height float64
	Paths  []string
}

type svgDoc struct {
	XMLName xml.Name   `xml:"svg"`
	Width   string     `xml:"width,attr"`
	Height  string     `xml:"height,attr"`
	Paths   []svgPath  `xml:"path"`
	Groups  []svgGroup `xml:"g"`
}

type svgGroup struct {
	Paths  []svgPath  `xml:"path"`
	Groups []svgGroup `xml:"g"`
}

type svgPath struct {
	D string `xml:"d,attr"`
}

// ParseDrawing reads an SVG file and collects every <path> element's data.
func ParseDrawing(path string) (*Drawing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc svgDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d := &Drawing{}
	d.Width, err = parseLength(doc.Width)
	if err != nil {
		return nil, fmt.Errorf("%s: width: %w", path, err)
	}
	d.Height, err = parseLength(doc.Height)
	if err != nil {
		return nil, fmt.Errorf("%s: height: %w", path, err)
	}
	collect := func(paths []svgPath) {
		for _, p := range paths {
			if strings.TrimSpace(p.D) != "" {
				d.Paths = append(d.Paths, p.D)
			}
		}
	}
	collect(doc.Paths)
	var walk func(groups []svgGroup)
	walk = func(groups []svgGroup) {
		for _, g := range groups {
			collect(g.Paths)
			walk(g.Groups)
		}
	}
	walk(doc.Groups)
	if len(d.Paths) == 0 {
		return nil, fmt.Errorf("%s: no <path> elements", path)
	}
	return d, nil
}

func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, fmt.Errorf("missing length")
	}
	return strconv.ParseFloat(s, 64)
}

// Outline converts every path of the drawing into UFO contours, applying
// the affine matrix [a b c d e f]: x' = a·x + c·y + e, y' = b·x + d·y + f.
func (d *Drawing) Outline(m [6]float64) ([]ufo.Contour, error) {
	var out []ufo.Contour
	for _, p := range d.Paths {
		cc, err := parsePathData(p)
		if err != nil {
			return nil, err
		}
		out = append(out, cc...)
	}
	for i := range out {
		for j := range out[i].Points {
			p := &out[i].Points[j]
			x := m[0]*p.X + m[2]*p.Y + m[4]
			y := m[1]*p.X + m[3]*p.Y + m[5]
			p.X, p.Y = x, y
		}
	}
	return out, nil
}

type pathLexer struct {
	data string
	pos  int
}

func (l *pathLexer) skipSeparators() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		return
	}
}

func (l *pathLexer) nextCommand() (byte, bool) {
	l.skipSeparators()
	if l.pos >= len(l.data) {
		return 0, false
	}
	c := l.data[l.pos]
	if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		l.pos++
		return c, true
	}
	return 0, false
}

func (l *pathLexer) nextNumber() (float64, error) {
	l.skipSeparators()
	start := l.pos
	if l.pos < len(l.data) && (l.data[l.pos] == '+' || l.data[l.pos] == '-') {
		l.pos++
	}
	seenDot := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			l.pos++
			continue
		}
		if (c == 'e' || c == 'E') && l.pos > start {
			l.pos++
			if l.pos < len(l.data) && (l.data[l.pos] == '+' || l.data[l.pos] == '-') {
				l.pos++
			}
			continue
		}
		break
	}
	if l.pos == start {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	return strconv.ParseFloat(l.data[start:l.pos], 64)
}

func (l *pathLexer) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := l.nextNumber()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parsePathData converts one SVG path data string into UFO contours.
// Supported commands: M/m L/l H/h V/v C/c S/s Q/q T/t Z/z. Elliptical
// arcs (A/a) are not produced by the glyph design tools and are rejected.
func parsePathData(data string) ([]ufo.Contour, error) {
	l := &pathLexer{data: data}

	var contours []ufo.Contour
	var cur *ufo.Contour
	var closed bool

	var cx, cy float64       // current point
	var sx, sy float64       // subpath start
	var lastCtlX, lastCtlY float64
	var lastCmd byte

	finish := func() {
		if cur == nil {
			return
		}
		contours = append(contours, closeContour(*cur, closed, sx, sy))
		cur = nil
		closed = false
	}

	appendPoint := func(p ufo.Point) {
		cur.Points = append(cur.Points, p)
	}

	for {
		cmd, ok := l.nextCommand()
		if !ok {
			l.skipSeparators()
			if l.pos >= len(l.data) {
				break
			}
			// implicit command repetition
			if lastCmd == 0 || lastCmd == 'Z' || lastCmd == 'z' {
				return nil, fmt.Errorf("number without a command at offset %d", l.pos)
			}
			cmd = lastCmd
			if cmd == 'M' {
				cmd = 'L'
			} else if cmd == 'm' {
				cmd = 'l'
			}
		}
		rel := cmd >= 'a' && cmd <= 'z'
		upper := cmd
		if rel {
			upper = cmd - 'a' + 'A'
		}

		switch upper {
		case 'M':
			v, err := l.numbers(2)
			if err != nil {
				return nil, err
			}
			finish()
			if rel {
				cx += v[0]
				cy += v[1]
			} else {
				cx, cy = v[0], v[1]
			}
			sx, sy = cx, cy
			cur = &ufo.Contour{}
			appendPoint(ufo.Point{X: cx, Y: cy, Type: "move"})
		case 'L':
			if cur == nil {
				return nil, fmt.Errorf("lineto before moveto")
			}
			v, err := l.numbers(2)
			if err != nil {
				return nil, err
			}
			if rel {
				cx += v[0]
				cy += v[1]
			} else {
				cx, cy = v[0], v[1]
			}
			appendPoint(ufo.Point{X: cx, Y: cy, Type: "line"})
		case 'H':
			if cur == nil {
				return nil, fmt.Errorf("lineto before moveto")
			}
			v, err := l.numbers(1)
			if err != nil {
				return nil, err
			}
			if rel {
				cx += v[0]
			} else {
				cx = v[0]
			}
			appendPoint(ufo.Point{X: cx, Y: cy, Type: "line"})
		case 'V':
			if cur == nil {
				return nil, fmt.Errorf("lineto before moveto")
			}
			v, err := l.numbers(1)
			if err != nil {
				return nil, err
			}
			if rel {
				cy += v[0]
			} else {
				cy = v[0]
			}
			appendPoint(ufo.Point{X: cx, Y: cy, Type: "line"})
		case 'C', 'S':
			if cur == nil {
				return nil, fmt.Errorf("curveto before moveto")
			}
			var x1, y1 float64
			if upper == 'S' {
				if lastWasCubic(lastCmd) {
					x1 = 2*cx - lastCtlX
					y1 = 2*cy - lastCtlY
				} else {
					x1, y1 = cx, cy
				}
			}
			n := 6
			if upper == 'S' {
				n = 4
			}
			v, err := l.numbers(n)
			if err != nil {
				return nil, err
			}
			if upper == 'C' {
				x1, y1 = v[0], v[1]
				if rel {
					x1 += cx
					y1 += cy
				}
				v = v[2:]
			}
			x2, y2, x, y := v[0], v[1], v[2], v[3]
			if rel {
				x2 += cx
				y2 += cy
				x += cx
				y += cy
			}
			appendPoint(ufo.Point{X: x1, Y: y1})
			appendPoint(ufo.Point{X: x2, Y: y2})
			appendPoint(ufo.Point{X: x, Y: y, Type: "curve"})
			lastCtlX, lastCtlY = x2, y2
			cx, cy = x, y
		case 'Q', 'T':
			if cur == nil {
				return nil, fmt.Errorf("curveto before moveto")
			}
			var x1, y1 float64
			if upper == 'T' {
				if lastWasQuad(lastCmd) {
					x1 = 2*cx - lastCtlX
					y1 = 2*cy - lastCtlY
				} else {
					x1, y1 = cx, cy
				}
			}
			n := 4
			if upper == 'T' {
				n = 2
			}
			v, err := l.numbers(n)
			if err != nil {
				return nil, err
			}
			if upper == 'Q' {
				x1, y1 = v[0], v[1]
				if rel {
					x1 += cx
					y1 += cy
				}
				v = v[2:]
			}
			x, y := v[0], v[1]
			if rel {
				x += cx
				y += cy
			}
			appendPoint(ufo.Point{X: x1, Y: y1})
			appendPoint(ufo.Point{X: x, Y: y, Type: "qcurve"})
			lastCtlX, lastCtlY = x1, y1
			cx, cy = x, y
		case 'Z':
			if cur != nil {
				closed = true
				cx, cy = sx, sy
				finish()
			}
		case 'A':
			return nil, fmt.Errorf("elliptical arcs are not supported")
		default:
			return nil, fmt.Errorf("unsupported path command %q", string(cmd))
		}
		lastCmd = cmd
	}
	finish()
	if len(contours) == 0 {
		return nil, fmt.Errorf("path data has no contours")
	}
	return contours, nil
}

func lastWasCubic(c byte) bool {
	return c == 'C' || c == 'c' || c == 'S' || c == 's'
}

func lastWasQuad(c byte) bool {
	return c == 'Q' || c == 'q' || c == 'T' || c == 't'
}

// closeContour converts an open point list into UFO's closed-contour
// form: the leading "move" point is removed and the contour wraps
// around, with the closing segment's type landing on the start point.
func closeContour(c ufo.Contour, closed bool, sx, sy float64) ufo.Contour {
	if !closed || len(c.Points) < 2 {
		return c
	}
	start := c.Points[0]
	last := c.Points[len(c.Points)-1]
	if last.Type != "" && near(last.X, sx) && near(last.Y, sy) {
		// The final on-curve point coincides with the start: drop it and
		// let its type wrap onto the start point. Trailing off-curve
		// points stay at the end of the cyclic list.
		start.Type = last.Type
		c.Points = c.Points[:len(c.Points)-1]
	} else {
		// Implicit closing line back to the start.
		start.Type = "line"
	}
	c.Points[0] = start
	return c
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
