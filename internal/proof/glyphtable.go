package proof

import (
	"fmt"
	"sort"
	"unicode"

	"golang.org/x/text/language"

	"seehuhn.de/go/pdf/color"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/font/cid"
	"seehuhn.de/go/pdf/font/type1"
	"seehuhn.de/go/sfnt"
	sfntcmap "seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"
)

const (
	proofMargin = 36
	glyphSize   = 24
	cellsPerRow = 10
)

// GlyphTable renders a paginated grid of every encoded character of
// the font at fontPath: each cell shows the glyph at display size with
// its codepoint labeled underneath.
func GlyphTable(fontPath, outPath string) error {
	info, err := sfnt.ReadFile(fontPath)
	if err != nil {
		return err
	}

	cm, err := info.CMapTable.GetBest()
	if err != nil {
		return fmt.Errorf("%s: no usable cmap: %w", fontPath, err)
	}

	var encoded []rune
	low, high := cm.CodeRange()
	for r := low; r <= high; r++ {
		if cm.Lookup(r) != 0 {
			encoded = append(encoded, r)
		}
	}
	sort.Slice(encoded, func(i, j int) bool { return encoded[i] < encoded[j] })

	paper := document.A4
	doc, err := document.CreateMultiPage(outPath, paper, nil)
	if err != nil {
		return err
	}

	labelFont, err := type1.Helvetica.Embed(doc.Out, "L")
	if err != nil {
		return err
	}
	theFont, err := cid.Embed(doc.Out, info, "X", language.Und)
	if err != nil {
		return err
	}

	p := &proofPages{
		doc:        doc,
		textWidth:  paper.URx - 2*proofMargin,
		textHeight: paper.URy - 2*proofMargin,
		margin:     proofMargin,
		labelFont:  labelFont,
	}

	if err := p.WriteTitle(info.FullName(), fontPath); err != nil {
		return err
	}
	for start := 0; start < len(encoded); start += cellsPerRow {
		end := start + cellsPerRow
		if end > len(encoded) {
			end = len(encoded)
		}
		if err := p.writeGlyphRow(theFont, cm, encoded[start:end]); err != nil {
			return err
		}
	}

	if err := p.ClosePage(); err != nil {
		return err
	}
	return doc.Close()
}

// proofPages tracks pagination state shared by the proof sheets.
type proofPages struct {
	doc *document.MultiPage

	textWidth  float64
	textHeight float64
	margin     float64

	labelFont font.Embedded

	page   *document.Page
	pageNo int

	used float64 // vertical page space consumed so far
}

func (p *proofPages) ClosePage() error {
	if p.page == nil {
		return nil
	}

	p.pageNo++
	p.page.TextStart()
	p.page.TextSetFont(p.labelFont, 10)
	p.page.TextFirstLine(p.margin+0.5*p.textWidth, p.margin-20)
	p.page.TextShowAligned(fmt.Sprintf("- %d -", p.pageNo), 0, 0.5)
	p.page.TextEnd()

	err := p.page.Close()
	p.page = nil
	return err
}

func (p *proofPages) MakeSpace(vSpace float64) error {
	if p.page != nil && p.used+vSpace < p.textHeight {
		return nil
	}
	if err := p.ClosePage(); err != nil {
		return err
	}
	p.page = p.doc.AddPage()
	p.used = 0
	return nil
}

func (p *proofPages) WriteTitle(title, fileName string) error {
	const v1, v2 = 18, 24
	if err := p.MakeSpace(v1 + v2); err != nil {
		return err
	}

	p.page.TextStart()
	p.page.TextSetFont(p.labelFont, 12)
	p.page.TextFirstLine(p.margin, p.margin+p.textHeight-p.used-v1)
	p.page.TextShow(title)
	p.page.TextSetFont(p.labelFont, 8)
	p.page.TextSecondLine(0, -12)
	p.page.TextShow(fileName)
	p.page.TextEnd()

	p.used += v1 + v2
	return nil
}

// writeGlyphRow draws one row of up to cellsPerRow encoded characters:
// a light grid, the glyphs on the baseline, and codepoint labels.
func (p *proofPages) writeGlyphRow(theFont font.Embedded, cm sfntcmap.Subtable, row []rune) error {
	geom := theFont.GetGeometry()

	v1 := geom.ToPDF16(glyphSize, geom.Ascent)
	v2 := geom.ToPDF16(glyphSize, -geom.Descent)
	v3 := 14.0
	total := v1 + v2 + v3

	if err := p.MakeSpace(total); err != nil {
		return err
	}
	page := p.page

	yBase := p.margin + p.textHeight - p.used - v1
	left := p.margin
	right := p.margin + p.textWidth
	dx := (right - left) / cellsPerRow

	page.PushGraphicsState()
	page.SetStrokeColor(color.RGB(.7, .7, .9))
	page.SetLineWidth(.5)
	page.MoveTo(left, yBase)
	page.LineTo(right, yBase)
	for i := 0; i <= cellsPerRow; i++ {
		x := left + float64(i)*dx
		page.MoveTo(x, yBase+v1)
		page.LineTo(x, yBase-v2)
	}
	page.Stroke()
	page.PopGraphicsState()

	for i, r := range row {
		gid := cm.Lookup(r)
		g := glyph.Info{
			Gid:     gid,
			Advance: geom.Widths[gid],
			Text:    []rune{r},
		}
		w := geom.ToPDF16(glyphSize, geom.Widths[gid])
		x := left + (float64(i)+0.5)*dx - 0.5*w

		page.TextStart()
		page.TextSetFont(theFont, glyphSize)
		page.TextFirstLine(x, yBase)
		page.TextShowGlyphs(glyph.Seq{g})
		page.TextSetFont(p.labelFont, 7)
		page.TextFirstLine(left+float64(i)*dx-x, -v2-8)
		page.TextShowAligned(codeLabel(r), dx, 0.5)
		page.TextEnd()
	}

	p.used += total
	return nil
}

func codeLabel(r rune) string {
	if unicode.IsPrint(r) && r < 128 {
		return fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf("U+%04X", r)
}
