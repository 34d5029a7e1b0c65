package proof

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/font/cid"
	"seehuhn.de/go/pdf/font/type1"
	"seehuhn.de/go/postscript/funit"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/glyph"
)

const (
	sampleSize    = 14
	sampleLeading = 22
)

// TextSamples renders the corpus files line by line in the font at
// fontPath. Each line is shaped with HarfBuzz against the binary
// itself, so ligatures, conjuncts and kerning appear exactly as a text
// engine would produce them; the shaped glyphs are then drawn with
// their shaped advances.
func TextSamples(fontPath, outPath string, corpusFiles []string, script language.Script, lang language.Tag) error {
	info, err := sfnt.ReadFile(fontPath)
	if err != nil {
		return err
	}
	fontData, err := os.ReadFile(fontPath)
	if err != nil {
		return err
	}
	shaper, err := NewShaper(fontData)
	if err != nil {
		return fmt.Errorf("%s: %w", fontPath, err)
	}

	paper := document.A4
	doc, err := document.CreateMultiPage(outPath, paper, nil)
	if err != nil {
		return err
	}

	labelFont, err := type1.Helvetica.Embed(doc.Out, "L")
	if err != nil {
		return err
	}
	theFont, err := cid.Embed(doc.Out, info, "X", lang)
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

	for _, corpus := range corpusFiles {
		if err := p.writeCorpusHeading(filepath.Base(corpus)); err != nil {
			return err
		}

		fd, err := os.Open(corpus)
		if err != nil {
			return err
		}
		sc := bufio.NewScanner(fd)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			shaped := shaper.Shape(line, script, lang)
			seq := make(glyph.Seq, len(shaped))
			for i, sg := range shaped {
				seq[i] = glyph.Info{
					Gid:     glyph.ID(sg.GID),
					Advance: funit.Int16(sg.XAdvance),
					XOffset: funit.Int16(sg.XOffset),
					YOffset: funit.Int16(sg.YOffset),
				}
			}
			if err := p.writeSampleLine(theFont, seq); err != nil {
				fd.Close()
				return err
			}
		}
		if err := sc.Err(); err != nil {
			fd.Close()
			return fmt.Errorf("read %s: %w", corpus, err)
		}
		if err := fd.Close(); err != nil {
			return err
		}
	}

	if err := p.ClosePage(); err != nil {
		return err
	}
	return doc.Close()
}

func (p *proofPages) writeCorpusHeading(name string) error {
	const v = 28
	if err := p.MakeSpace(v); err != nil {
		return err
	}
	p.page.TextStart()
	p.page.TextSetFont(p.labelFont, 9)
	p.page.TextFirstLine(p.margin, p.margin+p.textHeight-p.used-v+8)
	p.page.TextShow(name)
	p.page.TextEnd()
	p.used += v
	return nil
}

func (p *proofPages) writeSampleLine(theFont font.Embedded, seq glyph.Seq) error {
	if err := p.MakeSpace(sampleLeading); err != nil {
		return err
	}
	p.page.TextStart()
	p.page.TextSetFont(theFont, sampleSize)
	p.page.TextFirstLine(p.margin, p.margin+p.textHeight-p.used-sampleLeading+6)
	p.page.TextShowGlyphs(seq)
	p.page.TextEnd()
	p.used += sampleLeading
	return nil
}
