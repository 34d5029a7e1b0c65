// Package proof renders PDF proof sheets from compiled font binaries:
// a glyph table over the font's character map and text samples shaped
// with the font's own substitution and positioning rules.
package proof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode"

	hbtt "github.com/benoitkugler/textlayout/fonts/truetype"
	hb "github.com/benoitkugler/textlayout/harfbuzz"
	hblang "github.com/benoitkugler/textlayout/language"
	"golang.org/x/text/language"
)

// ShapedGlyph is one glyph of a shaped run, with offsets and advance in
// font units.
type ShapedGlyph struct {
	GID      uint32
	Cluster  int
	XAdvance int32
	XOffset  int32
	YOffset  int32
}

// Shaper runs HarfBuzz over one font binary, exercising the font's
// GSUB/GPOS rules the way a real text engine would.
type Shaper struct {
	font *hb.Font
}

// NewShaper parses a raw OTF/TTF for shaping.
func NewShaper(fontData []byte) (*Shaper, error) {
	face, err := hbtt.Parse(bytes.NewReader(fontData), true)
	if err != nil {
		return nil, fmt.Errorf("parse font for shaping: %w", err)
	}
	return &Shaper{font: hb.NewFont(face)}, nil
}

// Shape turns a run of text into positioned glyphs.
func (s *Shaper) Shape(text string, script language.Script, lang language.Tag) []ShapedGlyph {
	runes := []rune(text)

	buf := hb.NewBuffer()
	buf.Props = hb.SegmentProperties{
		Direction: hb.LeftToRight,
		Script:    scriptTag(script),
		Language:  hblang.NewLanguage(lang.String()),
	}
	buf.AddRunes(runes, 0, len(runes))
	buf.Shape(s.font, nil)

	out := make([]ShapedGlyph, len(buf.Info))
	for i, info := range buf.Info {
		pos := &buf.Pos[i]
		out[i] = ShapedGlyph{
			GID:     uint32(info.Glyph),
			Cluster: info.Cluster,
			// positions come back 26.6-scaled at the font's design size
			XAdvance: int32(pos.XAdvance) >> 6,
			XOffset:  int32(pos.XOffset) >> 6,
			YOffset:  int32(pos.YOffset) >> 6,
		}
	}
	return out
}

// scriptTag converts an ISO 15924 code to HarfBuzz's packed form, which
// uses a lowercase first letter.
func scriptTag(s language.Script) hblang.Script {
	b := []byte(s.String())
	if len(b) != 4 {
		return 0
	}
	b[0] = byte(unicode.ToLower(rune(b[0])))
	return hblang.Script(binary.BigEndian.Uint32(b))
}
