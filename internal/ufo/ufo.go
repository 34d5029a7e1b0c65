// Package ufo reads and writes the subset of the UFO v3 source format
// that the build pipeline touches: the package-level property lists and
// the default glyph layer.
package ufo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	metaInfoFile      = "metainfo.plist"
	fontInfoFile      = "fontinfo.plist"
	libFile           = "lib.plist"
	layerContentsFile = "layercontents.plist"
	glyphsDir         = "glyphs"
	contentsFile      = "contents.plist"

	glyphOrderKey = "public.glyphOrder"
)

// Font is an opened UFO source package.
type Font struct {
	Path string

	MetaInfo map[string]any
	Info     map[string]any
	Lib      map[string]any

	// Contents maps glyph name to glif file name within glyphs/.
	Contents map[string]string
}

// Open reads the package-level property lists of a UFO directory.
func Open(path string) (*Font, error) {
	if fi, err := os.Stat(path); err != nil {
		return nil, err
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("%s: not a UFO package (not a directory)", path)
	}

	f := &Font{Path: path}

	var err error
	f.MetaInfo, err = ReadPlistFile(filepath.Join(path, metaInfoFile))
	if err != nil {
		return nil, err
	}
	f.Info, err = ReadPlistFile(filepath.Join(path, fontInfoFile))
	if err != nil {
		return nil, err
	}

	if lib, err := ReadPlistFile(filepath.Join(path, libFile)); err == nil {
		f.Lib = lib
	} else if os.IsNotExist(err) {
		f.Lib = map[string]any{}
	} else {
		return nil, err
	}

	contents, err := ReadPlistFile(filepath.Join(path, glyphsDir, contentsFile))
	if err != nil {
		return nil, err
	}
	f.Contents = make(map[string]string, len(contents))
	for name, v := range contents {
		file, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: contents.plist entry %q is not a string", path, name)
		}
		f.Contents[name] = file
	}
	return f, nil
}

// FamilyName returns openTypeNamePreferredFamilyName or familyName.
func (f *Font) FamilyName() string {
	if s, ok := f.Info["openTypeNamePreferredFamilyName"].(string); ok {
		return s
	}
	s, _ := f.Info["familyName"].(string)
	return s
}

// StyleName returns the style (weight) name.
func (f *Font) StyleName() string {
	s, _ := f.Info["styleName"].(string)
	return s
}

// UnitsPerEm returns unitsPerEm from fontinfo, or 0 if unset.
func (f *Font) UnitsPerEm() float64 {
	return numberValue(f.Info["unitsPerEm"])
}

// GlyphNames returns the contents.plist glyph names, sorted.
func (f *Font) GlyphNames() []string {
	names := make([]string, 0, len(f.Contents))
	for name := range f.Contents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GlyphOrder returns the public.glyphOrder list from lib.plist.
func (f *Font) GlyphOrder() []string {
	raw, _ := f.Lib[glyphOrderKey].([]any)
	order := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			order = append(order, s)
		}
	}
	return order
}

// LoadGlyph reads one glyph from the default layer.
func (f *Font) LoadGlyph(name string) (*Glyph, error) {
	file, ok := f.Contents[name]
	if !ok {
		return nil, fmt.Errorf("%s: no glyph %q", f.Path, name)
	}
	return ReadGlifFile(filepath.Join(f.Path, glyphsDir, file))
}

// GlifPath returns the on-disk path a glyph is (or would be) stored at.
func (f *Font) GlifPath(name string) string {
	if file, ok := f.Contents[name]; ok {
		return filepath.Join(f.Path, glyphsDir, file)
	}
	return filepath.Join(f.Path, glyphsDir, glifFileName(name))
}

// WriteGlyph writes a glyph to the default layer. New glyphs are recorded
// in contents.plist and appended to public.glyphOrder; the write is
// skipped entirely when the canonical serialization is unchanged, so
// re-importing identical inputs leaves file timestamps alone.
func (f *Font) WriteGlyph(g *Glyph) error {
	data, err := g.Bytes()
	if err != nil {
		return err
	}

	_, existing := f.Contents[g.Name]
	path := f.GlifPath(g.Name)

	if existing {
		if old, err := os.ReadFile(path); err == nil && string(old) == string(data) {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}

	if !existing {
		f.Contents[g.Name] = filepath.Base(path)
		if err := f.writeContents(); err != nil {
			return err
		}
		order := f.GlyphOrder()
		order = append(order, g.Name)
		raw := make([]any, len(order))
		for i, n := range order {
			raw[i] = n
		}
		f.Lib[glyphOrderKey] = raw
		if err := WritePlistFile(filepath.Join(f.Path, libFile), f.Lib); err != nil {
			return err
		}
	}
	return nil
}

func (f *Font) writeContents() error {
	d := make(map[string]any, len(f.Contents))
	for name, file := range f.Contents {
		d[name] = file
	}
	return WritePlistFile(filepath.Join(f.Path, glyphsDir, contentsFile), d)
}

// Normalize rewrites every property list and glif file through the
// canonical serializer. Semantically a no-op; running it twice is stable.
func (f *Font) Normalize() error {
	if err := WritePlistFile(filepath.Join(f.Path, metaInfoFile), f.MetaInfo); err != nil {
		return err
	}
	if err := WritePlistFile(filepath.Join(f.Path, fontInfoFile), f.Info); err != nil {
		return err
	}
	if len(f.Lib) > 0 {
		if err := WritePlistFile(filepath.Join(f.Path, libFile), f.Lib); err != nil {
			return err
		}
	}
	if err := f.writeContents(); err != nil {
		return err
	}
	for _, name := range f.GlyphNames() {
		g, err := f.LoadGlyph(name)
		if err != nil {
			return err
		}
		data, err := g.Bytes()
		if err != nil {
			return err
		}
		path := f.GlifPath(name)
		if old, err := os.ReadFile(path); err == nil && string(old) == string(data) {
			continue
		}
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}
	}
	return nil
}

// Init creates a minimal empty UFO package on disk.
func Init(path, family, style string, unitsPerEm int) (*Font, error) {
	if err := os.MkdirAll(filepath.Join(path, glyphsDir), 0o755); err != nil {
		return nil, err
	}
	f := &Font{
		Path: path,
		MetaInfo: map[string]any{
			"creator":       "com.github.fontmill",
			"formatVersion": 3,
		},
		Info: map[string]any{
			"familyName": family,
			"styleName":  style,
			"unitsPerEm": unitsPerEm,
		},
		Lib:      map[string]any{glyphOrderKey: []any{}},
		Contents: map[string]string{},
	}
	if err := WritePlistFile(filepath.Join(path, metaInfoFile), f.MetaInfo); err != nil {
		return nil, err
	}
	if err := WritePlistFile(filepath.Join(path, fontInfoFile), f.Info); err != nil {
		return nil, err
	}
	if err := WritePlistFile(filepath.Join(path, libFile), f.Lib); err != nil {
		return nil, err
	}
	if err := writeLayerContents(path); err != nil {
		return nil, err
	}
	if err := f.writeContents(); err != nil {
		return nil, err
	}
	return f, nil
}

func writeLayerContents(path string) error {
	// layercontents.plist has an array root, which WritePlist does not
	// cover; the file is small enough to emit directly.
	data := plistHeader +
		"<array>\n\t<array>\n\t\t<string>public.default</string>\n\t\t<string>glyphs</string>\n\t</array>\n</array>\n</plist>\n"
	return writeFileAtomic(filepath.Join(path, layerContentsFile), []byte(data))
}

func numberValue(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	}
	return 0
}

// glifFileName maps a glyph name to a stable file name. Capital letters
// get an underscore suffix per the UFO name-translation convention.
func glifFileName(name string) string {
	out := make([]rune, 0, len(name)+4)
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r, '_')
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out) + ".glif"
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
