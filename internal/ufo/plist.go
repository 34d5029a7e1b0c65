package ufo

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Property lists inside a UFO package only ever use a small subset of the
// plist vocabulary: dict, array, string, integer, real and booleans.
// Values decode to map[string]any, []any, string, int, float64 and bool.

const plistHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

// ReadPlist parses a property list document whose root element is a dict.
func ReadPlist(r io.Reader) (map[string]any, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("plist: no root element")
			}
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local == "plist" {
			continue
		}
		v, err := parsePlistValue(dec, se)
		if err != nil {
			return nil, err
		}
		d, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("plist: root element is %T, expected dict", v)
		}
		return d, nil
	}
}

// ReadPlistFile reads a plist file from disk.
func ReadPlistFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := ReadPlist(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func parsePlistValue(dec *xml.Decoder, se xml.StartElement) (any, error) {
	switch se.Name.Local {
	case "dict":
		d := make(map[string]any)
		var key string
		haveKey := false
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				if t.Name.Local == "key" {
					var k string
					if err := dec.DecodeElement(&k, &t); err != nil {
						return nil, err
					}
					key = k
					haveKey = true
					continue
				}
				if !haveKey {
					return nil, fmt.Errorf("plist: <%s> without preceding <key>", t.Name.Local)
				}
				v, err := parsePlistValue(dec, t)
				if err != nil {
					return nil, err
				}
				d[key] = v
				haveKey = false
			case xml.EndElement:
				if haveKey {
					return nil, fmt.Errorf("plist: key %q has no value", key)
				}
				return d, nil
			}
		}
	case "array":
		a := []any{}
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				v, err := parsePlistValue(dec, t)
				if err != nil {
					return nil, err
				}
				a = append(a, v)
			case xml.EndElement:
				return a, nil
			}
		}
	case "string":
		var s string
		if err := dec.DecodeElement(&s, &se); err != nil {
			return nil, err
		}
		return s, nil
	case "integer":
		var s string
		if err := dec.DecodeElement(&s, &se); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("plist: bad integer %q", s)
		}
		return n, nil
	case "real":
		var s string
		if err := dec.DecodeElement(&s, &se); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("plist: bad real %q", s)
		}
		return f, nil
	case "true":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return true, nil
	case "false":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return false, nil
	default:
		return nil, fmt.Errorf("plist: unsupported element <%s>", se.Name.Local)
	}
}

// WritePlist serializes a dict in canonical form: sorted keys, tab
// indentation, integral reals collapsed to integers.
func WritePlist(w io.Writer, root map[string]any) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(plistHeader); err != nil {
		return err
	}
	if err := writePlistValue(bw, root, 0); err != nil {
		return err
	}
	if _, err := bw.WriteString("</plist>\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// WritePlistFile writes a plist to disk atomically.
func WritePlistFile(path string, root map[string]any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WritePlist(f, root); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writePlistValue(w *bufio.Writer, v any, depth int) error {
	indent := strings.Repeat("\t", depth)
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			_, err := fmt.Fprintf(w, "%s<dict/>\n", indent)
			return err
		}
		fmt.Fprintf(w, "%s<dict>\n", indent)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t<key>%s</key>\n", indent, escapeXML(k))
			if err := writePlistValue(w, t[k], depth+1); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s</dict>\n", indent)
		return err
	case []any:
		if len(t) == 0 {
			_, err := fmt.Fprintf(w, "%s<array/>\n", indent)
			return err
		}
		fmt.Fprintf(w, "%s<array>\n", indent)
		for _, e := range t {
			if err := writePlistValue(w, e, depth+1); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s</array>\n", indent)
		return err
	case []string:
		a := make([]any, len(t))
		for i, s := range t {
			a[i] = s
		}
		return writePlistValue(w, a, depth)
	case string:
		_, err := fmt.Fprintf(w, "%s<string>%s</string>\n", indent, escapeXML(t))
		return err
	case int:
		_, err := fmt.Fprintf(w, "%s<integer>%d</integer>\n", indent, t)
		return err
	case int64:
		_, err := fmt.Fprintf(w, "%s<integer>%d</integer>\n", indent, t)
		return err
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			_, err := fmt.Fprintf(w, "%s<integer>%d</integer>\n", indent, int64(t))
			return err
		}
		_, err := fmt.Fprintf(w, "%s<real>%s</real>\n", indent, formatNumber(t))
		return err
	case bool:
		el := "false"
		if t {
			el = "true"
		}
		_, err := fmt.Fprintf(w, "%s<%s/>\n", indent, el)
		return err
	default:
		return fmt.Errorf("plist: cannot serialize %T", v)
	}
}

// formatNumber renders a float with at most three decimal places and no
// trailing zeros, matching the precision the normalizer enforces.
func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	s := strconv.FormatFloat(round3(f), 'f', -1, 64)
	return s
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func escapeXML(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
