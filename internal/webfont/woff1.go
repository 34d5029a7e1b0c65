// Package webfont packs compiled binaries into the web delivery
// containers: WOFF1 natively, WOFF2 through the external encoder.
package webfont

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	woffSignature  = 0x774F4646 // 'wOFF'
	sfntHeaderSize = 12
	sfntEntrySize  = 16
	woffHeaderSize = 44
	woffEntrySize  = 20
)

type sfntTable struct {
	tag      uint32
	checksum uint32
	data     []byte
}

// PackWOFF1 wraps a raw OTF/TTF into a WOFF 1.0 container. Tables are
// zlib-compressed individually; a table that does not shrink is stored
// raw, as the format requires. The original sfnt is losslessly
// reconstructable from the result.
func PackWOFF1(sfnt []byte) ([]byte, error) {
	flavor, tables, err := parseSfnt(sfnt)
	if err != nil {
		return nil, err
	}

	// WOFF directories are sorted by tag.
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })

	totalSfntSize := uint32(sfntHeaderSize + sfntEntrySize*len(tables))
	for _, t := range tables {
		totalSfntSize += pad4(uint32(len(t.data)))
	}

	type packed struct {
		sfntTable
		comp []byte
	}
	packedTables := make([]packed, len(tables))
	for i, t := range tables {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(t.data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		comp := buf.Bytes()
		if len(comp) >= len(t.data) {
			comp = t.data
		}
		packedTables[i] = packed{sfntTable: t, comp: comp}
	}

	var out bytes.Buffer
	w := func(v any) { binary.Write(&out, binary.BigEndian, v) }

	offset := uint32(woffHeaderSize + woffEntrySize*len(tables))
	length := offset
	for _, t := range packedTables {
		length += pad4(uint32(len(t.comp)))
	}

	w(uint32(woffSignature))
	w(flavor)
	w(length)
	w(uint16(len(tables)))
	w(uint16(0)) // reserved
	w(totalSfntSize)
	w(uint16(1)) // majorVersion
	w(uint16(0)) // minorVersion
	w(uint32(0)) // metaOffset
	w(uint32(0)) // metaLength
	w(uint32(0)) // metaOrigLength
	w(uint32(0)) // privOffset
	w(uint32(0)) // privLength

	for _, t := range packedTables {
		w(t.tag)
		w(offset)
		w(uint32(len(t.comp)))
		w(uint32(len(t.data)))
		w(t.checksum)
		offset += pad4(uint32(len(t.comp)))
	}
	for _, t := range packedTables {
		out.Write(t.comp)
		for p := uint32(len(t.comp)); p%4 != 0; p++ {
			out.WriteByte(0)
		}
	}
	return out.Bytes(), nil
}

// WriteWOFF1 packs the binary at inPath and writes the container to
// outPath atomically.
func WriteWOFF1(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	woff, err := PackWOFF1(data)
	if err != nil {
		return fmt.Errorf("pack %s: %w", inPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	tmp := outPath + ".tmp"
	if err := os.WriteFile(tmp, woff, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, outPath)
}

// parseSfnt reads the offset table and table records of a raw OTF/TTF.
func parseSfnt(data []byte) (flavor uint32, tables []sfntTable, err error) {
	if len(data) < sfntHeaderSize {
		return 0, nil, fmt.Errorf("sfnt too short (%d bytes)", len(data))
	}
	flavor = binary.BigEndian.Uint32(data[0:])
	if flavor != 0x00010000 && flavor != 0x4F54544F { // TrueType, 'OTTO'
		return 0, nil, fmt.Errorf("unrecognized sfnt version 0x%08X", flavor)
	}
	numTables := int(binary.BigEndian.Uint16(data[4:]))
	if len(data) < sfntHeaderSize+sfntEntrySize*numTables {
		return 0, nil, fmt.Errorf("sfnt table directory truncated")
	}

	tables = make([]sfntTable, numTables)
	for i := 0; i < numTables; i++ {
		rec := data[sfntHeaderSize+sfntEntrySize*i:]
		tag := binary.BigEndian.Uint32(rec[0:])
		checksum := binary.BigEndian.Uint32(rec[4:])
		off := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if uint64(off)+uint64(length) > uint64(len(data)) {
			return 0, nil, fmt.Errorf("table %s extends past end of file", tagString(tag))
		}
		tables[i] = sfntTable{tag: tag, checksum: checksum, data: data[off : off+length]}
	}
	return flavor, tables, nil
}

func pad4(n uint32) uint32 {
	return (n + 3) &^ 3
}

func tagString(tag uint32) string {
	return string([]byte{byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag)})
}
