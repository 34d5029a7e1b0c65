package webfont

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSfnt assembles a minimal valid sfnt from tag->data pairs.
func buildSfnt(flavor uint32, tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	// table directory in insertion-friendly sorted order
	for i := range tags {
		for j := i + 1; j < len(tags); j++ {
			if tags[j] < tags[i] {
				tags[i], tags[j] = tags[j], tags[i]
			}
		}
	}

	var out bytes.Buffer
	w := func(v any) { binary.Write(&out, binary.BigEndian, v) }
	w(flavor)
	w(uint16(len(tags)))
	w(uint16(0)) // searchRange
	w(uint16(0)) // entrySelector
	w(uint16(0)) // rangeShift

	offset := uint32(sfntHeaderSize + sfntEntrySize*len(tags))
	for _, tag := range tags {
		data := tables[tag]
		w([]byte(tag))
		w(uint32(0)) // checksum, not validated here
		w(offset)
		w(uint32(len(data)))
		offset += pad4(uint32(len(data)))
	}
	for _, tag := range tags {
		data := tables[tag]
		out.Write(data)
		for p := len(data); p%4 != 0; p++ {
			out.WriteByte(0)
		}
	}
	return out.Bytes()
}

func TestPackWOFF1RoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("fontmill"), 64)
	sfnt := buildSfnt(0x4F54544F, map[string][]byte{
		"CFF ": compressible,
		"head": {0, 1, 0, 0, 1, 2, 3, 4, 5},
	})

	woff, err := PackWOFF1(sfnt)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(woff), woffHeaderSize)
	assert.Equal(t, uint32(woffSignature), binary.BigEndian.Uint32(woff[0:]))
	assert.Equal(t, uint32(0x4F54544F), binary.BigEndian.Uint32(woff[4:]))
	assert.Equal(t, uint32(len(woff)), binary.BigEndian.Uint32(woff[8:]), "declared length")

	numTables := binary.BigEndian.Uint16(woff[12:])
	require.Equal(t, uint16(2), numTables)

	// totalSfntSize reconstructs the original layout
	assert.Equal(t, uint32(len(sfnt)), binary.BigEndian.Uint32(woff[16:]))

	// decompress each table and compare against the source
	want := map[string][]byte{"CFF ": compressible, "head": {0, 1, 0, 0, 1, 2, 3, 4, 5}}
	for i := 0; i < int(numTables); i++ {
		entry := woff[woffHeaderSize+woffEntrySize*i:]
		tag := string(entry[0:4])
		off := binary.BigEndian.Uint32(entry[4:])
		compLen := binary.BigEndian.Uint32(entry[8:])
		origLen := binary.BigEndian.Uint32(entry[12:])

		stored := woff[off : off+compLen]
		var data []byte
		if compLen < origLen {
			zr, err := zlib.NewReader(bytes.NewReader(stored))
			require.NoError(t, err)
			data, err = io.ReadAll(zr)
			require.NoError(t, err)
		} else {
			data = stored
		}
		assert.Equal(t, want[tag], data, tag)
	}
}

func TestPackWOFF1StoresIncompressibleRaw(t *testing.T) {
	// tiny table: the zlib wrapper alone outgrows it
	tiny := []byte{7}
	sfnt := buildSfnt(0x00010000, map[string][]byte{"glyf": tiny})

	woff, err := PackWOFF1(sfnt)
	require.NoError(t, err)

	compLen := binary.BigEndian.Uint32(woff[woffHeaderSize+8:])
	origLen := binary.BigEndian.Uint32(woff[woffHeaderSize+12:])
	assert.Equal(t, origLen, compLen, "stored raw")
}

func TestPackWOFF1Errors(t *testing.T) {
	_, err := PackWOFF1([]byte{1, 2, 3})
	assert.ErrorContains(t, err, "too short")

	bad := buildSfnt(0x00010000, map[string][]byte{"head": {1}})
	binary.BigEndian.PutUint32(bad[0:], 0xDEADBEEF)
	_, err = PackWOFF1(bad)
	assert.ErrorContains(t, err, "unrecognized sfnt version")

	truncated := buildSfnt(0x00010000, map[string][]byte{"head": {1, 2, 3, 4}})
	_, err = PackWOFF1(truncated[:len(truncated)-2])
	assert.ErrorContains(t, err, "extends past end")
}

func TestWriteWOFF1(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Test-Regular.otf")
	out := filepath.Join(dir, "web", "Test-Regular.woff")
	sfnt := buildSfnt(0x4F54544F, map[string][]byte{"CFF ": bytes.Repeat([]byte("x"), 128)})
	require.NoError(t, os.WriteFile(in, sfnt, 0o644))

	require.NoError(t, WriteWOFF1(in, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(woffSignature), binary.BigEndian.Uint32(data[0:]))
}

func TestWOFF2EncoderRenamesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake_woff2")
	// mimics woff2_compress: writes next to its input
	body := "#!/bin/sh\nin=\"$1\"\nout=\"${in%.*}.woff2\"\necho wOF2 > \"$out\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	in := filepath.Join(dir, "Test-Regular.ttf")
	require.NoError(t, os.WriteFile(in, []byte("ttf"), 0o644))
	out := filepath.Join(dir, "web", "Test-Regular.woff2")

	e := &WOFF2Encoder{Command: script}
	require.NoError(t, e.Encode(context.Background(), in, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "wOF2\n", string(data))

	// the original input is untouched
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, "ttf", string(orig))
}

func TestWOFF2EncoderFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake_woff2")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	in := filepath.Join(dir, "in.ttf")
	require.NoError(t, os.WriteFile(in, []byte("ttf"), 0o644))

	e := &WOFF2Encoder{Command: script}
	err := e.Encode(context.Background(), in, filepath.Join(dir, "out.woff2"))
	require.Error(t, err)
}
