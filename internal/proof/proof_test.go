package proof

import (
	"testing"

	hblang "github.com/benoitkugler/textlayout/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestScriptTag(t *testing.T) {
	mlym := language.MustParseScript("Mlym")
	assert.Equal(t, hblang.Script(0x6d6c796d), scriptTag(mlym)) // 'mlym'

	latn := language.MustParseScript("Latn")
	assert.Equal(t, hblang.Script(0x6c61746e), scriptTag(latn)) // 'latn'
}

func TestCodeLabel(t *testing.T) {
	assert.Equal(t, `'A'`, codeLabel('A'))
	assert.Equal(t, "U+0D15", codeLabel(0x0D15))
	assert.Equal(t, "U+00A0", codeLabel(0x00A0))
}

func TestNewShaperRejectsGarbage(t *testing.T) {
	_, err := NewShaper([]byte("not a font"))
	require.Error(t, err)
}
