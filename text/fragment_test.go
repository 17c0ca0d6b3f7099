package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextFragment_Key(t *testing.T) {
	f := TextFragment{Text: "Hello", Left: 10, Top: 20}
	assert.Equal(t, Key{Left: 10, Top: 20, Prefix: "Hello"}, f.Key())
	assert.Equal(t, "10_20_Hello", f.Key().String())
}

func TestTextFragment_KeyPrefixIsRunes(t *testing.T) {
	long := strings.Repeat("字", 150)
	f := TextFragment{Text: long}
	key := f.Key()
	assert.Equal(t, 100, len([]rune(key.Prefix)))

	// Texts sharing the first 100 runes collide
	other := TextFragment{Text: strings.Repeat("字", 100) + "different tail"}
	assert.Equal(t, key, other.Key())

	exact := TextFragment{Text: strings.Repeat("a", 100)}
	assert.Equal(t, exact.Text, exact.Key().Prefix)
}

func TestFragmentSource_String(t *testing.T) {
	assert.Equal(t, "shape", SourceShape.String())
	assert.Equal(t, "table-cell", SourceTableCell.String())
	assert.Equal(t, "notes", SourceNotes.String())
	assert.Equal(t, "unknown", FragmentSource(9).String())
}
