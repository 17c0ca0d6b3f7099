package text

import "fmt"

// FragmentSource records which kind of shape produced a fragment.
type FragmentSource int

const (
	// SourceShape is text from a shape's text body or raw text.
	SourceShape FragmentSource = iota
	// SourceTableCell is the text of one table cell.
	SourceTableCell
	// SourceNotes is the slide's speaker notes.
	SourceNotes
)

// String returns a string representation of the source.
func (s FragmentSource) String() string {
	switch s {
	case SourceShape:
		return "shape"
	case SourceTableCell:
		return "table-cell"
	case SourceNotes:
		return "notes"
	default:
		return "unknown"
	}
}

// TextFragment is one unit of discovered text with its absolute position in
// EMUs and a representative font.
type TextFragment struct {
	Text          string // Cleaned, trimmed, non-empty; may contain newlines
	Left, Top     int64  // Absolute offset, group offsets included
	Width, Height int64  // Extent, 0 if unknown
	FontSize      float64
	FontName      string
	Direction     Direction

	Source    FragmentSource
	ShapeName string
}

// keyPrefixRunes is how much of the text takes part in deduplication.
const keyPrefixRunes = 100

// Key identifies a fragment within one slide.
type Key struct {
	Left, Top int64
	Prefix    string
}

// String returns the key in left_top_prefix form.
func (k Key) String() string {
	return fmt.Sprintf("%d_%d_%s", k.Left, k.Top, k.Prefix)
}

// Key returns the fragment's deduplication key.
func (f TextFragment) Key() Key {
	prefix := f.Text
	n := 0
	for i := range f.Text {
		if n == keyPrefixRunes {
			prefix = f.Text[:i]
			break
		}
		n++
	}
	return Key{Left: f.Left, Top: f.Top, Prefix: prefix}
}
