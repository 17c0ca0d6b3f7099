package text

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tsawler/slidetext/internal/pptxtest"
	"github.com/tsawler/slidetext/pptx"
)

func richShape(name string, left, top int64, paras ...pptx.Paragraph) pptx.Shape {
	return pptx.Shape{
		Name:       name,
		Kind:       pptx.KindRichText,
		Left:       left,
		Top:        top,
		Width:      1000,
		Height:     200,
		Paragraphs: paras,
	}
}

func para(text string, size float64, font string) pptx.Paragraph {
	return pptx.Paragraph{
		Text: text,
		Runs: []pptx.Run{{Text: text, FontSize: size, FontName: font}},
	}
}

func texts(frags []TextFragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.Text
	}
	return out
}

func TestExtractor_RichText(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		richShape("Title", 100, 200,
			para("Heading", 28, "Arial"),
			para("   ", 40, "Ignored"),
			para("Second", 14, "Times"),
		),
	}}

	frags, skipped := ex.Extract(slide)
	assert.Empty(t, skipped)
	require.Len(t, frags, 1)

	f := frags[0]
	assert.Equal(t, "Heading\nSecond", f.Text)
	assert.Equal(t, int64(100), f.Left)
	assert.Equal(t, int64(200), f.Top)
	assert.Equal(t, int64(1000), f.Width)
	assert.Equal(t, 28.0, f.FontSize)
	assert.Equal(t, "Arial", f.FontName)
	assert.Equal(t, SourceShape, f.Source)
	assert.Equal(t, "Title", f.ShapeName)
	assert.Equal(t, LTR, f.Direction)
}

func TestExtractor_FirstFoundFontWins(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		richShape("Box", 0, 0,
			para("no props", 0, ""),
			para("name only", 0, "Georgia"),
			para("size and name", 18, "Verdana"),
			para("later", 30, "Impact"),
		),
	}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 1)
	assert.Equal(t, 18.0, frags[0].FontSize)
	assert.Equal(t, "Georgia", frags[0].FontName)
}

func TestExtractor_OnlyFirstRunInspected(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		richShape("Box", 0, 0, pptx.Paragraph{
			Text: "a b",
			Runs: []pptx.Run{{Text: "a"}, {Text: " b", FontSize: 40, FontName: "Impact"}},
		}),
	}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 1)
	assert.Equal(t, DefaultFontSize, frags[0].FontSize)
	assert.Equal(t, DefaultFontName, frags[0].FontName)
}

func TestExtractor_Group(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{{
		Name: "Outer",
		Kind: pptx.KindGroup,
		Left: 1000,
		Top:  2000,
		// A group never yields its own text
		RawText: "group text",
		Children: []pptx.Shape{
			richShape("A", 10, 20, para("A", 0, "")),
			{
				Name: "Inner",
				Kind: pptx.KindGroup,
				Left: 100,
				Top:  200,
				Children: []pptx.Shape{
					richShape("B", 1, 2, para("B", 0, "")),
				},
			},
		},
	}}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 2)
	assert.Equal(t, []string{"A", "B"}, texts(frags))
	assert.Equal(t, int64(1010), frags[0].Left)
	assert.Equal(t, int64(2020), frags[0].Top)
	assert.Equal(t, int64(1101), frags[1].Left)
	assert.Equal(t, int64(2202), frags[1].Top)
}

func TestExtractor_Table(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{{
		Name: "Table 1",
		Kind: pptx.KindTable,
		Left: 500,
		Top:  700,
		Table: &pptx.Table{Rows: [][]pptx.TableCell{
			{{Text: "A1"}, {Text: "B1"}},
			{{Text: "  "}, {Text: "B2"}},
		}},
	}}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 3)
	assert.Equal(t, []string{"A1", "B1", "B2"}, texts(frags))

	assert.Equal(t, int64(500), frags[0].Left)
	assert.Equal(t, int64(700), frags[0].Top)
	assert.Equal(t, int64(500+DefaultStride), frags[1].Left)
	assert.Equal(t, int64(700), frags[1].Top)
	assert.Equal(t, int64(500+DefaultStride), frags[2].Left)
	assert.Equal(t, int64(700+DefaultStride), frags[2].Top)

	for _, f := range frags {
		assert.Equal(t, DefaultTableFontSize, f.FontSize)
		assert.Equal(t, DefaultFontName, f.FontName)
		assert.Equal(t, SourceTableCell, f.Source)
	}
}

func TestExtractor_TableSkipsMergedCells(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{{
		Name: "Table 1",
		Kind: pptx.KindTable,
		Table: &pptx.Table{Rows: [][]pptx.TableCell{
			{{Text: "Header"}, {Text: "Header", IsMerged: true}},
			{{Text: "A2"}, {Text: "B2"}},
		}},
	}}}

	frags, skipped := ex.Extract(slide)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{"Header", "A2", "B2"}, texts(frags))
	assert.Equal(t, int64(0), frags[0].Left)
}

func TestExtractor_TableStrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ColumnStride = 10
	cfg.RowStride = 20
	ex := NewExtractor(cfg, nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{{
		Kind: pptx.KindTable,
		Table: &pptx.Table{Rows: [][]pptx.TableCell{
			{{Text: "x"}, {Text: "y"}},
			{{Text: "z"}},
		}},
	}}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 3)
	assert.Equal(t, int64(10), frags[1].Left)
	assert.Equal(t, int64(20), frags[2].Top)
}

func TestExtractor_PlainTextFallback(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		{Name: "Diagram", Kind: pptx.KindPlainText, Left: 5, Top: 6, RawText: "  Step one\nStep two "},
		// A text body with only blank paragraphs falls back to raw text
		{Name: "Blank body", Kind: pptx.KindRichText, Left: 7, Paragraphs: []pptx.Paragraph{{Text: " "}}, RawText: "raw"},
		{Name: "Picture", Kind: pptx.KindOther},
	}}

	frags, skipped := ex.Extract(slide)
	assert.Empty(t, skipped)
	require.Len(t, frags, 2)
	assert.Equal(t, "Step one\nStep two", frags[0].Text)
	assert.Equal(t, DefaultFontSize, frags[0].FontSize)
	assert.Equal(t, DefaultFontName, frags[0].FontName)
	assert.Equal(t, "raw", frags[1].Text)
}

func TestExtractor_TableWithoutData(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		{Name: "Frame", Kind: pptx.KindTable, RawText: "cached"},
	}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 1)
	assert.Equal(t, "cached", frags[0].Text)
}

func TestExtractor_Dedup(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	dup := richShape("Dup", 100, 100, para("Same text", 0, ""))
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		dup,
		dup,
		// A degenerate group at the origin reaches the same shape again
		{Kind: pptx.KindGroup, Children: []pptx.Shape{dup}},
		// Same text elsewhere is distinct
		richShape("Moved", 101, 100, para("Same text", 0, "")),
	}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 2)

	seen := make(map[Key]bool)
	for _, f := range frags {
		assert.False(t, seen[f.Key()], "duplicate key %s", f.Key())
		seen[f.Key()] = true
	}
}

func TestExtractor_DedupAfterClean(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		richShape("A", 0, 0, para("Hello\x00", 0, "")),
		richShape("B", 0, 0, para(" Hello", 0, "")),
		richShape("C", 0, 0, para("\x01\x02", 0, "")),
	}}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 1)
	assert.Equal(t, "Hello", frags[0].Text)
}

func TestExtractor_DedupScopedToCall(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{Shapes: []pptx.Shape{richShape("A", 0, 0, para("Hello", 0, ""))}}

	first, _ := ex.Extract(slide)
	second, _ := ex.Extract(slide)
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestExtractor_Notes(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	slide := &pptx.Slide{
		Shapes: []pptx.Shape{richShape("A", 0, 0, para("Body", 0, ""))},
		Notes:  "  Speak slowly  ",
	}

	frags, _ := ex.Extract(slide)
	require.Len(t, frags, 2)

	notes := frags[1]
	assert.Equal(t, DefaultNotesMarker+"Speak slowly", notes.Text)
	assert.Equal(t, int64(0), notes.Left)
	assert.Equal(t, DefaultNotesTop, notes.Top)
	assert.Equal(t, DefaultTableFontSize, notes.FontSize)
	assert.Equal(t, SourceNotes, notes.Source)
}

func TestExtractor_NotesDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeNotes = false
	ex := NewExtractor(cfg, nil)

	frags, _ := ex.Extract(&pptx.Slide{Notes: "hidden"})
	assert.Empty(t, frags)
}

func TestExtractor_BlankNotesIgnored(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)
	frags, _ := ex.Extract(&pptx.Slide{Notes: " \n "})
	assert.Empty(t, frags)
}

func TestExtractor_EmptySlide(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), nil)

	frags, skipped := ex.Extract(&pptx.Slide{})
	assert.Empty(t, frags)
	assert.Empty(t, skipped)

	frags, skipped = ex.Extract(nil)
	assert.Empty(t, frags)
	assert.Empty(t, skipped)
}

func TestExtractor_ShapeErrorIsolated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ex := NewExtractor(DefaultConfig(), zap.New(core))

	decodeErr := errors.New("invalid x offset")
	shapes := make([]pptx.Shape, 0, 10)
	for i := 0; i < 10; i++ {
		shape := richShape(fmt.Sprintf("Shape %d", i), int64(i)*1000, 0, para(fmt.Sprintf("text %d", i), 0, ""))
		if i == 4 {
			shape.ID = "5"
			shape.Err = decodeErr
		}
		shapes = append(shapes, shape)
	}

	frags, skipped := ex.Extract(&pptx.Slide{Index: 2, Shapes: shapes})
	assert.Len(t, frags, 9)
	assert.NotContains(t, texts(frags), "text 4")

	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Slide)
	assert.Equal(t, "Shape 4", skipped[0].ShapeName)
	assert.ErrorIs(t, skipped[0], decodeErr)
	assert.Contains(t, skipped[0].Error(), "slide 3")

	assert.Equal(t, 1, logs.FilterMessage("shape skipped").Len())
}

func TestExtractor_MalformedGroupKeepsChildren(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), zap.NewNop())

	decodeErr := errors.New("invalid x offset")
	slide := &pptx.Slide{Shapes: []pptx.Shape{
		richShape("Sibling", 0, 0, para("sibling", 0, "")),
		{
			Name: "G",
			Kind: pptx.KindGroup,
			Left: 9_000_000,
			Err:  decodeErr,
			Children: []pptx.Shape{
				richShape("A", 100, 200, para("child a", 0, "")),
				richShape("B", 300, 400, para("child b", 0, "")),
			},
		},
	}}

	frags, skipped := ex.Extract(slide)
	assert.Equal(t, []string{"sibling", "child a", "child b"}, texts(frags))
	assert.Equal(t, int64(100), frags[1].Left, "group offset is not applied")
	assert.Equal(t, int64(400), frags[2].Top)

	require.Len(t, skipped, 1)
	assert.Equal(t, "G", skipped[0].ShapeName)
	assert.ErrorIs(t, skipped[0], decodeErr)
}

func TestExtractor_PanicIsolated(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	// Panics while a shape without text is being reported
	hook := zap.Hooks(func(e zapcore.Entry) error {
		if e.Message == "shape has no text" {
			panic("boom")
		}
		return nil
	})
	ex := NewExtractor(DefaultConfig(), zap.New(core, hook))

	slide := &pptx.Slide{Shapes: []pptx.Shape{
		richShape("Before", 0, 0, para("before", 0, "")),
		{ID: "7", Name: "Picture", Kind: pptx.KindOther},
		richShape("After", 2000, 0, para("after", 0, "")),
	}}

	frags, skipped := ex.Extract(slide)
	assert.Equal(t, []string{"before", "after"}, texts(frags))

	require.Len(t, skipped, 1)
	assert.Equal(t, "Picture", skipped[0].ShapeName)
	assert.Equal(t, "7", skipped[0].ShapeID)
	assert.Contains(t, skipped[0].Error(), "panic: boom")
	assert.Equal(t, 1, logs.FilterMessage("shape skipped").Len())
}

func TestExtractor_ConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotesMarker = "NOTES: "
	ex := NewExtractor(cfg, nil)
	assert.Equal(t, "NOTES: ", ex.Config().NotesMarker)
}

func TestExtractor_FromPackage(t *testing.T) {
	var shapes bytes.Buffer
	shapes.WriteString(pptxtest.TextBox(2, "Title", 457200, 274638, pptxtest.Para("Agenda", 3200, "Calibri")))
	shapes.WriteString(pptxtest.Group(3, "Group", 1000000, 1000000,
		pptxtest.TextBox(4, "Grouped", 50, 50, pptxtest.Para("Inside group", 1400, "")),
	))
	shapes.WriteString(pptxtest.Table(5, "Table", 0, 3000000, [][]string{{"a", "b"}}))
	shapes.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="6" name="Broken"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm><a:off x="1.5" y="0"/></a:xfrm></p:spPr>` +
		`<p:txBody><a:bodyPr/><a:p><a:r><a:t>lost</a:t></a:r></a:p></p:txBody></p:sp>`)

	data := pptxtest.Build(t, pptxtest.Deck{Slides: []pptxtest.Slide{{Shapes: shapes.String(), Notes: "Say hello"}}})
	r, err := pptx.OpenReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer r.Close()

	slide, err := r.Slide(0)
	require.NoError(t, err)

	frags, skipped := NewExtractor(DefaultConfig(), zap.NewNop()).Extract(slide)
	require.Len(t, skipped, 1)
	assert.Equal(t, "Broken", skipped[0].ShapeName)

	assert.Equal(t, []string{"Agenda", "Inside group", "a", "b", DefaultNotesMarker + "Say hello"}, texts(frags))
	assert.Equal(t, 32.0, frags[0].FontSize)
	assert.Equal(t, "Calibri", frags[0].FontName)
	assert.Equal(t, int64(1000050), frags[1].Left)
	assert.Equal(t, 14.0, frags[1].FontSize)
	assert.Equal(t, DefaultFontName, frags[1].FontName)
}
