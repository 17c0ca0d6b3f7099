package slidetext

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tsawler/slidetext/internal/pptxtest"
	"github.com/tsawler/slidetext/layout"
	"github.com/tsawler/slidetext/pptx"
	"github.com/tsawler/slidetext/progress"
	"github.com/tsawler/slidetext/text"
)

const brokenShape = `<p:sp><p:nvSpPr><p:cNvPr id="9" name="Broken"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="1.5" y="0"/></a:xfrm></p:spPr>` +
	`<p:txBody><a:bodyPr/><a:p><a:r><a:t>lost</a:t></a:r></a:p></p:txBody></p:sp>`

// sampleDeck has four slides: a two-column slide with notes, an empty
// slide, an unreadable slide and a table next to a malformed shape.
func sampleDeck() pptxtest.Deck {
	slide1 := pptxtest.TextBox(2, "Title", 457200, 274638, pptxtest.Para("Quarterly Review", 3200, "Calibri")) +
		pptxtest.TextBox(3, "Left 1", 500000, 1500000, pptxtest.Para("Left body", 1100, "")) +
		pptxtest.TextBox(4, "Left 2", 500000, 2500000, pptxtest.Para("Left second", 1800, "")) +
		pptxtest.TextBox(5, "Right", 5000000, 1200000, pptxtest.Para("Right body", 0, ""))

	slide4 := pptxtest.Table(2, "Table", 0, 0, [][]string{{"a", "b"}, {"c", "d"}}) + brokenShape

	return pptxtest.Deck{
		Title: "Roadmap",
		Slides: []pptxtest.Slide{
			{Shapes: slide1, Notes: "Remember"},
			{},
			{Raw: `<p:sld xmlns:p="x"><p:cSld><p:spTree>`},
			{Shapes: slide4},
		},
	}
}

func writeSample(t *testing.T) string {
	t.Helper()
	return pptxtest.WriteFile(t, t.TempDir(), "deck.pptx", sampleDeck())
}

func itemTexts(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Fragment.Text
	}
	return out
}

func itemRoles(items []Item) []layout.Role {
	out := make([]layout.Role, len(items))
	for i, item := range items {
		out[i] = item.Role
	}
	return out
}

// documentPart returns one part of a DOCX package.
func documentPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestOpen_NotFound(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "missing.pptx")).Text()
	require.Error(t, err)

	var openErr *OpenError
	require.True(t, errors.As(err, &openErr))
	assert.Contains(t, openErr.Path, "missing.pptx")
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0o644))

	_, _, err := Open(path).Results()

	var openErr *OpenError
	require.True(t, errors.As(err, &openErr))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpen_DetectsByContent(t *testing.T) {
	path := pptxtest.WriteFile(t, t.TempDir(), "upload.bin", sampleDeck())

	count, err := Open(path).SlideCount()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestOpen_NoFilename(t *testing.T) {
	_, _, err := Open("").Text()

	var openErr *OpenError
	assert.True(t, errors.As(err, &openErr))
}

func TestExtractor_Results(t *testing.T) {
	results, warnings, err := Open(writeSample(t)).Results()
	require.NoError(t, err)
	require.Len(t, results, 4)

	first := results[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, first.Columns)
	assert.Equal(t, []string{
		"Quarterly Review",
		"Left body",
		"Left second",
		text.DefaultNotesMarker + "Remember",
		"Right body",
	}, itemTexts(first.Items))
	assert.Equal(t, []layout.Role{
		layout.RoleTitle,
		layout.RoleBody,
		layout.RoleSubheading,
		layout.RoleBody,
		layout.RoleBody,
	}, itemRoles(first.Items))
	assert.NoError(t, first.Err)

	empty := results[1]
	assert.True(t, empty.NoContent())
	assert.NoError(t, empty.Err)

	broken := results[2]
	assert.True(t, broken.NoContent())
	var slideErr *SlideProcessingError
	require.True(t, errors.As(broken.Err, &slideErr))
	assert.Equal(t, 3, slideErr.Slide)

	table := results[3]
	assert.Equal(t, []string{"a", "b", "c", "d"}, itemTexts(table.Items))
	require.Len(t, table.Skipped, 1)
	assert.Equal(t, "Broken", table.Skipped[0].ShapeName)

	require.Len(t, warnings, 2)
	assert.Equal(t, 3, warnings[0].Slide)
	assert.Empty(t, warnings[0].Shape)
	assert.Equal(t, 4, warnings[1].Slide)
	assert.Equal(t, "Broken", warnings[1].Shape)
}

func TestExtractor_Text(t *testing.T) {
	got, _, err := Open(writeSample(t)).Text()
	require.NoError(t, err)

	want := "Quarterly Review\nLeft body\nLeft second\n[Notes] Remember\nRight body" +
		"\n\n" +
		"a\nb\nc\nd"
	assert.Equal(t, want, got)
}

func TestExtractor_Fragments(t *testing.T) {
	frags, _, err := Open(writeSample(t)).Slides(4).Fragments()
	require.NoError(t, err)
	require.Len(t, frags, 4)
	assert.Equal(t, text.SourceTableCell, frags[0].Source)
	assert.Equal(t, int64(300000), frags[1].Left)
}

func TestExtractor_WithoutNotes(t *testing.T) {
	got, _, err := Open(writeSample(t)).Slides(1).WithoutNotes().Text()
	require.NoError(t, err)
	assert.NotContains(t, got, "Remember")
}

func TestExtractor_NotesMarker(t *testing.T) {
	got, _, err := Open(writeSample(t)).Slides(1).NotesMarker("Notes: ").Text()
	require.NoError(t, err)
	assert.Contains(t, got, "Notes: Remember")
}

func TestExtractor_ColumnTolerance(t *testing.T) {
	// Wide enough to put every fragment of slide 1 in one column
	results, _, err := Open(writeSample(t)).Slides(1).ColumnTolerance(10_000_000).Results()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Columns)
	assert.Equal(t, "Right body", results[0].Items[1].Fragment.Text)
}

func TestExtractor_ColumnToleranceInvalid(t *testing.T) {
	_, _, err := Open(writeSample(t)).ColumnTolerance(0).Text()
	assert.Error(t, err)
}

func TestExtractor_TableGrid(t *testing.T) {
	// Cells a full column apart read column by column
	results, _, err := Open(writeSample(t)).Slides(4).TableGrid(2_000_000, 300000).Results()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, itemTexts(results[0].Items))
}

func TestExtractor_SlideSelection(t *testing.T) {
	results, _, err := Open(writeSample(t)).Slides(4, 1, 1).Results()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Number)
	assert.Equal(t, 4, results[1].Number)

	results, _, err = Open(writeSample(t)).SlideRange(2, 3).Results()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Number)
}

func TestExtractor_SlideOutOfRange(t *testing.T) {
	_, _, err := Open(writeSample(t)).Slides(9).Results()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range (1-4)")
}

func TestExtractor_Immutable(t *testing.T) {
	base := Open("deck.pptx")
	derived := base.Slides(2).WithoutNotes().ColumnTolerance(1)

	assert.Nil(t, base.options.slides)
	assert.True(t, base.options.walker.IncludeNotes)
	assert.Equal(t, layout.DefaultColumnTolerance, base.options.columns.Tolerance)

	assert.Equal(t, []int{2}, derived.options.slides)
	assert.False(t, derived.options.walker.IncludeNotes)
	assert.Equal(t, int64(1), derived.options.columns.Tolerance)

	more := derived.Slides(3)
	assert.Equal(t, []int{2}, derived.options.slides)
	assert.Equal(t, []int{2, 3}, more.options.slides)
}

func TestExtractor_MalformedGroupOffset(t *testing.T) {
	group := pptxtest.Group(3, "G", 0, 0,
		pptxtest.TextBox(4, "A", 100000, 100000, pptxtest.Para("child a", 0, "")),
		pptxtest.TextBox(5, "B", 100000, 200000, pptxtest.Para("child b", 0, "")),
	)
	group = strings.Replace(group, `<a:off x="0"`, `<a:off x="12.5"`, 1)
	deck := pptxtest.Deck{Slides: []pptxtest.Slide{
		{Shapes: pptxtest.TextBox(2, "Sibling", 0, 0, pptxtest.Para("sibling", 0, "")) + group},
	}}

	results, warnings, err := Open(pptxtest.WriteFile(t, t.TempDir(), "group.pptx", deck)).Results()
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{"sibling", "child a", "child b"}, itemTexts(results[0].Items))
	require.Len(t, warnings, 1)
	assert.Equal(t, "G", warnings[0].Shape)
	assert.Contains(t, warnings[0].Message, "invalid x offset")
}

func TestExtractor_EachStop(t *testing.T) {
	var seen []int
	var events []progress.Event
	obs := progress.Func(func(e progress.Event) { events = append(events, e) })

	_, err := Open(writeSample(t)).Progress(obs).Each(func(r SlideResult) error {
		seen = append(seen, r.Number)
		if r.Number == 2 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)

	require.Len(t, events, 2)
	for _, e := range events {
		assert.False(t, e.Done, "a stopped run does not report completion")
		assert.NotEqual(t, progress.Complete, e.Message)
	}
}

func TestExtractor_EachCallbackError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Open(writeSample(t)).Each(func(SlideResult) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestExtractor_EachContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Open(writeSample(t)).EachContext(ctx, func(SlideResult) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestExtractor_Progress(t *testing.T) {
	var events []progress.Event
	obs := progress.Func(func(e progress.Event) { events = append(events, e) })

	_, _, err := Open(writeSample(t)).Progress(obs).Results()
	require.NoError(t, err)

	messages := make([]string, len(events))
	for i, e := range events {
		messages[i] = e.Message
	}
	require.Len(t, events, 6)
	assert.Equal(t, "Processing slide 1/4...", messages[0])
	assert.Equal(t, "Processing slide 3/4...", messages[2])
	assert.True(t, strings.HasPrefix(messages[3], "Error processing slide 3:"))
	assert.Equal(t, "Processing slide 4/4...", messages[4])

	last := events[5]
	assert.Equal(t, progress.Complete, last.Message)
	assert.True(t, last.Done)
	assert.Equal(t, 4, last.Slide)
	assert.Equal(t, 4, last.Total)
}

func TestExtractor_ProgressWithSelection(t *testing.T) {
	var events []progress.Event
	obs := progress.Func(func(e progress.Event) { events = append(events, e) })

	_, _, err := Open(writeSample(t)).Slides(4).Progress(obs).Results()
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, progress.Event{Slide: 1, Total: 1, Message: "Processing slide 4/4..."}, events[0])
	assert.Equal(t, 1, events[1].Total)
}

func TestExtractor_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	_, _, err := Open(writeSample(t)).Logger(zap.New(core)).Results()
	require.NoError(t, err)

	failed := logs.FilterMessage("slide failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(3), failed[0].ContextMap()["slide"])
	assert.Equal(t, 1, logs.FilterMessage("shape skipped").Len())
}

func TestExtractor_SaveDocx(t *testing.T) {
	path := writeSample(t)

	summary, warnings, err := Open(path).SaveDocx("")
	require.NoError(t, err)
	assert.Len(t, warnings, 2)

	want := filepath.Join(filepath.Dir(path), "deck_extracted.docx")
	assert.Equal(t, want, summary.Output)
	assert.Equal(t, 4, summary.Slides)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 9, summary.Fragments)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), summary.Bytes)

	doc := documentPart(t, data, "word/document.xml")
	for _, s := range []string{
		"Slide 1", "Slide 4",
		"Quarterly Review",
		"[No text on this slide]",
		"[This slide could not be read]",
		`<w:pStyle w:val="Heading2"></w:pStyle>`,
	} {
		assert.Contains(t, doc, s)
	}
	assert.Equal(t, 4, strings.Count(doc, `<w:br w:type="page"></w:br>`))
	assert.Less(t, strings.Index(doc, "Left second"), strings.Index(doc, "Right body"))

	core := documentPart(t, data, "docProps/core.xml")
	assert.Contains(t, core, "<dc:title>Roadmap</dc:title>")
	assert.Contains(t, core, "Extracted from deck.pptx")
}

func TestExtractor_SaveDocxWriteError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "out.docx")

	_, _, err := Open(writeSample(t)).SaveDocx(out)

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, out, writeErr.Path)
}

func TestExtractor_SaveDocxCancelled(t *testing.T) {
	dir := t.TempDir()
	path := pptxtest.WriteFile(t, dir, "deck.pptx", sampleDeck())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Open(path).SaveDocxContext(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(dir, "deck_extracted.docx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractor_WriteDocx(t *testing.T) {
	var buf bytes.Buffer
	summary, _, err := Open(writeSample(t)).Slides(1).WriteDocx(&buf)
	require.NoError(t, err)

	assert.Equal(t, int64(buf.Len()), summary.Bytes)
	assert.Empty(t, summary.Output)
	assert.Equal(t, 1, summary.Slides)

	doc := documentPart(t, buf.Bytes(), "word/document.xml")
	assert.Contains(t, doc, "Right body")
	assert.NotContains(t, doc, "Slide 2")
}

func TestFromReader(t *testing.T) {
	data := pptxtest.Build(t, sampleDeck())
	r, err := pptx.OpenReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer r.Close()

	ext := FromReader(r)
	results, _, err := ext.Results()
	require.NoError(t, err)
	assert.Len(t, results, 4)

	// The caller still owns the reader
	again, _, err := ext.Slides(1).Results()
	require.NoError(t, err)
	assert.Len(t, again, 1)

	_, _, err = FromReader(r).SaveDocx("")
	var writeErr *WriteError
	assert.True(t, errors.As(err, &writeErr))
}

func TestMust(t *testing.T) {
	assert.Equal(t, 4, Must(Open(writeSample(t)).SlideCount()))
	assert.Panics(t, func() { Must(Open("missing.pptx").SlideCount()) })
	assert.Panics(t, func() { MustText(Open("missing.pptx").Text()) })
}
