package slidetext

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsawler/slidetext/docx"
	"github.com/tsawler/slidetext/layout"
	"github.com/tsawler/slidetext/pptx"
	"github.com/tsawler/slidetext/text"
)

// Sizes, in points, of the paragraphs each role is rendered as.
const (
	SubheadingSize   = 15.0
	MinorHeadingSize = 12.0
	BodySize         = 11.0
)

// DefaultOutputSuffix replaces the input extension in DefaultOutputPath.
const DefaultOutputSuffix = "_extracted.docx"

// RenderOptions controls the Word document built from the slides.
type RenderOptions struct {
	// SlideHeading is a fmt format taking the slide number, written as a
	// centred level 1 heading at the start of every slide.
	SlideHeading string

	// EmptySlideText is written for slides with no text at all.
	EmptySlideText string

	// FailedSlideText is written for slides that could not be read.
	FailedSlideText string

	// Font is used for slide headings, placeholder text and as the
	// document default.
	Font string

	// Application is recorded in the document properties.
	Application string
}

// DefaultRenderOptions returns the default rendering options.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		SlideHeading:    "Slide %d",
		EmptySlideText:  "[No text on this slide]",
		FailedSlideText: "[This slide could not be read]",
		Font:            text.DefaultFontName,
		Application:     "slidetext",
	}
}

// DefaultOutputPath returns the document path used when none is given:
// the input path with its extension replaced by DefaultOutputSuffix.
func DefaultOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + DefaultOutputSuffix
}

// newDocument creates a writer carrying the deck's properties.
func newDocument(opts RenderOptions, meta pptx.Metadata, source string) *docx.Writer {
	w := docx.NewWriter(docx.Options{
		DefaultFont: opts.Font,
		DefaultSize: BodySize,
		Application: opts.Application,
	})

	title := meta.Title
	if title == "" && source != "" {
		base := filepath.Base(source)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	props := docx.CoreProperties{
		Title:    title,
		Subject:  meta.Subject,
		Creator:  meta.Author,
		Keywords: meta.Keywords,
	}
	if source != "" {
		props.Description = "Extracted from " + filepath.Base(source)
	}
	w.SetProperties(props)
	return w
}

// renderSlide appends one slide: its heading, its items in reading order
// and a page break.
func renderSlide(w *docx.Writer, res SlideResult, opts RenderOptions) {
	font := docx.RunStyle{Font: opts.Font}
	w.AddHeading(fmt.Sprintf(opts.SlideHeading, res.Number), 1, font, docx.AlignCenter)

	switch {
	case res.Err != nil:
		w.AddParagraph(opts.FailedSlideText, font)
	case res.NoContent():
		w.AddParagraph(opts.EmptySlideText, font)
	default:
		for _, item := range res.Items {
			renderItem(w, item)
		}
	}

	w.AddPageBreak()
}

func renderItem(w *docx.Writer, item Item) {
	f := item.Fragment
	run := docx.RunStyle{
		Font: f.FontName,
		RTL:  f.Direction == text.RTL,
	}

	switch item.Role {
	case layout.RoleTitle:
		w.AddHeading(f.Text, 2, run, docx.AlignDefault)
		return
	case layout.RoleSubheading:
		run.Size = SubheadingSize
		run.Bold = true
	case layout.RoleMinorHeading:
		run.Size = MinorHeadingSize
	default:
		run.Size = BodySize
	}
	w.AddParagraph(f.Text, run)
}
