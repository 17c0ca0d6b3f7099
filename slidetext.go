// Package slidetext provides a fluent API for extracting the text of a
// PowerPoint deck in reading order and writing it to a Word document.
//
// Basic usage:
//
//	summary, warnings, err := slidetext.Open("deck.pptx").SaveDocx("")
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", slidetext.FormatWarnings(warnings))
//	}
//
// With options:
//
//	text, _, err := slidetext.Open("deck.pptx").
//	    SlideRange(2, 5).
//	    ColumnTolerance(250000).
//	    WithoutNotes().
//	    Text()
//
// Slides are read lazily and processed one at a time; a slide that cannot be
// read is reported as a warning and does not stop the others. For lower
// level access the pptx, text and layout packages can be used directly.
package slidetext

import (
	"github.com/tsawler/slidetext/pptx"
)

// Open prepares an Extractor for the deck at filename. The file is opened by
// the first terminal operation, which also closes it.
//
// Example:
//
//	text, warnings, err := slidetext.Open("deck.pptx").Text()
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromReader creates an Extractor from an already-opened pptx.Reader.
// The caller is responsible for closing the reader.
//
// Example:
//
//	r, err := pptx.Open("deck.pptx")
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	slides, warnings, err := slidetext.FromReader(r).Results()
func FromReader(r *pptx.Reader) *Extractor {
	return &Extractor{
		reader:       r,
		ownsReader:   false,
		readerOpened: true,
		options:      defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil.
//
// Example:
//
//	count := slidetext.Must(slidetext.Open("deck.pptx").SlideCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustText is a helper that wraps a call to Text() or Results() and panics
// if the error is non-nil. It discards warnings and returns just the value.
//
// Example:
//
//	text := slidetext.MustText(slidetext.Open("deck.pptx").Text())
func MustText[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
