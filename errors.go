package slidetext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsawler/slidetext/text"
)

// ErrUnsupportedFormat is wrapped by OpenError when the input is not a
// PowerPoint package.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// OpenError reports that the deck could not be opened. Nothing was
// processed.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("opening presentation: %v", e.Err)
	}
	return fmt.Sprintf("opening %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SlideProcessingError reports a slide that could not be read. The slide is
// kept in the results with no content and processing moves on.
type SlideProcessingError struct {
	Slide int // 1-indexed
	Err   error
}

func (e *SlideProcessingError) Error() string {
	return fmt.Sprintf("slide %d: %v", e.Slide, e.Err)
}

func (e *SlideProcessingError) Unwrap() error { return e.Err }

// WriteError reports that the output document could not be written. All
// slides had been processed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("writing document: %v", e.Err)
	}
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Warning is a non-fatal problem met during extraction. Results are still
// returned but may be missing the affected shape or slide.
type Warning struct {
	Slide   int    // 1-indexed
	Shape   string // Shape name, empty for slide-level problems
	Message string
	Err     error
}

func (w Warning) String() string {
	if w.Shape != "" {
		return fmt.Sprintf("slide %d, shape %q: %s", w.Slide, w.Shape, w.Message)
	}
	return fmt.Sprintf("slide %d: %s", w.Slide, w.Message)
}

func shapeWarning(err *text.ShapeExtractionError) Warning {
	return Warning{
		Slide:   err.Slide,
		Shape:   err.ShapeName,
		Message: "shape skipped: " + err.Err.Error(),
		Err:     err,
	}
}

func slideWarning(err *SlideProcessingError) Warning {
	return Warning{
		Slide:   err.Slide,
		Message: "slide skipped: " + err.Err.Error(),
		Err:     err,
	}
}

// FormatWarnings joins warnings into one line each.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
