package slidetext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tsawler/slidetext/format"
	"github.com/tsawler/slidetext/layout"
	"github.com/tsawler/slidetext/pptx"
	"github.com/tsawler/slidetext/progress"
	"github.com/tsawler/slidetext/text"
)

// ErrStop can be returned from an Each callback to end iteration early
// without reporting an error.
var ErrStop = errors.New("stop iteration")

// Item is one fragment of a slide with the role derived from its font size.
type Item struct {
	Fragment text.TextFragment
	Role     layout.Role
}

// SlideResult holds the ordered content of one slide.
type SlideResult struct {
	Index  int // 0-indexed position in the deck
	Number int // 1-indexed slide number
	Items  []Item

	// Columns is the number of reading-order columns found.
	Columns int

	// Skipped lists shapes that could not be read. The rest of the slide
	// is still present.
	Skipped []*text.ShapeExtractionError

	// Err is a *SlideProcessingError when the slide could not be read at
	// all. Items is empty in that case.
	Err error
}

// NoContent reports whether the slide produced no text.
func (r SlideResult) NoContent() bool {
	return len(r.Items) == 0
}

// Fragments returns the slide's fragments in reading order.
func (r SlideResult) Fragments() []text.TextFragment {
	frags := make([]text.TextFragment, len(r.Items))
	for i, item := range r.Items {
		frags[i] = item.Fragment
	}
	return frags
}

// Text joins the slide's fragments with newlines.
func (r SlideResult) Text() string {
	parts := make([]string, len(r.Items))
	for i, item := range r.Items {
		parts[i] = item.Fragment.Text
	}
	return strings.Join(parts, "\n")
}

// Summary describes a finished export.
type Summary struct {
	Slides    int    // Slides processed
	Failed    int    // Slides that could not be read
	Fragments int    // Text fragments written
	Output    string // Document path, empty when written to a stream
	Bytes     int64  // Document size
}

// Extractor provides a fluent interface for extracting slide text.
// Each configuration method returns a new Extractor instance, making it
// safe to share a configured Extractor and allowing method chaining.
// A single Extractor processes one deck on one goroutine.
type Extractor struct {
	// Source
	filename string

	reader *pptx.Reader

	// Lifecycle
	ownsReader   bool // true if we opened the reader and should close it
	readerOpened bool // true if reader has been opened

	// Configuration
	options ExtractOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a shallow copy of the Extractor with a deep copy of options.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename:     e.filename,
		reader:       e.reader,
		ownsReader:   e.ownsReader,
		readerOpened: e.readerOpened,
		options:      e.options.clone(),
		err:          e.err,
	}
}

// ensureReader opens the reader if not already open.
func (e *Extractor) ensureReader() error {
	if e.readerOpened {
		return nil
	}
	if e.filename == "" {
		return &OpenError{Err: errors.New("no filename specified")}
	}

	if format.Detect(e.filename) != format.PPTX {
		f, err := format.DetectFile(e.filename)
		if err != nil {
			return &OpenError{Path: e.filename, Err: err}
		}
		if f != format.PPTX {
			return &OpenError{Path: e.filename, Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)}
		}
	}

	r, err := pptx.Open(e.filename)
	if err != nil {
		return &OpenError{Path: e.filename, Err: err}
	}
	e.reader = r
	e.ownsReader = true
	e.readerOpened = true
	return nil
}

// Close releases resources associated with the Extractor.
// It is safe to call Close multiple times.
func (e *Extractor) Close() error {
	if e.ownsReader && e.reader != nil {
		err := e.reader.Close()
		e.reader = nil
		e.ownsReader = false
		e.readerOpened = false
		return err
	}
	return nil
}

// ============================================================================
// Configuration Methods (return new Extractor instance)
// ============================================================================

// Slides specifies which slides to extract (1-indexed). Multiple calls are
// cumulative. Slides are always processed in deck order.
//
// Example:
//
//	text, _, err := slidetext.Open("deck.pptx").Slides(1, 3).Text()
func (e *Extractor) Slides(slides ...int) *Extractor {
	newExt := e.clone()
	newExt.options.slides = append(newExt.options.slides, slides...)
	return newExt
}

// SlideRange specifies a range of slides to extract (1-indexed, inclusive).
func (e *Extractor) SlideRange(start, end int) *Extractor {
	newExt := e.clone()
	for i := start; i <= end; i++ {
		newExt.options.slides = append(newExt.options.slides, i)
	}
	return newExt
}

// ColumnTolerance sets the horizontal distance, in EMUs, within which
// fragments share a reading-order column.
func (e *Extractor) ColumnTolerance(tolerance int64) *Extractor {
	newExt := e.clone()
	if tolerance <= 0 {
		newExt.err = fmt.Errorf("column tolerance must be positive, got %d", tolerance)
		return newExt
	}
	newExt.options.columns.Tolerance = tolerance
	return newExt
}

// TableGrid sets the synthetic spacing, in EMUs, of table cells.
func (e *Extractor) TableGrid(columnStride, rowStride int64) *Extractor {
	newExt := e.clone()
	newExt.options.walker.ColumnStride = columnStride
	newExt.options.walker.RowStride = rowStride
	return newExt
}

// WithoutNotes leaves speaker notes out of the results.
func (e *Extractor) WithoutNotes() *Extractor {
	newExt := e.clone()
	newExt.options.walker.IncludeNotes = false
	return newExt
}

// NotesMarker sets the prefix of the speaker notes fragment.
func (e *Extractor) NotesMarker(marker string) *Extractor {
	newExt := e.clone()
	newExt.options.walker.NotesMarker = marker
	return newExt
}

// DefaultFont sets the typeface assumed when a shape names none. It is also
// used for slide headings in the output document.
func (e *Extractor) DefaultFont(name string) *Extractor {
	newExt := e.clone()
	newExt.options.walker.DefaultFontName = name
	newExt.options.render.Font = name
	return newExt
}

// WithTextConfig replaces the shape walker configuration.
func (e *Extractor) WithTextConfig(config text.Config) *Extractor {
	newExt := e.clone()
	newExt.options.walker = config
	return newExt
}

// WithColumnConfig replaces the column clustering configuration.
func (e *Extractor) WithColumnConfig(config layout.ColumnConfig) *Extractor {
	newExt := e.clone()
	newExt.options.columns = config
	return newExt
}

// WithRenderOptions replaces the document rendering options.
func (e *Extractor) WithRenderOptions(opts RenderOptions) *Extractor {
	newExt := e.clone()
	newExt.options.render = opts
	return newExt
}

// Logger sets the logger. A nil logger discards output.
func (e *Extractor) Logger(logger *zap.Logger) *Extractor {
	newExt := e.clone()
	if logger == nil {
		logger = zap.NewNop()
	}
	newExt.options.logger = logger
	return newExt
}

// Progress sets the observer notified as slides are processed. Observers
// are called synchronously and must not block.
func (e *Extractor) Progress(observer progress.Observer) *Extractor {
	newExt := e.clone()
	if observer == nil {
		observer = progress.Nop
	}
	newExt.options.observer = observer
	return newExt
}

// ============================================================================
// Terminal Operations (execute extraction and return results)
// ============================================================================

// SlideCount returns the number of slides in the deck.
// Note: This does NOT close the reader, allowing further operations.
func (e *Extractor) SlideCount() (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if err := e.ensureReader(); err != nil {
		return 0, err
	}
	return e.reader.SlideCount(), nil
}

// Each processes the selected slides in order and calls fn with each
// result. Returning ErrStop from fn ends iteration with no error and no
// completion event; any other error ends it and is returned. This is a terminal operation that closes
// the underlying reader.
func (e *Extractor) Each(fn func(SlideResult) error) ([]Warning, error) {
	return e.EachContext(context.Background(), fn)
}

// EachContext is Each with cancellation checked between slides.
func (e *Extractor) EachContext(ctx context.Context, fn func(SlideResult) error) ([]Warning, error) {
	if e.err != nil {
		return nil, e.err
	}
	if err := e.ensureReader(); err != nil {
		return nil, err
	}
	defer e.Close()

	total, stopped, warnings, err := e.each(ctx, fn)
	if err != nil {
		return warnings, err
	}
	if !stopped {
		e.complete(total)
	}
	return warnings, nil
}

// Results returns every selected slide in order.
// This is a terminal operation that closes the underlying reader.
//
// Example:
//
//	slides, warnings, err := slidetext.Open("deck.pptx").Results()
//	for _, s := range slides {
//	    fmt.Println(s.Number, s.Text())
//	}
func (e *Extractor) Results() ([]SlideResult, []Warning, error) {
	var results []SlideResult
	warnings, err := e.Each(func(r SlideResult) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}
	return results, warnings, nil
}

// Fragments returns the fragments of all selected slides in reading order.
// This is a terminal operation that closes the underlying reader.
func (e *Extractor) Fragments() ([]text.TextFragment, []Warning, error) {
	var frags []text.TextFragment
	warnings, err := e.Each(func(r SlideResult) error {
		frags = append(frags, r.Fragments()...)
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}
	return frags, warnings, nil
}

// Text returns the text of all selected slides, fragments separated by
// newlines and slides by a blank line. Slides without text are omitted.
// This is a terminal operation that closes the underlying reader.
func (e *Extractor) Text() (string, []Warning, error) {
	var result strings.Builder
	warnings, err := e.Each(func(r SlideResult) error {
		if r.NoContent() {
			return nil
		}
		if result.Len() > 0 {
			result.WriteString("\n\n")
		}
		result.WriteString(r.Text())
		return nil
	})
	if err != nil {
		return "", warnings, err
	}
	return result.String(), warnings, nil
}

// WriteDocx renders the selected slides as a Word document to out.
// This is a terminal operation that closes the underlying reader.
func (e *Extractor) WriteDocx(out io.Writer) (*Summary, []Warning, error) {
	if e.err != nil {
		return nil, nil, e.err
	}
	if err := e.ensureReader(); err != nil {
		return nil, nil, err
	}
	defer e.Close()

	doc := newDocument(e.options.render, e.reader.Metadata(), e.filename)
	summary := &Summary{}
	total, _, warnings, err := e.each(context.Background(), func(r SlideResult) error {
		summary.add(r)
		renderSlide(doc, r, e.options.render)
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}

	n, err := doc.WriteTo(out)
	if err != nil {
		return nil, warnings, &WriteError{Err: err}
	}
	summary.Bytes = n
	e.complete(total)
	return summary, warnings, nil
}

// SaveDocx renders the selected slides as a Word document at path. An empty
// path selects DefaultOutputPath of the input file. The document is written
// only after every slide has been processed.
// This is a terminal operation that closes the underlying reader.
//
// Example:
//
//	summary, warnings, err := slidetext.Open("deck.pptx").SaveDocx("")
//	// writes deck_extracted.docx
func (e *Extractor) SaveDocx(path string) (*Summary, []Warning, error) {
	return e.SaveDocxContext(context.Background(), path)
}

// SaveDocxContext is SaveDocx with cancellation checked between slides.
// Nothing is written when ctx is cancelled.
func (e *Extractor) SaveDocxContext(ctx context.Context, path string) (*Summary, []Warning, error) {
	if e.err != nil {
		return nil, nil, e.err
	}
	if path == "" {
		if e.filename == "" {
			return nil, nil, &WriteError{Err: errors.New("no output path and no input filename")}
		}
		path = DefaultOutputPath(e.filename)
	}
	if err := e.ensureReader(); err != nil {
		return nil, nil, err
	}
	defer e.Close()

	doc := newDocument(e.options.render, e.reader.Metadata(), e.filename)
	summary := &Summary{Output: path}
	total, _, warnings, err := e.each(ctx, func(r SlideResult) error {
		summary.add(r)
		renderSlide(doc, r, e.options.render)
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}

	if err := doc.Save(path); err != nil {
		return nil, warnings, &WriteError{Path: path, Err: err}
	}
	if info, err := os.Stat(path); err == nil {
		summary.Bytes = info.Size()
	}

	e.options.logger.Info("document written",
		zap.String("output", path),
		zap.Int("slides", summary.Slides),
		zap.Int("failed", summary.Failed),
		zap.Int("fragments", summary.Fragments))

	e.complete(total)
	return summary, warnings, nil
}

func (s *Summary) add(r SlideResult) {
	s.Slides++
	s.Fragments += len(r.Items)
	if r.Err != nil {
		s.Failed++
	}
}

// ============================================================================
// Slide processing
// ============================================================================

// each runs the slide loop and returns the number of slides selected and
// whether fn ended it early with ErrStop. The reader must be open.
func (e *Extractor) each(ctx context.Context, fn func(SlideResult) error) (int, bool, []Warning, error) {
	indices, err := e.resolveSlides()
	if err != nil {
		return 0, false, nil, err
	}

	walker := text.NewExtractor(e.options.walker, e.options.logger)
	detector := layout.NewColumnDetectorWithConfig(e.options.columns)
	logger := e.options.logger
	total := len(indices)
	count := 0

	var warnings []Warning
	for pos, index := range indices {
		if err := ctx.Err(); err != nil {
			return total, false, warnings, err
		}

		number := index + 1
		e.options.observer.Observe(progress.Event{
			Slide:   pos + 1,
			Total:   total,
			Message: progress.SlideStarted(number, e.reader.SlideCount()),
		})

		res := e.processSlide(walker, detector, index)
		for _, skipped := range res.Skipped {
			warnings = append(warnings, shapeWarning(skipped))
		}

		var serr *SlideProcessingError
		if errors.As(res.Err, &serr) {
			warnings = append(warnings, slideWarning(serr))
			logger.Warn("slide failed", zap.Int("slide", number), zap.Error(serr.Err))
			e.options.observer.Observe(progress.Event{
				Slide:   pos + 1,
				Total:   total,
				Message: progress.SlideFailed(number, serr.Err),
			})
		}

		count += len(res.Items)
		logger.Debug("slide extracted",
			zap.Int("slide", number),
			zap.Int("fragments", len(res.Items)),
			zap.Int("columns", res.Columns),
			zap.Int("skipped", len(res.Skipped)),
			zap.Int("running_total", count))

		if err := fn(res); err != nil {
			if errors.Is(err, ErrStop) {
				return total, true, warnings, nil
			}
			return total, false, warnings, err
		}
	}

	return total, false, warnings, nil
}

// processSlide loads, walks, orders and classifies one slide. A failure
// anywhere leaves an empty result carrying a SlideProcessingError.
func (e *Extractor) processSlide(walker *text.Extractor, detector *layout.ColumnDetector, index int) (res SlideResult) {
	res = SlideResult{Index: index, Number: index + 1}

	defer func() {
		if r := recover(); r != nil {
			res.Items = nil
			res.Columns = 0
			res.Err = &SlideProcessingError{Slide: index + 1, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	slide, err := e.reader.Slide(index)
	if err != nil {
		res.Err = &SlideProcessingError{Slide: index + 1, Err: err}
		return res
	}

	frags, skipped := walker.Extract(slide)
	res.Skipped = skipped

	ordered := detector.Detect(frags)
	res.Columns = ordered.ColumnCount()
	res.Items = make([]Item, len(ordered.Fragments))
	for i, f := range ordered.Fragments {
		res.Items[i] = Item{Fragment: f, Role: layout.ClassifyFontSize(f.FontSize)}
	}
	return res
}

// resolveSlides converts the 1-indexed selection into sorted, unique
// 0-indexed slide indices.
func (e *Extractor) resolveSlides() ([]int, error) {
	slideCount := e.reader.SlideCount()

	// If no slides specified, use all slides
	if len(e.options.slides) == 0 {
		indices := make([]int, slideCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	seen := make(map[int]bool)
	var indices []int
	for _, s := range e.options.slides {
		if s < 1 || s > slideCount {
			return nil, fmt.Errorf("slide %d out of range (1-%d)", s, slideCount)
		}
		if !seen[s-1] {
			seen[s-1] = true
			indices = append(indices, s-1)
		}
	}

	sort.Ints(indices)
	return indices, nil
}

// complete sends the final progress event.
func (e *Extractor) complete(total int) {
	e.options.observer.Observe(progress.Event{
		Slide:   total,
		Total:   total,
		Message: progress.Complete,
		Done:    true,
	})
}
