package text

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tsawler/slidetext/pptx"
)

// Defaults used by DefaultConfig.
const (
	DefaultStride        int64   = 300000
	DefaultFontSize      float64 = 12.0
	DefaultTableFontSize float64 = 11.0
	DefaultFontName              = "Microsoft YaHei"
	DefaultNotesMarker           = "[Notes] "
	DefaultNotesTop      int64   = 999_999_999
)

const maxPreviewRunes = 30

// Config controls how shapes become fragments.
type Config struct {
	// ColumnStride and RowStride space table cells on a synthetic grid
	// anchored at the table's offset.
	ColumnStride int64
	RowStride    int64

	// DefaultFontSize is used when no run in a text body sets a size.
	DefaultFontSize float64

	// TableFontSize is used for table cells and notes.
	TableFontSize float64

	// DefaultFontName is used when no run names a typeface, and for table
	// cells and notes.
	DefaultFontName string

	// IncludeNotes adds the speaker notes as a final fragment placed at
	// (0, NotesTop), prefixed by NotesMarker.
	IncludeNotes bool
	NotesMarker  string
	NotesTop     int64
}

// DefaultConfig returns the default walker configuration.
func DefaultConfig() Config {
	return Config{
		ColumnStride:    DefaultStride,
		RowStride:       DefaultStride,
		DefaultFontSize: DefaultFontSize,
		TableFontSize:   DefaultTableFontSize,
		DefaultFontName: DefaultFontName,
		IncludeNotes:    true,
		NotesMarker:     DefaultNotesMarker,
		NotesTop:        DefaultNotesTop,
	}
}

// ShapeExtractionError reports a shape that was skipped. It never aborts a
// slide.
type ShapeExtractionError struct {
	Slide     int // 1-indexed
	ShapeID   string
	ShapeName string
	Err       error
}

func (e *ShapeExtractionError) Error() string {
	return fmt.Sprintf("slide %d: shape %q (id %s): %v", e.Slide, e.ShapeName, e.ShapeID, e.Err)
}

func (e *ShapeExtractionError) Unwrap() error {
	return e.Err
}

// Extractor walks the shape tree of a slide. It holds no per-slide state and
// may be shared between goroutines.
type Extractor struct {
	config Config
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger discards log output.
func NewExtractor(config Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{config: config, logger: logger}
}

// Config returns the extractor's configuration.
func (e *Extractor) Config() Config {
	return e.config
}

// walk holds the state of one Extract call.
type walk struct {
	*Extractor
	slide     int
	seen      map[Key]struct{}
	fragments []TextFragment
	skipped   []*ShapeExtractionError
}

// Extract returns the deduplicated fragments of slide in discovery order,
// along with the shapes that had to be skipped.
func (e *Extractor) Extract(slide *pptx.Slide) ([]TextFragment, []*ShapeExtractionError) {
	if slide == nil {
		return nil, nil
	}

	w := &walk{
		Extractor: e,
		slide:     slide.Number(),
		seen:      make(map[Key]struct{}),
		fragments: make([]TextFragment, 0, len(slide.Shapes)),
	}

	w.logger.Debug("walking slide",
		zap.Int("slide", w.slide),
		zap.Int("shapes", len(slide.Shapes)))

	w.shapes(slide.Shapes, 0, 0)

	if e.config.IncludeNotes {
		if notes := strings.TrimSpace(slide.Notes); notes != "" {
			w.add(TextFragment{
				Text:     e.config.NotesMarker + notes,
				Left:     0,
				Top:      e.config.NotesTop,
				FontSize: e.config.TableFontSize,
				FontName: e.config.DefaultFontName,
				Source:   SourceNotes,
			})
		}
	}

	return w.fragments, w.skipped
}

func (w *walk) shapes(shapes []pptx.Shape, parentLeft, parentTop int64) {
	for i := range shapes {
		w.shape(&shapes[i], parentLeft, parentTop)
	}
}

// shape emits the fragments of one shape. A panic while reading the shape
// is contained here so that siblings are still visited.
func (w *walk) shape(s *pptx.Shape, parentLeft, parentTop int64) {
	defer func() {
		if r := recover(); r != nil {
			w.skip(s, fmt.Errorf("panic: %v", r))
		}
	}()

	if s.Err != nil {
		w.skip(s, s.Err)
		if s.Kind == pptx.KindGroup {
			// Children keep the parent's offset
			w.shapes(s.Children, parentLeft, parentTop)
		}
		return
	}

	left := parentLeft + s.Left
	top := parentTop + s.Top

	switch s.Kind {
	case pptx.KindGroup:
		w.shapes(s.Children, left, top)
		return
	case pptx.KindTable:
		if s.Table != nil {
			w.table(s, left, top)
			return
		}
	}

	if txt, size, name := w.richText(s); txt != "" {
		w.emit(s, txt, left, top, size, name)
		return
	}

	if raw := strings.TrimSpace(s.RawText); raw != "" {
		w.emit(s, raw, left, top, w.config.DefaultFontSize, w.config.DefaultFontName)
		return
	}

	w.logger.Debug("shape has no text",
		zap.Int("slide", w.slide),
		zap.String("shape", s.Name),
		zap.Stringer("kind", s.Kind))
}

func (w *walk) table(s *pptx.Shape, left, top int64) {
	for r, row := range s.Table.Rows {
		for c, cell := range row {
			txt := strings.TrimSpace(cell.Text)
			if txt == "" || cell.IsMerged {
				continue
			}
			w.add(TextFragment{
				Text:      txt,
				Left:      left + int64(c)*w.config.ColumnStride,
				Top:       top + int64(r)*w.config.RowStride,
				FontSize:  w.config.TableFontSize,
				FontName:  w.config.DefaultFontName,
				Source:    SourceTableCell,
				ShapeName: s.Name,
			})
		}
	}
}

// richText joins the non-empty paragraphs of a text body. The first run of
// each non-empty paragraph is inspected for a font size and a typeface; the
// first value found for each wins.
func (w *walk) richText(s *pptx.Shape) (string, float64, string) {
	if s.Kind != pptx.KindRichText {
		return "", 0, ""
	}

	size := 0.0
	name := ""
	texts := make([]string, 0, len(s.Paragraphs))
	for _, para := range s.Paragraphs {
		t := strings.TrimSpace(para.Text)
		if t == "" {
			continue
		}
		texts = append(texts, t)

		if len(para.Runs) == 0 {
			continue
		}
		run := para.Runs[0]
		if size == 0 && run.FontSize > 0 {
			size = run.FontSize
		}
		if name == "" && run.FontName != "" {
			name = run.FontName
		}
	}

	if size == 0 {
		size = w.config.DefaultFontSize
	}
	if name == "" {
		name = w.config.DefaultFontName
	}
	return strings.Join(texts, "\n"), size, name
}

func (w *walk) emit(s *pptx.Shape, txt string, left, top int64, size float64, name string) {
	w.add(TextFragment{
		Text:      txt,
		Left:      left,
		Top:       top,
		Width:     s.Width,
		Height:    s.Height,
		FontSize:  size,
		FontName:  name,
		Source:    SourceShape,
		ShapeName: s.Name,
	})
}

// add cleans f and appends it unless it is empty or already seen.
func (w *walk) add(f TextFragment) {
	f.Text = strings.TrimSpace(Clean(f.Text))
	if f.Text == "" {
		return
	}

	key := f.Key()
	if _, dup := w.seen[key]; dup {
		w.logger.Debug("duplicate fragment dropped",
			zap.Int("slide", w.slide),
			zap.Stringer("key", key))
		return
	}
	w.seen[key] = struct{}{}

	f.Direction = DetectDirection(f.Text)
	w.fragments = append(w.fragments, f)

	w.logger.Debug("fragment",
		zap.Int("slide", w.slide),
		zap.String("shape", f.ShapeName),
		zap.Stringer("source", f.Source),
		zap.Int64("left", f.Left),
		zap.Int64("top", f.Top),
		zap.Float64("size", f.FontSize),
		zap.String("text", preview(f.Text)))
}

func (w *walk) skip(s *pptx.Shape, err error) {
	serr := &ShapeExtractionError{
		Slide:     w.slide,
		ShapeID:   s.ID,
		ShapeName: s.Name,
		Err:       err,
	}
	w.skipped = append(w.skipped, serr)
	w.logger.Warn("shape skipped",
		zap.Int("slide", w.slide),
		zap.String("shape", s.Name),
		zap.Error(err))
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= maxPreviewRunes {
		return s
	}
	return string(r[:maxPreviewRunes]) + "..."
}
