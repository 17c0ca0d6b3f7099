package pptx

// ShapeKind identifies which text container a shape is.
type ShapeKind int

const (
	// KindOther is a shape with no discoverable text (pictures, connectors,
	// charts without cached text).
	KindOther ShapeKind = iota
	// KindGroup is a group shape; its text lives in Children.
	KindGroup
	// KindTable is a graphic frame holding a table.
	KindTable
	// KindRichText is a shape with a text body of paragraphs and runs.
	KindRichText
	// KindPlainText is a shape whose only text is found by scanning its raw
	// XML for text elements.
	KindPlainText
)

// String returns a string representation of the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindTable:
		return "table"
	case KindRichText:
		return "rich-text"
	case KindPlainText:
		return "plain-text"
	default:
		return "other"
	}
}

// Slide represents a parsed slide.
type Slide struct {
	Index  int     // 0-indexed position in presentation order
	Part   string  // Part name inside the package, e.g. ppt/slides/slide3.xml
	Shapes []Shape // Top-level shapes in document (z) order
	Notes  string  // Speaker notes text, empty if none
}

// Number returns the 1-indexed slide number.
func (s *Slide) Number() int {
	return s.Index + 1
}

// Shape is one node of a slide's shape tree. Position fields are the raw
// offsets from the shape's own transform; callers accumulate group offsets.
type Shape struct {
	ID          string
	Name        string
	Kind        ShapeKind
	Placeholder string // Placeholder type (title, body, etc.), empty if none

	Left, Top     int64 // Offset in EMUs
	Width, Height int64 // Extent in EMUs, 0 if unknown

	Children   []Shape     // KindGroup only
	Table      *Table      // KindTable only
	Paragraphs []Paragraph // KindRichText only

	// RawText is every text element found under the shape, paragraphs
	// separated by newlines. It backs shapes whose structure is unknown.
	RawText string

	// Err is set when the shape could not be decoded. Other fields may be
	// partially populated.
	Err error
}

// Paragraph represents a paragraph within a text body.
type Paragraph struct {
	Text string // Trimmed text of runs, fields and breaks in order
	Runs []Run  // Text runs; fields are not runs
}

// Run represents a text run with consistent formatting.
type Run struct {
	Text     string
	FontSize float64 // In points, 0 if not set on the run
	FontName string  // Latin (else East Asian) typeface, empty if not set
}

// Table represents a table on a slide.
type Table struct {
	Rows [][]TableCell
}

// TableCell represents a cell in a table.
type TableCell struct {
	Text     string
	IsMerged bool // Covered by a merged cell; the origin holds the text
}

// Metadata holds package properties.
type Metadata struct {
	Title       string
	Subject     string
	Author      string
	Keywords    []string
	Application string
}
