// Package docx writes Word documents (Office Open XML WordprocessingML).
//
// A [Writer] collects paragraphs in memory and serialises them as a
// complete package:
//
//	w := docx.NewWriter(docx.Options{DefaultFont: "Calibri"})
//	w.AddHeading("Slide 1", 1, docx.RunStyle{}, docx.AlignCenter)
//	w.AddParagraph("Hello", docx.RunStyle{Size: 11})
//	w.AddPageBreak()
//	err := w.Save("out.docx")
//
// Every run names its typeface for Latin, complex and East Asian text so
// that CJK content renders in the requested font. Newlines in text become
// line breaks and tabs become tab stops.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Alignment is a paragraph's horizontal alignment.
type Alignment int

const (
	AlignDefault Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Alignment) val() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "both"
	default:
		return ""
	}
}

// RunStyle is the character formatting of a paragraph's text. Zero values
// inherit from the paragraph style.
type RunStyle struct {
	Font   string
	Size   float64 // Points
	Bold   bool
	Italic bool
	RTL    bool // Right-to-left text; also marks the paragraph bidi
}

// Paragraph is one paragraph to be written.
type Paragraph struct {
	Text         string
	HeadingLevel int // 1-3, 0 for body text
	Align        Alignment
	Run          RunStyle
	PageBreak    bool // A paragraph holding only a page break
}

// CoreProperties is document metadata written to docProps/core.xml.
type CoreProperties struct {
	Title       string
	Subject     string
	Creator     string
	Keywords    []string
	Description string
	Created     time.Time
	Modified    time.Time
}

// Options configures a Writer.
type Options struct {
	// DefaultFont is the typeface of the Normal style.
	// Default: "Calibri"
	DefaultFont string

	// DefaultSize is the size of the Normal style in points.
	// Default: 11
	DefaultSize float64

	// Application is recorded in docProps/app.xml.
	Application string
}

// MaxHeadingLevel is the deepest heading style defined by the writer.
const MaxHeadingLevel = 3

// Writer accumulates paragraphs and writes them as a .docx package. It is
// not safe for concurrent use.
type Writer struct {
	opts       Options
	props      CoreProperties
	paragraphs []Paragraph
	now        func() time.Time
}

// NewWriter creates a Writer.
func NewWriter(opts Options) *Writer {
	if opts.DefaultFont == "" {
		opts.DefaultFont = "Calibri"
	}
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = 11
	}
	if opts.Application == "" {
		opts.Application = "slidetext"
	}
	return &Writer{opts: opts, now: time.Now}
}

// SetProperties sets the document metadata.
func (w *Writer) SetProperties(props CoreProperties) {
	w.props = props
}

// Add appends a paragraph.
func (w *Writer) Add(p Paragraph) {
	w.paragraphs = append(w.paragraphs, p)
}

// AddHeading appends a heading paragraph. Levels outside 1-3 are clamped.
func (w *Writer) AddHeading(text string, level int, run RunStyle, align Alignment) {
	if level < 1 {
		level = 1
	}
	if level > MaxHeadingLevel {
		level = MaxHeadingLevel
	}
	w.Add(Paragraph{Text: text, HeadingLevel: level, Align: align, Run: run})
}

// AddParagraph appends a body paragraph.
func (w *Writer) AddParagraph(text string, run RunStyle) {
	w.Add(Paragraph{Text: text, Run: run})
}

// AddPageBreak appends a page break.
func (w *Writer) AddPageBreak() {
	w.Add(Paragraph{PageBreak: true})
}

// Len returns the number of paragraphs added, page breaks included.
func (w *Writer) Len() int {
	return len(w.paragraphs)
}

// part is one file of the package.
type part struct {
	name    string
	content func() ([]byte, error)
}

func (w *Writer) parts() []part {
	return []part{
		{"[Content_Types].xml", staticPart(contentTypesXML)},
		{"_rels/.rels", staticPart(packageRelsXML)},
		{"word/_rels/document.xml.rels", staticPart(documentRelsXML)},
		{"word/document.xml", w.documentPart},
		{"word/styles.xml", w.stylesPart},
		{"docProps/core.xml", w.corePart},
		{"docProps/app.xml", w.appPart},
	}
}

// WriteTo writes the package to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	cw := &countingWriter{w: out}
	zw := zip.NewWriter(cw)

	for _, p := range w.parts() {
		data, err := p.content()
		if err != nil {
			return cw.n, fmt.Errorf("building %s: %w", p.name, err)
		}
		f, err := zw.Create(p.name)
		if err != nil {
			return cw.n, fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := f.Write(data); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("finishing archive: %w", err)
	}
	return cw.n, nil
}

// Save writes the package to path. The file is written to a temporary name
// in the same directory and renamed into place, so path never holds a
// partial document.
func (w *Writer) Save(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = w.WriteTo(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

func (w *Writer) documentPart() ([]byte, error) {
	doc := documentXML{
		XmlnsW: nsW,
		XmlnsR: nsR,
		Body: bodyXML{
			Paragraphs: make([]paragraphXML, 0, len(w.paragraphs)),
			SectPr: sectPrXML{
				PageSize: pageSizeXML{W: "11906", H: "16838"},
				PageMargin: pageMarginXML{
					Top: "1440", Right: "1440", Bottom: "1440", Left: "1440",
					Header: "851", Footer: "992", Gutter: "0",
				},
			},
		},
	}
	for _, p := range w.paragraphs {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs, buildParagraph(p))
	}
	return marshalPart(doc)
}

func buildParagraph(p Paragraph) paragraphXML {
	if p.PageBreak {
		return paragraphXML{Runs: []runXML{{
			Content: []runItemXML{{XMLName: xml.Name{Local: "w:br"}, Type: "page"}},
		}}}
	}

	var props paragraphPropsXML
	hasProps := false
	if p.HeadingLevel > 0 {
		props.Style = &valXML{Val: headingStyleID(p.HeadingLevel)}
		hasProps = true
	}
	if p.Run.RTL {
		props.Bidi = &emptyXML{}
		hasProps = true
	}
	if v := p.Align.val(); v != "" {
		props.Justification = &valXML{Val: v}
		hasProps = true
	}

	para := paragraphXML{}
	if hasProps {
		para.Properties = &props
	}
	if p.Text != "" {
		para.Runs = []runXML{{
			Properties: buildRunProps(p.Run),
			Content:    runContent(p.Text),
		}}
	}
	return para
}

func buildRunProps(s RunStyle) *runPropsXML {
	var props runPropsXML
	empty := true
	if s.Font != "" {
		props.Fonts = &fontXML{ASCII: s.Font, HAnsi: s.Font, EastAsia: s.Font, CS: s.Font}
		empty = false
	}
	if s.Bold {
		props.Bold = &emptyXML{}
		props.BoldCS = &emptyXML{}
		empty = false
	}
	if s.Italic {
		props.Italic = &emptyXML{}
		empty = false
	}
	if s.Size > 0 {
		hp := halfPoints(s.Size)
		props.FontSize = &valXML{Val: hp}
		props.SizeCS = &valXML{Val: hp}
		empty = false
	}
	if s.RTL {
		props.RTL = &emptyXML{}
		empty = false
	}
	if empty {
		return nil
	}
	return &props
}

// runContent splits text into w:t, w:br and w:tab items.
func runContent(text string) []runItemXML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var items []runItemXML
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		items = append(items, runItemXML{
			XMLName: xml.Name{Local: "w:t"},
			Space:   "preserve",
			Value:   buf.String(),
		})
		buf.Reset()
	}

	for _, r := range text {
		switch r {
		case '\n':
			flush()
			items = append(items, runItemXML{XMLName: xml.Name{Local: "w:br"}})
		case '\t':
			flush()
			items = append(items, runItemXML{XMLName: xml.Name{Local: "w:tab"}})
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return items
}

// halfPoints converts points to the half-point units of w:sz.
func halfPoints(pt float64) string {
	return strconv.Itoa(int(pt*2 + 0.5))
}

func headingStyleID(level int) string {
	return "Heading" + strconv.Itoa(level)
}

func (w *Writer) stylesPart() ([]byte, error) {
	font := w.opts.DefaultFont
	styles := stylesXML{
		XmlnsW: nsW,
		DocDefaults: docDefaultsXML{
			RPrDefault: rPrDefaultXML{RPr: runPropsXML{
				Fonts:    &fontXML{ASCII: font, HAnsi: font, EastAsia: font, CS: font},
				FontSize: &valXML{Val: halfPoints(w.opts.DefaultSize)},
				SizeCS:   &valXML{Val: halfPoints(w.opts.DefaultSize)},
			}},
		},
		Styles: []styleDefXML{{
			Type:    "paragraph",
			StyleID: "Normal",
			Default: "1",
			Name:    valXML{Val: "Normal"},
			QFormat: &emptyXML{},
		}},
	}

	// Heading sizes in points, from level 1 down
	sizes := [MaxHeadingLevel]float64{16, 14, 12}
	for i, size := range sizes {
		level := i + 1
		styles.Styles = append(styles.Styles, styleDefXML{
			Type:    "paragraph",
			StyleID: headingStyleID(level),
			Name:    valXML{Val: "heading " + strconv.Itoa(level)},
			BasedOn: &valXML{Val: "Normal"},
			Next:    &valXML{Val: "Normal"},
			QFormat: &emptyXML{},
			PPr: &paragraphPropsXML{
				KeepNext:   &emptyXML{},
				Spacing:    &spacingXML{Before: "240", After: "120"},
				OutlineLvl: &valXML{Val: strconv.Itoa(i)},
			},
			RPr: &runPropsXML{
				Bold:     &emptyXML{},
				BoldCS:   &emptyXML{},
				FontSize: &valXML{Val: halfPoints(size)},
				SizeCS:   &valXML{Val: halfPoints(size)},
			},
		})
	}

	return marshalPart(styles)
}

func (w *Writer) corePart() ([]byte, error) {
	created := w.props.Created
	if created.IsZero() {
		created = w.now()
	}
	modified := w.props.Modified
	if modified.IsZero() {
		modified = created
	}

	core := corePropertiesXML{
		XmlnsCP:     nsCP,
		XmlnsDC:     nsDC,
		XmlnsDCT:    nsDCTerms,
		XmlnsXSI:    nsXSI,
		Title:       w.props.Title,
		Subject:     w.props.Subject,
		Creator:     w.props.Creator,
		Keywords:    strings.Join(w.props.Keywords, ", "),
		Description: w.props.Description,
		Created:     &w3cDateXML{Type: "dcterms:W3CDTF", Value: created.UTC().Format(time.RFC3339)},
		Modified:    &w3cDateXML{Type: "dcterms:W3CDTF", Value: modified.UTC().Format(time.RFC3339)},
	}
	return marshalPart(core)
}

func (w *Writer) appPart() ([]byte, error) {
	pages := 1
	for _, p := range w.paragraphs {
		if p.PageBreak {
			pages++
		}
	}
	return marshalPart(appPropertiesXML{
		Xmlns:       nsExtended,
		Application: w.opts.Application,
		Pages:       pages,
		Paragraphs:  len(w.paragraphs),
	})
}

func marshalPart(v interface{}) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), data...), nil
}

func staticPart(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
