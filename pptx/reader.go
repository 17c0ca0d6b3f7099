// Package pptx provides PPTX (Office Open XML Presentation) document parsing.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrNotPresentation is returned when a ZIP archive lacks the parts every
// presentation package must carry.
var ErrNotPresentation = errors.New("not a presentation package")

// Reader provides access to PPTX document content. Slides are parsed on
// demand so that a damaged slide part does not prevent reading the others.
type Reader struct {
	zipReader *zip.Reader
	closer    io.Closer
	files     map[string]*zip.File

	slidePaths []string
	coreProps  *corePropertiesXML
	appProps   *appPropertiesXML
}

// Open opens a PPTX file for reading.
func Open(filename string) (*Reader, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r, err := newReader(&zr.Reader, zr)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

// OpenReader reads a PPTX package from ra, which holds size bytes.
// The caller keeps ownership of ra.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	return newReader(zr, nil)
}

func newReader(zr *zip.Reader, closer io.Closer) (*Reader, error) {
	r := &Reader{
		zipReader: zr,
		closer:    closer,
		files:     make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	if err := r.resolveSlides(); err != nil {
		return nil, fmt.Errorf("resolving slides: %w", err)
	}

	// Metadata is optional
	r.parseCoreProperties()
	r.parseAppProperties()

	return r, nil
}

// Close releases resources associated with the Reader.
func (r *Reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// validate checks that required PPTX files exist.
func (r *Reader) validate() error {
	required := []string{
		"[Content_Types].xml",
		"ppt/presentation.xml",
	}

	for _, name := range required {
		if _, ok := r.files[name]; !ok {
			return fmt.Errorf("%w: missing required file: %s", ErrNotPresentation, name)
		}
	}
	return nil
}

// getFileContent reads the content of a file from the ZIP archive.
func (r *Reader) getFileContent(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// decodePart reads and unmarshals an XML part, honouring any declared
// non-UTF-8 encoding.
func (r *Reader) decodePart(name string, v interface{}) error {
	data, err := r.getFileContent(name)
	if err != nil {
		return err
	}
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// relationships parses the .rels part belonging to partName. A missing
// rels part is not an error.
func (r *Reader) relationships(partName string) (*relationshipsXML, error) {
	relsPath := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	if _, ok := r.files[relsPath]; !ok {
		return &relationshipsXML{}, nil
	}
	rels := &relationshipsXML{}
	if err := r.decodePart(relsPath, rels); err != nil {
		return nil, err
	}
	return rels, nil
}

// resolveTarget resolves a relationship target against its source part.
func resolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(sourcePart), target))
}

// resolveSlides determines slide order from the presentation's slide id
// list. Packages without a usable list fall back to slide part numbering.
func (r *Reader) resolveSlides() error {
	pres := &presentationXML{}
	if err := r.decodePart("ppt/presentation.xml", pres); err != nil {
		return err
	}

	rels, err := r.relationships("ppt/presentation.xml")
	if err != nil {
		return err
	}
	targets := make(map[string]string, len(rels.Relationship))
	for _, rel := range rels.Relationship {
		if rel.Type == relTypeSlide && rel.TargetMode != "External" {
			targets[rel.ID] = resolveTarget("ppt/presentation.xml", rel.Target)
		}
	}

	if pres.SlideIdList != nil {
		for _, id := range pres.SlideIdList.SlideId {
			target, ok := targets[id.RID]
			if !ok {
				continue
			}
			if _, ok := r.files[target]; ok {
				r.slidePaths = append(r.slidePaths, target)
			}
		}
	}

	if len(r.slidePaths) == 0 {
		r.slidePaths = r.scanSlideParts()
	}
	return nil
}

// scanSlideParts lists ppt/slides/slideN.xml parts sorted by N.
func (r *Reader) scanSlideParts() []string {
	var slideFiles []string
	for name := range r.files {
		if path.Dir(name) == "ppt/slides" && strings.HasPrefix(path.Base(name), "slide") && strings.HasSuffix(name, ".xml") {
			slideFiles = append(slideFiles, name)
		}
	}
	sort.Slice(slideFiles, func(i, j int) bool {
		ni, nj := extractSlideNumber(slideFiles[i]), extractSlideNumber(slideFiles[j])
		if ni != nj {
			return ni < nj
		}
		return slideFiles[i] < slideFiles[j]
	})
	return slideFiles
}

// extractSlideNumber extracts the slide number from a path like "ppt/slides/slide1.xml"
func extractSlideNumber(name string) int {
	num := strings.TrimSuffix(strings.TrimPrefix(path.Base(name), "slide"), ".xml")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0
	}
	return n
}

// SlideCount returns the number of slides.
func (r *Reader) SlideCount() int {
	return len(r.slidePaths)
}

// Slide parses and returns the slide at the given index (0-indexed).
func (r *Reader) Slide(index int) (*Slide, error) {
	if index < 0 || index >= len(r.slidePaths) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", index, len(r.slidePaths)-1)
	}
	part := r.slidePaths[index]

	var sx slideXML
	if err := r.decodePart(part, &sx); err != nil {
		return nil, err
	}

	slide := &Slide{
		Index:  index,
		Part:   part,
		Shapes: convertTree(&sx.CSld.SpTree),
	}

	// Notes are optional; a broken notes part leaves them empty
	slide.Notes, _ = r.parseSlideNotes(part)

	return slide, nil
}

// parseSlideNotes returns the text of the notes slide's body placeholder.
func (r *Reader) parseSlideNotes(slidePart string) (string, error) {
	rels, err := r.relationships(slidePart)
	if err != nil {
		return "", err
	}

	var notesPath string
	for _, rel := range rels.Relationship {
		if rel.Type == relTypeNotesSlide {
			notesPath = resolveTarget(slidePart, rel.Target)
			break
		}
	}
	if notesPath == "" {
		return "", nil
	}

	var notes notesSlideXML
	if err := r.decodePart(notesPath, &notes); err != nil {
		return "", err
	}

	for _, shape := range convertTree(&notes.CSld.SpTree) {
		if shape.Placeholder != "body" || shape.Kind != KindRichText {
			continue
		}
		texts := make([]string, 0, len(shape.Paragraphs))
		for _, para := range shape.Paragraphs {
			texts = append(texts, para.Text)
		}
		return strings.TrimSpace(strings.Join(texts, "\n")), nil
	}
	return "", nil
}

// parseCoreProperties parses Dublin Core metadata.
func (r *Reader) parseCoreProperties() {
	props := &corePropertiesXML{}
	if err := r.decodePart("docProps/core.xml", props); err == nil {
		r.coreProps = props
	}
}

// parseAppProperties parses application metadata.
func (r *Reader) parseAppProperties() {
	props := &appPropertiesXML{}
	if err := r.decodePart("docProps/app.xml", props); err == nil {
		r.appProps = props
	}
}

// Metadata returns document metadata.
func (r *Reader) Metadata() Metadata {
	meta := Metadata{}
	if r.coreProps != nil {
		meta.Title = r.coreProps.Title
		meta.Author = r.coreProps.Creator
		meta.Subject = r.coreProps.Subject
		if r.coreProps.Keywords != "" {
			for _, kw := range strings.Split(r.coreProps.Keywords, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					meta.Keywords = append(meta.Keywords, kw)
				}
			}
		}
	}
	if r.appProps != nil {
		meta.Application = r.appProps.Application
	}
	return meta
}
