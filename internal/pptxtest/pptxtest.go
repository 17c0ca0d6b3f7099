// Package pptxtest builds small PPTX packages in memory for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const slideNamespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
	`xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"`

// Deck describes a presentation package.
type Deck struct {
	Slides []Slide

	// Order lists slide positions (indexes into Slides) in the order the
	// presentation's slide id list names them. Nil keeps Slides order.
	Order []int

	// OmitSlideList leaves sldIdLst out of presentation.xml so readers fall
	// back to part numbering.
	OmitSlideList bool

	Title  string
	Author string

	// Parts adds or replaces raw parts, keyed by part name.
	Parts map[string]string
}

// Slide describes one slide. Shapes is the XML placed inside p:spTree.
type Slide struct {
	Shapes string
	Notes  string

	// Raw replaces the whole slide part when non-empty.
	Raw string
}

// Build returns the zipped package.
func Build(t testing.TB, deck Deck) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	parts := deck.parts()
	for _, name := range sortedNames(parts) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(parts[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes the package to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, deck Deck) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Build(t, deck), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func (d Deck) parts() map[string]string {
	parts := map[string]string{
		"[Content_Types].xml": contentTypes(len(d.Slides)),
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`,
	}

	order := d.Order
	if order == nil {
		order = make([]int, len(d.Slides))
		for i := range order {
			order[i] = i
		}
	}

	var ids, rels strings.Builder
	for pos, idx := range order {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+pos, 100+idx)
	}
	for i := range d.Slides {
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, 100+i, i+1)
	}

	slideList := "<p:sldIdLst>" + ids.String() + "</p:sldIdLst>"
	if d.OmitSlideList {
		slideList = ""
	}
	parts["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation ` + slideNamespaces + `>` + slideList + `</p:presentation>`
	parts["ppt/_rels/presentation.xml.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels.String() + `</Relationships>`

	for i, s := range d.Slides {
		n := i + 1
		if s.Raw != "" {
			parts[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = s.Raw
		} else {
			parts[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = SlideXML(s.Shapes)
		}
		if s.Notes != "" {
			parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide%d.xml"/>
</Relationships>`, n)
			parts[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = notesXML(s.Notes)
		}
	}

	if d.Title != "" || d.Author != "" {
		parts["docProps/core.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
			`<dc:title>` + html.EscapeString(d.Title) + `</dc:title>` +
			`<dc:creator>` + html.EscapeString(d.Author) + `</dc:creator>` +
			`</cp:coreProperties>`
	}

	for name, content := range d.Parts {
		parts[name] = content
	}
	return parts
}

func contentTypes(slides int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

// SlideXML wraps shapes in a complete slide part.
func SlideXML(shapes string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld ` + slideNamespaces + `><p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		shapes +
		`</p:spTree></p:cSld></p:sld>`
}

func notesXML(notes string) string {
	var paras strings.Builder
	for _, line := range strings.Split(notes, "\n") {
		paras.WriteString(Para(line, 0, ""))
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes ` + slideNamespaces + `><p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>` +
		`<p:txBody><a:bodyPr/>` + paras.String() + `</p:txBody></p:sp>` +
		`</p:spTree></p:cSld></p:notes>`
}

// Para returns an a:p holding one run. size is in hundredths of a point and
// font a Latin typeface; zero values leave the property unset.
func Para(text string, size int, font string) string {
	return `<a:p>` + Run(text, size, font) + `</a:p>`
}

// Run returns an a:r element.
func Run(text string, size int, font string) string {
	var attrs, children string
	if size > 0 {
		attrs = fmt.Sprintf(` sz="%d"`, size)
	}
	if font != "" {
		children = `<a:latin typeface="` + html.EscapeString(font) + `"/>`
	}
	return `<a:r><a:rPr lang="en-US"` + attrs + `>` + children + `</a:rPr><a:t>` + html.EscapeString(text) + `</a:t></a:r>`
}

func xfrm(x, y, cx, cy int64) string {
	return fmt.Sprintf(`<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, x, y, cx, cy)
}

// TextBox returns a p:sp with a text body made of paras (a:p elements).
func TextBox(id int, name string, x, y int64, paras ...string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, html.EscapeString(name)) +
		`<p:spPr>` + xfrm(x, y, 2000000, 500000) + `</p:spPr>` +
		`<p:txBody><a:bodyPr/><a:lstStyle/>` + strings.Join(paras, "") + `</p:txBody></p:sp>`
}

// Placeholder returns a placeholder p:sp of the given type.
func Placeholder(id int, name, phType string, x, y int64, paras ...string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr><p:ph type="%s"/></p:nvPr></p:nvSpPr>`, id, html.EscapeString(name), phType) +
		`<p:spPr>` + xfrm(x, y, 8000000, 1000000) + `</p:spPr>` +
		`<p:txBody><a:bodyPr/>` + strings.Join(paras, "") + `</p:txBody></p:sp>`
}

// Group returns a p:grpSp at (x, y) holding children.
func Group(id int, name string, x, y int64, children ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`, id, html.EscapeString(name)) +
		`<p:grpSpPr><a:xfrm>` + fmt.Sprintf(`<a:off x="%d" y="%d"/><a:ext cx="4000000" cy="2000000"/><a:chOff x="0" y="0"/><a:chExt cx="4000000" cy="2000000"/>`, x, y) + `</a:xfrm></p:grpSpPr>` +
		strings.Join(children, "") + `</p:grpSp>`
}

// Table returns a p:graphicFrame holding an a:tbl of rows.
func Table(id int, name string, x, y int64, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, id, html.EscapeString(name))
	b.WriteString(`<p:xfrm>` + fmt.Sprintf(`<a:off x="%d" y="%d"/><a:ext cx="6000000" cy="1000000"/>`, x, y) + `</p:xfrm>`)
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblGrid/>`)
	for _, row := range rows {
		b.WriteString(`<a:tr h="370840">`)
		for _, cell := range row {
			b.WriteString(`<a:tc><a:txBody><a:bodyPr/>` + Para(cell, 0, "") + `</a:txBody></a:tc>`)
		}
		b.WriteString(`</a:tr>`)
	}
	b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	return b.String()
}

// Picture returns a p:pic without text.
func Picture(id int, name string, x, y int64) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`, id, html.EscapeString(name)) +
		`<p:blipFill><a:blip r:embed="rId9"/></p:blipFill>` +
		`<p:spPr>` + xfrm(x, y, 1000000, 1000000) + `</p:spPr></p:pic>`
}

func sortedNames(parts map[string]string) []string {
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	// [Content_Types].xml first, as Office writes it
	sort.Slice(names, func(i, j int) bool { return lessPart(names[i], names[j]) })
	return names
}

func lessPart(a, b string) bool {
	if a == "[Content_Types].xml" {
		return b != a
	}
	if b == "[Content_Types].xml" {
		return false
	}
	return a < b
}
