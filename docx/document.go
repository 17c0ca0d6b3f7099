package docx

import "encoding/xml"

// XML namespaces used in DOCX files
const (
	nsW        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsDC       = "http://purl.org/dc/elements/1.1/"
	nsCP       = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	nsDCTerms  = "http://purl.org/dc/terms/"
	nsXSI      = "http://www.w3.org/2001/XMLSchema-instance"
	nsExtended = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
)

// Element names carry their prefix literally; the prefixes are declared on
// each part's root element.

// documentXML represents the structure of word/document.xml
type documentXML struct {
	XMLName xml.Name `xml:"w:document"`
	XmlnsW  string   `xml:"xmlns:w,attr"`
	XmlnsR  string   `xml:"xmlns:r,attr"`
	Body    bodyXML  `xml:"w:body"`
}

// bodyXML represents the document body.
type bodyXML struct {
	Paragraphs []paragraphXML `xml:"w:p"`
	SectPr     sectPrXML      `xml:"w:sectPr"`
}

// paragraphXML represents a paragraph element (<w:p>).
type paragraphXML struct {
	Properties *paragraphPropsXML `xml:"w:pPr,omitempty"`
	Runs       []runXML           `xml:"w:r"`
}

// paragraphPropsXML represents paragraph properties (<w:pPr>). Field order
// follows the schema sequence.
type paragraphPropsXML struct {
	Style         *valXML     `xml:"w:pStyle,omitempty"`
	KeepNext      *emptyXML   `xml:"w:keepNext,omitempty"`
	Bidi          *emptyXML   `xml:"w:bidi,omitempty"`
	Spacing       *spacingXML `xml:"w:spacing,omitempty"`
	Justification *valXML     `xml:"w:jc,omitempty"`
	OutlineLvl    *valXML     `xml:"w:outlineLvl,omitempty"`
}

// valXML is any element whose only content is a w:val attribute.
type valXML struct {
	Val string `xml:"w:val,attr"`
}

// emptyXML is an on/off element whose presence means on.
type emptyXML struct{}

// spacingXML represents paragraph spacing in twentieths of a point.
type spacingXML struct {
	Before string `xml:"w:before,attr,omitempty"`
	After  string `xml:"w:after,attr,omitempty"`
}

// runXML represents a text run (<w:r>).
type runXML struct {
	Properties *runPropsXML `xml:"w:rPr,omitempty"`
	Content    []runItemXML
}

// runItemXML is one of w:t, w:tab or w:br. XMLName selects which.
type runItemXML struct {
	XMLName xml.Name
	Space   string `xml:"xml:space,attr,omitempty"`
	Type    string `xml:"w:type,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// runPropsXML represents run properties (<w:rPr>). Field order follows the
// schema sequence.
type runPropsXML struct {
	Fonts    *fontXML  `xml:"w:rFonts,omitempty"`
	Bold     *emptyXML `xml:"w:b,omitempty"`
	BoldCS   *emptyXML `xml:"w:bCs,omitempty"`
	Italic   *emptyXML `xml:"w:i,omitempty"`
	FontSize *valXML   `xml:"w:sz,omitempty"`
	SizeCS   *valXML   `xml:"w:szCs,omitempty"`
	RTL      *emptyXML `xml:"w:rtl,omitempty"`
}

// fontXML represents font settings.
type fontXML struct {
	ASCII    string `xml:"w:ascii,attr,omitempty"`
	HAnsi    string `xml:"w:hAnsi,attr,omitempty"`
	EastAsia string `xml:"w:eastAsia,attr,omitempty"`
	CS       string `xml:"w:cs,attr,omitempty"`
}

// sectPrXML sets an A4 portrait page with 2.54cm margins.
type sectPrXML struct {
	PageSize   pageSizeXML   `xml:"w:pgSz"`
	PageMargin pageMarginXML `xml:"w:pgMar"`
}

type pageSizeXML struct {
	W string `xml:"w:w,attr"`
	H string `xml:"w:h,attr"`
}

type pageMarginXML struct {
	Top    string `xml:"w:top,attr"`
	Right  string `xml:"w:right,attr"`
	Bottom string `xml:"w:bottom,attr"`
	Left   string `xml:"w:left,attr"`
	Header string `xml:"w:header,attr"`
	Footer string `xml:"w:footer,attr"`
	Gutter string `xml:"w:gutter,attr"`
}

// stylesXML represents the structure of word/styles.xml
type stylesXML struct {
	XMLName     xml.Name       `xml:"w:styles"`
	XmlnsW      string         `xml:"xmlns:w,attr"`
	DocDefaults docDefaultsXML `xml:"w:docDefaults"`
	Styles      []styleDefXML  `xml:"w:style"`
}

// docDefaultsXML represents document default styles.
type docDefaultsXML struct {
	RPrDefault rPrDefaultXML `xml:"w:rPrDefault"`
}

// rPrDefaultXML represents default run properties.
type rPrDefaultXML struct {
	RPr runPropsXML `xml:"w:rPr"`
}

// styleDefXML represents a style definition.
type styleDefXML struct {
	Type    string             `xml:"w:type,attr"` // paragraph, character, table, numbering
	StyleID string             `xml:"w:styleId,attr"`
	Default string             `xml:"w:default,attr,omitempty"` // "1" if default style
	Name    valXML             `xml:"w:name"`
	BasedOn *valXML            `xml:"w:basedOn,omitempty"`
	Next    *valXML            `xml:"w:next,omitempty"`
	QFormat *emptyXML          `xml:"w:qFormat,omitempty"`
	PPr     *paragraphPropsXML `xml:"w:pPr,omitempty"`
	RPr     *runPropsXML       `xml:"w:rPr,omitempty"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName     xml.Name    `xml:"cp:coreProperties"`
	XmlnsCP     string      `xml:"xmlns:cp,attr"`
	XmlnsDC     string      `xml:"xmlns:dc,attr"`
	XmlnsDCT    string      `xml:"xmlns:dcterms,attr"`
	XmlnsXSI    string      `xml:"xmlns:xsi,attr"`
	Title       string      `xml:"dc:title,omitempty"`
	Subject     string      `xml:"dc:subject,omitempty"`
	Creator     string      `xml:"dc:creator,omitempty"`
	Keywords    string      `xml:"cp:keywords,omitempty"`
	Description string      `xml:"dc:description,omitempty"`
	Created     *w3cDateXML `xml:"dcterms:created,omitempty"`
	Modified    *w3cDateXML `xml:"dcterms:modified,omitempty"`
}

type w3cDateXML struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

// appPropertiesXML represents docProps/app.xml.
type appPropertiesXML struct {
	XMLName     xml.Name `xml:"Properties"`
	Xmlns       string   `xml:"xmlns,attr"`
	Application string   `xml:"Application"`
	Pages       int      `xml:"Pages,omitempty"`
	Paragraphs  int      `xml:"Paragraphs"`
}
