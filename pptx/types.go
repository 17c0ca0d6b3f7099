// Package pptx provides PPTX (Office Open XML Presentation) document parsing.
package pptx

import (
	"encoding/xml"
	"io"
)

// XML namespaces used in PPTX files.
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationship types resolved by the reader.
const (
	relTypeSlide      = nsRelationships + "/slide"
	relTypeNotesSlide = nsRelationships + "/notesSlide"
)

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

type slideIdXML struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// slideXML represents a ppt/slides/slide*.xml file structure.
type slideXML struct {
	XMLName xml.Name `xml:"sld"`
	CSld    cSldXML  `xml:"cSld"`
}

// notesSlideXML represents a ppt/notesSlides/notesSlide*.xml file.
type notesSlideXML struct {
	XMLName xml.Name `xml:"notes"`
	CSld    cSldXML  `xml:"cSld"`
}

type cSldXML struct {
	SpTree shapeTreeXML `xml:"spTree"`
}

// shapeTreeXML is both the slide's spTree and a grpSp. Children are kept in
// document order, which encoding/xml loses when each element kind is
// collected into its own slice.
type shapeTreeXML struct {
	NvGrpSpPr nvSpPrXML
	GrpSpPr   spPrXML
	Elements  []shapeNodeXML
}

// shapeNodeXML holds exactly one child of a shape tree.
type shapeNodeXML struct {
	Sp    *spXML
	Group *shapeTreeXML
	Frame *graphicFrameXML
	Pic   *picXML
	Cxn   *cxnSpXML
}

// UnmarshalXML decodes the children of a shape tree in document order.
func (t *shapeTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if err := t.decodeChild(d, el); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (t *shapeTreeXML) decodeChild(d *xml.Decoder, el xml.StartElement) error {
	switch el.Name.Local {
	case "nvGrpSpPr":
		return d.DecodeElement(&t.NvGrpSpPr, &el)
	case "grpSpPr":
		return d.DecodeElement(&t.GrpSpPr, &el)
	case "sp":
		sp := &spXML{}
		if err := d.DecodeElement(sp, &el); err != nil {
			return err
		}
		t.Elements = append(t.Elements, shapeNodeXML{Sp: sp})
	case "grpSp":
		grp := &shapeTreeXML{}
		if err := d.DecodeElement(grp, &el); err != nil {
			return err
		}
		t.Elements = append(t.Elements, shapeNodeXML{Group: grp})
	case "graphicFrame":
		gf := &graphicFrameXML{}
		if err := d.DecodeElement(gf, &el); err != nil {
			return err
		}
		t.Elements = append(t.Elements, shapeNodeXML{Frame: gf})
	case "pic":
		pic := &picXML{}
		if err := d.DecodeElement(pic, &el); err != nil {
			return err
		}
		t.Elements = append(t.Elements, shapeNodeXML{Pic: pic})
	case "cxnSp":
		cxn := &cxnSpXML{}
		if err := d.DecodeElement(cxn, &el); err != nil {
			return err
		}
		t.Elements = append(t.Elements, shapeNodeXML{Cxn: cxn})
	case "AlternateContent":
		alt := &alternateContentXML{}
		if err := d.DecodeElement(alt, &el); err != nil {
			return err
		}
		t.Elements = append(t.Elements, alt.elements()...)
	default:
		return d.Skip()
	}
	return nil
}

// alternateContentXML represents mc:AlternateContent wrapping shapes.
type alternateContentXML struct {
	Choice   []shapeTreeXML `xml:"Choice"`
	Fallback *shapeTreeXML  `xml:"Fallback"`
}

// elements returns the first non-empty Choice, else the Fallback.
func (a *alternateContentXML) elements() []shapeNodeXML {
	for _, c := range a.Choice {
		if len(c.Elements) > 0 {
			return c.Elements
		}
	}
	if a.Fallback != nil {
		return a.Fallback.Elements
	}
	return nil
}

type cNvPrXML struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Title string `xml:"title,attr"`
	Descr string `xml:"descr,attr"`
}

// nvSpPrXML covers nvSpPr, nvGrpSpPr, nvPicPr, nvCxnSpPr and nvGraphicFramePr,
// which share the cNvPr/nvPr layout.
type nvSpPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
	NvPr  nvPrXML  `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"`
}

type phXML struct {
	Type string `xml:"type,attr"` // title, body, subTitle, ctrTitle, etc.
	Idx  string `xml:"idx,attr"`
}

// spXML represents a shape element.
type spXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	SpPr   spPrXML    `xml:"spPr"`
	TxBody *txBodyXML `xml:"txBody"`
	Inner  string     `xml:",innerxml"`
}

type cxnSpXML struct {
	NvCxnSpPr nvSpPrXML `xml:"nvCxnSpPr"`
	SpPr      spPrXML   `xml:"spPr"`
}

type picXML struct {
	NvPicPr nvSpPrXML `xml:"nvPicPr"`
	SpPr    spPrXML   `xml:"spPr"`
}

type spPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
}

// xfrmXML keeps coordinates as strings so a malformed value fails one shape
// rather than the whole slide part.
type xfrmXML struct {
	Off *pointXML `xml:"off"`
	Ext *sizeXML  `xml:"ext"`
}

type pointXML struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
}

type sizeXML struct {
	Cx string `xml:"cx,attr"`
	Cy string `xml:"cy,attr"`
}

// txBodyXML represents text body content.
type txBodyXML struct {
	P []pXML `xml:"p"`
}

// pXML represents a paragraph. Runs, breaks and fields are kept in order.
type pXML struct {
	Content []pContentXML
}

type pContentXML struct {
	Run   *rXML
	Field *fldXML
	Break bool
}

// UnmarshalXML decodes a paragraph preserving the order of r, br and fld.
func (p *pXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r":
				r := &rXML{}
				if err := d.DecodeElement(r, &el); err != nil {
					return err
				}
				p.Content = append(p.Content, pContentXML{Run: r})
			case "fld":
				f := &fldXML{}
				if err := d.DecodeElement(f, &el); err != nil {
					return err
				}
				p.Content = append(p.Content, pContentXML{Field: f})
			case "br":
				p.Content = append(p.Content, pContentXML{Break: true})
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// rXML represents a text run.
type rXML struct {
	RPr *rPrXML `xml:"rPr"`
	T   string  `xml:"t"`
}

type rPrXML struct {
	Sz    string       `xml:"sz,attr"` // Font size in hundredths of a point
	Latin *typefaceXML `xml:"latin"`
	Ea    *typefaceXML `xml:"ea"`
}

type typefaceXML struct {
	Typeface string `xml:"typeface,attr"`
}

type fldXML struct {
	Type string  `xml:"type,attr"` // slidenum, datetime, etc.
	RPr  *rPrXML `xml:"rPr"`
	T    string  `xml:"t"`
}

// graphicFrameXML represents a graphic frame (tables, charts, diagrams).
type graphicFrameXML struct {
	NvGraphicFramePr nvSpPrXML  `xml:"nvGraphicFramePr"`
	Xfrm             *xfrmXML   `xml:"xfrm"`
	Graphic          graphicXML `xml:"graphic"`
	Inner            string     `xml:",innerxml"`
}

type graphicXML struct {
	GraphicData graphicDataXML `xml:"graphicData"`
}

type graphicDataXML struct {
	URI string  `xml:"uri,attr"`
	Tbl *tblXML `xml:"tbl"`
}

// tblXML represents a table.
type tblXML struct {
	Tr []trXML `xml:"tr"`
}

type trXML struct {
	Tc []tcXML `xml:"tc"`
}

type tcXML struct {
	TxBody *txBodyXML `xml:"txBody"`
	VMerge string     `xml:"vMerge,attr"`
	HMerge string     `xml:"hMerge,attr"`
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName     xml.Name `xml:"coreProperties"`
	Title       string   `xml:"title"`
	Subject     string   `xml:"subject"`
	Creator     string   `xml:"creator"`
	Keywords    string   `xml:"keywords"`
	Description string   `xml:"description"`
	LastModBy   string   `xml:"lastModifiedBy"`
}

// appPropertiesXML represents docProps/app.xml.
type appPropertiesXML struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
	Company     string   `xml:"Company"`
	Slides      int      `xml:"Slides"`
	Notes       int      `xml:"Notes"`
}
