package pptx

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// convertTree converts the children of a shape tree in document order.
func convertTree(tree *shapeTreeXML) []Shape {
	shapes := make([]Shape, 0, len(tree.Elements))
	for i := range tree.Elements {
		shapes = append(shapes, convertNode(&tree.Elements[i]))
	}
	return shapes
}

func convertNode(n *shapeNodeXML) Shape {
	switch {
	case n.Group != nil:
		return convertGroup(n.Group)
	case n.Frame != nil:
		return convertFrame(n.Frame)
	case n.Sp != nil:
		return convertSp(n.Sp)
	case n.Pic != nil:
		shape := newShape(&n.Pic.NvPicPr)
		shape.setTransform(n.Pic.SpPr.Xfrm)
		return shape
	case n.Cxn != nil:
		shape := newShape(&n.Cxn.NvCxnSpPr)
		shape.setTransform(n.Cxn.SpPr.Xfrm)
		return shape
	}
	return Shape{Kind: KindOther}
}

func newShape(nv *nvSpPrXML) Shape {
	shape := Shape{
		ID:   nv.CNvPr.ID,
		Name: nv.CNvPr.Name,
		Kind: KindOther,
	}
	if nv.NvPr.Ph != nil {
		shape.Placeholder = nv.NvPr.Ph.Type
		if shape.Placeholder == "" {
			// An untyped placeholder is a body placeholder
			shape.Placeholder = "body"
		}
	}
	return shape
}

func convertGroup(g *shapeTreeXML) Shape {
	shape := newShape(&g.NvGrpSpPr)
	shape.Kind = KindGroup
	shape.setTransform(g.GrpSpPr.Xfrm)
	shape.Children = convertTree(g)
	return shape
}

func convertFrame(gf *graphicFrameXML) Shape {
	shape := newShape(&gf.NvGraphicFramePr)
	shape.setTransform(gf.Xfrm)

	if tbl := gf.Graphic.GraphicData.Tbl; tbl != nil {
		shape.Kind = KindTable
		shape.Table = convertTable(tbl)
		return shape
	}

	shape.RawText = scanText(gf.Inner)
	if shape.RawText != "" {
		shape.Kind = KindPlainText
	}
	return shape
}

func convertSp(sp *spXML) Shape {
	shape := newShape(&sp.NvSpPr)
	shape.setTransform(sp.SpPr.Xfrm)
	shape.RawText = scanText(sp.Inner)

	switch {
	case sp.TxBody != nil:
		shape.Kind = KindRichText
		shape.Paragraphs = make([]Paragraph, 0, len(sp.TxBody.P))
		for i := range sp.TxBody.P {
			shape.Paragraphs = append(shape.Paragraphs, convertParagraph(&sp.TxBody.P[i]))
		}
	case shape.RawText != "":
		shape.Kind = KindPlainText
	}
	return shape
}

// setTransform copies offset and extent from xfrm. A malformed coordinate
// marks the shape as failed.
func (s *Shape) setTransform(xfrm *xfrmXML) {
	if xfrm == nil {
		return
	}
	var err error
	if xfrm.Off != nil {
		if s.Left, err = parseEMU(xfrm.Off.X); err != nil {
			s.Err = fmt.Errorf("shape %q: invalid x offset: %w", s.Name, err)
			return
		}
		if s.Top, err = parseEMU(xfrm.Off.Y); err != nil {
			s.Err = fmt.Errorf("shape %q: invalid y offset: %w", s.Name, err)
			return
		}
	}
	if xfrm.Ext != nil {
		if s.Width, err = parseEMU(xfrm.Ext.Cx); err != nil {
			s.Err = fmt.Errorf("shape %q: invalid width: %w", s.Name, err)
			return
		}
		if s.Height, err = parseEMU(xfrm.Ext.Cy); err != nil {
			s.Err = fmt.Errorf("shape %q: invalid height: %w", s.Name, err)
			return
		}
	}
}

// parseEMU parses a coordinate attribute. An absent attribute is zero.
func parseEMU(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// convertParagraph extracts text and formatting from a paragraph.
func convertParagraph(p *pXML) Paragraph {
	para := Paragraph{
		Runs: make([]Run, 0, len(p.Content)),
	}

	var text strings.Builder
	for _, c := range p.Content {
		switch {
		case c.Run != nil:
			text.WriteString(c.Run.T)
			run := Run{Text: c.Run.T}
			applyRunProps(&run, c.Run.RPr)
			para.Runs = append(para.Runs, run)
		case c.Field != nil:
			text.WriteString(c.Field.T)
		case c.Break:
			text.WriteString("\n")
		}
	}

	para.Text = strings.TrimSpace(text.String())
	return para
}

func applyRunProps(run *Run, rpr *rPrXML) {
	if rpr == nil {
		return
	}
	if sz, err := strconv.Atoi(strings.TrimSpace(rpr.Sz)); err == nil && sz > 0 {
		run.FontSize = float64(sz) / 100
	}
	run.FontName = typeface(rpr.Latin)
	if run.FontName == "" {
		run.FontName = typeface(rpr.Ea)
	}
}

// typeface returns a concrete typeface name. Theme references such as
// "+mn-lt" do not name a font and are treated as unset.
func typeface(t *typefaceXML) string {
	if t == nil || strings.HasPrefix(t.Typeface, "+") {
		return ""
	}
	return strings.TrimSpace(t.Typeface)
}

func isTrue(v string) bool {
	return v == "1" || v == "true"
}

// convertTable extracts a table from a graphic frame.
func convertTable(tbl *tblXML) *Table {
	table := &Table{
		Rows: make([][]TableCell, 0, len(tbl.Tr)),
	}

	for _, tr := range tbl.Tr {
		row := make([]TableCell, 0, len(tr.Tc))
		for _, tc := range tr.Tc {
			cell := TableCell{IsMerged: isTrue(tc.VMerge) || isTrue(tc.HMerge)}

			if tc.TxBody != nil {
				texts := make([]string, 0, len(tc.TxBody.P))
				for i := range tc.TxBody.P {
					texts = append(texts, convertParagraph(&tc.TxBody.P[i]).Text)
				}
				cell.Text = strings.Join(texts, "\n")
			}

			row = append(row, cell)
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

// scanText collects the character data of every DrawingML t element in a
// fragment of raw XML, one line per paragraph. Undeclared namespace prefixes
// are tolerated because inner XML carries no declarations.
func scanText(inner string) string {
	if !strings.Contains(inner, ":t>") && !strings.Contains(inner, "<t>") {
		return ""
	}

	d := xml.NewDecoder(strings.NewReader("<root>" + inner + "</root>"))
	d.Strict = false

	var b strings.Builder
	inText := false
	for {
		tok, err := d.Token()
		if err != nil {
			// io.EOF, or damaged XML: keep what was collected so far
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if b.Len() > 0 {
					b.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
