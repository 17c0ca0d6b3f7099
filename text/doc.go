// Package text turns the shapes of a parsed slide into positioned text
// fragments.
//
// # Shape Walking
//
// The [Extractor] visits every shape on a slide, recursing into groups and
// accumulating their offsets, and emits one [TextFragment] per shape that
// yields text:
//
//	ex := text.NewExtractor(text.DefaultConfig(), logger)
//	fragments, skipped := ex.Extract(slide)
//
// Per shape the first matching source wins: group children, table cells,
// text body paragraphs, then the raw text found anywhere under the shape.
// Table cells are placed on a synthetic grid (see [Config.ColumnStride]) so
// that they keep a stable relative order. A shape that cannot be decoded is
// reported as a [ShapeExtractionError] and skipped; its siblings are still
// visited.
//
// Speaker notes become one extra fragment placed below all slide content.
//
// # Deduplication
//
// Fragments are unique per slide by [Key]: position plus the first 100
// runes of text. The same shape reached twice yields one fragment.
//
// # Clean-up
//
// [Clean] removes control characters that cannot appear in XML output,
// drops invalid UTF-8 and normalises to NFC.
//
// # Text Direction
//
// [DetectDirection] classifies a fragment as left-to-right or right-to-left
// from its strong characters so writers can mark RTL paragraphs.
package text
