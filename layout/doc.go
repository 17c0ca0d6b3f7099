// Package layout orders the text fragments of a slide for reading and
// assigns each a semantic role.
//
// # Columns
//
// The [ColumnDetector] clusters fragments into vertical lanes by their left
// offset and emits them column by column, left to right, top to bottom
// within each column:
//
//	detector := layout.NewColumnDetector()
//	ordered := detector.Order(fragments)
//
// Clustering is greedy and single pass. Fragments are visited in order of
// increasing left offset and each joins the first existing column whose
// mean left offset is within [ColumnConfig.Tolerance], not the nearest one.
// The result is deterministic for a given input order.
//
// [ColumnDetector.Detect] returns the same order together with a
// [ColumnSpan] per column for diagnostics.
//
// # Roles
//
// [ClassifyFontSize] maps a font size in points to a [Role]:
//
//   - 22pt and above - [RoleTitle]
//   - 16pt and above - [RoleSubheading]
//   - 13pt and above - [RoleMinorHeading]
//   - anything else, NaN included - [RoleBody]
package layout
