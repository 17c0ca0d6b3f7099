package layout

import (
	"math"
	"sort"

	"github.com/tsawler/slidetext/text"
)

// DefaultColumnTolerance is the default distance, in EMUs, between a
// fragment's left offset and a column's mean left offset for the fragment
// to join that column.
const DefaultColumnTolerance int64 = 500000

// ColumnConfig holds configuration for column detection
type ColumnConfig struct {
	// Tolerance is the exclusive bound on |left - column mean left|.
	// Default: 500000 EMUs (about 1.4cm)
	Tolerance int64
}

// DefaultColumnConfig returns the default configuration
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		Tolerance: DefaultColumnTolerance,
	}
}

// ColumnDetector groups slide fragments into columns
type ColumnDetector struct {
	config ColumnConfig
}

// NewColumnDetector creates a new column detector with default configuration
func NewColumnDetector() *ColumnDetector {
	return &ColumnDetector{
		config: DefaultColumnConfig(),
	}
}

// NewColumnDetectorWithConfig creates a column detector with custom configuration
func NewColumnDetectorWithConfig(config ColumnConfig) *ColumnDetector {
	return &ColumnDetector{
		config: config,
	}
}

// ColumnSpan describes one detected column
type ColumnSpan struct {
	// Index of the column (0-based, left to right)
	Index int

	// Count is the number of fragments in the column
	Count int

	// MinLeft and MaxLeft bound the left offsets of the column's fragments
	MinLeft, MaxLeft int64
}

// ColumnLayout is the result of column detection on one slide
type ColumnLayout struct {
	// Fragments in reading order
	Fragments []text.TextFragment

	// Columns in output order; their counts sum to len(Fragments)
	Columns []ColumnSpan

	// Configuration used for detection
	Config ColumnConfig
}

// ColumnCount returns the number of detected columns
func (l *ColumnLayout) ColumnCount() int {
	if l == nil {
		return 0
	}
	return len(l.Columns)
}

// column is a lane of fragments, held as indices into the input slice.
type column struct {
	members []int
}

// meanLeft is recomputed from the members on every call.
func (c *column) meanLeft(frags []text.TextFragment) float64 {
	sum := 0.0
	for _, i := range c.members {
		sum += float64(frags[i].Left)
	}
	return sum / float64(len(c.members))
}

func (c *column) bounds(frags []text.TextFragment) (minLeft, maxLeft int64) {
	minLeft, maxLeft = math.MaxInt64, math.MinInt64
	for _, i := range c.members {
		if l := frags[i].Left; l < minLeft {
			minLeft = l
		}
		if l := frags[i].Left; l > maxLeft {
			maxLeft = l
		}
	}
	return minLeft, maxLeft
}

// Order returns fragments in column reading order. The input is not
// modified.
func (d *ColumnDetector) Order(fragments []text.TextFragment) []text.TextFragment {
	return d.Detect(fragments).Fragments
}

// Detect clusters fragments into columns and returns them in reading order.
func (d *ColumnDetector) Detect(fragments []text.TextFragment) *ColumnLayout {
	layout := &ColumnLayout{
		Fragments: make([]text.TextFragment, 0, len(fragments)),
		Config:    d.config,
	}
	if len(fragments) == 0 {
		return layout
	}

	// Visit fragments by left offset; ties keep discovery order
	byLeft := make([]int, len(fragments))
	for i := range byLeft {
		byLeft[i] = i
	}
	sort.SliceStable(byLeft, func(a, b int) bool {
		return fragments[byLeft[a]].Left < fragments[byLeft[b]].Left
	})

	columns := d.cluster(fragments, byLeft)

	for _, c := range columns {
		members := c.members
		sort.SliceStable(members, func(a, b int) bool {
			return fragments[members[a]].Top < fragments[members[b]].Top
		})
	}

	sort.SliceStable(columns, func(a, b int) bool {
		minA, _ := columns[a].bounds(fragments)
		minB, _ := columns[b].bounds(fragments)
		return minA < minB
	})

	for i, c := range columns {
		minLeft, maxLeft := c.bounds(fragments)
		layout.Columns = append(layout.Columns, ColumnSpan{
			Index:   i,
			Count:   len(c.members),
			MinLeft: minLeft,
			MaxLeft: maxLeft,
		})
		for _, idx := range c.members {
			layout.Fragments = append(layout.Fragments, fragments[idx])
		}
	}

	return layout
}

// cluster assigns each fragment, in the given order, to the first column
// whose mean left offset is strictly within tolerance, opening a new column
// when none is.
func (d *ColumnDetector) cluster(fragments []text.TextFragment, order []int) []*column {
	tolerance := float64(d.config.Tolerance)
	var columns []*column

	for _, idx := range order {
		left := float64(fragments[idx].Left)

		var target *column
		for _, c := range columns {
			if math.Abs(left-c.meanLeft(fragments)) < tolerance {
				target = c
				break
			}
		}

		if target == nil {
			columns = append(columns, &column{members: []int{idx}})
			continue
		}
		target.members = append(target.members, idx)
	}

	return columns
}
