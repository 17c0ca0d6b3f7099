package slidetext

import (
	"go.uber.org/zap"

	"github.com/tsawler/slidetext/layout"
	"github.com/tsawler/slidetext/progress"
	"github.com/tsawler/slidetext/text"
)

// ExtractOptions holds configuration for extraction and rendering.
type ExtractOptions struct {
	// Slide selection (1-indexed in API, stored as-is)
	slides []int

	walker  text.Config
	columns layout.ColumnConfig
	render  RenderOptions

	logger   *zap.Logger
	observer progress.Observer
}

// defaultOptions returns the default extraction options.
func defaultOptions() ExtractOptions {
	return ExtractOptions{
		slides:   nil, // nil means all slides
		walker:   text.DefaultConfig(),
		columns:  layout.DefaultColumnConfig(),
		render:   DefaultRenderOptions(),
		logger:   zap.NewNop(),
		observer: progress.Nop,
	}
}

// clone creates a deep copy of ExtractOptions.
func (o ExtractOptions) clone() ExtractOptions {
	newOpts := o

	// Deep copy slides slice
	if o.slides != nil {
		newOpts.slides = make([]int, len(o.slides))
		copy(newOpts.slides, o.slides)
	}

	return newOpts
}
