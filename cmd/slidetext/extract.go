package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsawler/slidetext"
	"github.com/tsawler/slidetext/progress"
)

type extractFlags struct {
	output    string
	text      bool
	noNotes   bool
	tolerance int64
	slides    []int
	quiet     bool
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags

	cmd := &cobra.Command{
		Use:   "extract <deck.pptx>",
		Short: "Extract one deck into a Word document",
		Long: `Extract the text of every slide in reading order and write it to a
Word document next to the deck, or print it with --text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := a.extractor(cmd, args[0], f)

			if f.text {
				out, warnings, err := ext.Text()
				a.printWarnings(warnings)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, out)
				return nil
			}

			obs := a.logProgress()
			if !f.quiet {
				obs = progress.Multi(progress.NewTerminal(a.stderr), obs)
			}
			ext = ext.Progress(obs)
			path := f.output
			if path == "" {
				path = a.cfg.OutputPath(args[0])
			}
			summary, warnings, err := ext.SaveDocxContext(cmd.Context(), path)
			a.printWarnings(warnings)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %s (%d slides, %d text blocks, %d failed)\n",
				summary.Output, summary.Slides, summary.Fragments, summary.Failed)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "document path (default <deck>_extracted.docx)")
	flags.BoolVar(&f.text, "text", false, "print plain text instead of writing a document")
	flags.BoolVar(&f.noNotes, "no-notes", false, "leave out speaker notes")
	flags.Int64Var(&f.tolerance, "tolerance", 0, "column tolerance in EMU (default from config)")
	flags.IntSliceVar(&f.slides, "slides", nil, "slide numbers to extract, e.g. 1,3,4")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "hide the progress line")
	return cmd
}

// logProgress records each progress event at debug level.
func (a *app) logProgress() progress.Observer {
	return progress.Func(func(e progress.Event) {
		a.logger.Debug("slide progress",
			zap.Int("slide", e.Slide),
			zap.Int("total", e.Total),
			zap.String("message", e.Message),
			zap.Bool("done", e.Done))
	})
}

// extractor configures an Extractor for deck from the config and flags.
func (a *app) extractor(cmd *cobra.Command, deck string, f extractFlags) *slidetext.Extractor {
	ext := a.cfg.Apply(slidetext.Open(deck)).Logger(a.logger)
	if f.noNotes {
		ext = ext.WithoutNotes()
	}
	if cmd.Flags().Changed("tolerance") {
		ext = ext.ColumnTolerance(f.tolerance)
	}
	if len(f.slides) > 0 {
		ext = ext.Slides(f.slides...)
	}
	return ext
}
