package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/slidetext"
	"github.com/tsawler/slidetext/progress"
)

type batchResult struct {
	deck    string
	summary *slidetext.Summary
	err     error
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		jobs   int
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "batch <deck.pptx>...",
		Short: "Convert several decks concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.batch(cmd.Context(), args, jobs, outDir)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "decks converted at once")
	cmd.Flags().StringVar(&outDir, "output-dir", "", "write documents here instead of next to each deck")
	return cmd
}

// batch converts every deck, at most jobs at a time. A failed deck does not
// stop the others; the first failure is returned after all have finished.
func (a *app) batch(ctx context.Context, decks []string, jobs int, outDir string) error {
	if jobs < 1 {
		jobs = 1
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
	}

	events := progress.NewChannel(64)
	terminal := progress.NewTerminal(a.stderr)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for e := range events.Events() {
			terminal.Observe(e)
		}
	}()

	results := make([]batchResult, len(decks))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, deck := range decks {
		g.Go(func() error {
			results[i] = a.convertDeck(ctx, deck, outDir, events)
			return nil
		})
	}
	g.Wait()
	events.Close()
	<-drained

	var first error
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			if first == nil {
				first = r.err
			}
			fmt.Fprintf(a.stdout, "FAIL %s: %v\n", r.deck, r.err)
			continue
		}
		fmt.Fprintf(a.stdout, "ok   %s -> %s (%d slides, %d text blocks, %d failed)\n",
			r.deck, r.summary.Output, r.summary.Slides, r.summary.Fragments, r.summary.Failed)
	}
	if dropped := events.Dropped(); dropped > 0 {
		a.logger.Debug("progress events dropped", zap.Int64("count", dropped))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d decks failed: %w", failed, len(decks), first)
	}
	return nil
}

func (a *app) convertDeck(ctx context.Context, deck, outDir string, observer progress.Observer) batchResult {
	out := a.cfg.OutputPath(deck)
	if outDir != "" {
		out = filepath.Join(outDir, filepath.Base(out))
	}
	name := filepath.Base(deck)
	logger := a.logger.With(zap.String("deck", name))

	labelled := progress.Func(func(e progress.Event) {
		e.Message = name + ": " + e.Message
		observer.Observe(e)
	})
	summary, warnings, err := a.cfg.Apply(slidetext.Open(deck)).
		Logger(logger).
		Progress(labelled).
		SaveDocxContext(ctx, out)
	for _, w := range warnings {
		logger.Warn("extraction warning", zap.Stringer("warning", w))
	}
	return batchResult{deck: deck, summary: summary, err: err}
}
