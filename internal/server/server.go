// Package server is the upload service: a browser posts a deck, follows
// conversion progress as Server-Sent Events and downloads the document.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/slidetext"
	"github.com/tsawler/slidetext/internal/config"
	"github.com/tsawler/slidetext/progress"
)

//go:embed static/index.html
var static embed.FS

// Server converts uploaded decks in the background.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	tasks  *taskStore
	mux    *http.ServeMux

	workers chan struct{} // Limits concurrent conversions
	running sync.WaitGroup
	now     func() time.Time

	// newID is replaceable in tests
	newID func() string
}

// New creates a Server and its upload and export directories.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{cfg.Server.UploadDir, cfg.Server.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		tasks:   newTaskStore(),
		mux:     http.NewServeMux(),
		workers: make(chan struct{}, cfg.Server.Workers),
		now:     time.Now,
		newID:   newTaskID,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /extract", s.handleExtract)
	s.mux.HandleFunc("GET /progress/{id}", s.handleProgress)
	s.mux.HandleFunc("GET /download/{id}", s.handleDownload)
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and waits for running conversions.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.janitor(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Wait()
		return err
	})
	return g.Wait()
}

// Wait blocks until every started conversion has finished.
func (s *Server) Wait() {
	s.running.Wait()
}

// janitor periodically removes expired tasks and old files.
func (s *Server) janitor(ctx context.Context) {
	interval := s.cfg.Server.CleanupInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Cleanup removes tasks finished more than the retention period ago and
// any upload or export entry last modified before then.
func (s *Server) Cleanup() {
	cutoff := s.now().Add(-s.cfg.Server.Retention)

	removed := s.tasks.removeExpired(cutoff)
	files := 0
	for _, dir := range []string{s.cfg.Server.UploadDir, s.cfg.Server.ExportDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("cleanup: reading directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
				s.logger.Warn("cleanup: removing", zap.String("path", entry.Name()), zap.Error(err))
				continue
			}
			files++
		}
	}

	if len(removed) > 0 || files > 0 {
		s.logger.Info("cleanup", zap.Int("tasks", len(removed)), zap.Int("files", files))
	}
}

// start runs the conversion of upload for t on its own goroutine.
func (s *Server) start(t *task, upload, name string) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.workers <- struct{}{}
		defer func() { <-s.workers }()
		s.convert(t, upload, name)
	}()
}

// convert extracts the deck at upload and publishes progress to t. The
// upload is always removed afterwards.
func (s *Server) convert(t *task, upload, name string) {
	logger := s.logger.With(zap.String("task", t.id), zap.String("file", name))
	defer func() {
		if err := os.Remove(upload); err != nil && !os.IsNotExist(err) {
			logger.Warn("removing upload", zap.Error(err))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("conversion panicked", zap.Any("panic", r))
			s.failTask(t, fmt.Errorf("internal error: %v", r))
		}
	}()

	t.publish(Update{Status: StatusProgress, Percent: 0, Message: "Starting extraction..."})

	outDir := filepath.Join(s.cfg.Server.ExportDir, t.id)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		s.failTask(t, err)
		return
	}
	filename := filepath.Base(s.cfg.OutputPath(name))
	output := filepath.Join(outDir, filename)

	t.publish(Update{Status: StatusProgress, Percent: 10, Message: "Opening presentation..."})

	band := progress.DefaultBand
	observer := progress.Func(func(e progress.Event) {
		t.publish(Update{Status: StatusProgress, Percent: band.Percent(e), Message: e.Message})
	})
	ext := s.cfg.Apply(slidetext.Open(upload)).
		Logger(logger).
		Progress(observer)

	total, err := ext.SlideCount()
	if err != nil {
		ext.Close()
		s.failTask(t, err)
		return
	}
	t.publish(Update{Status: StatusProgress, Percent: band.Low, Message: fmt.Sprintf("Found %d slides...", total)})

	summary, warnings, err := ext.SaveDocx(output)
	if err != nil {
		s.failTask(t, err)
		return
	}
	for _, w := range warnings {
		logger.Warn("extraction warning", zap.Stringer("warning", w))
	}

	t.publish(Update{Status: StatusProgress, Percent: 95, Message: "Word document written"})
	t.complete(output, filename, s.now())
	t.publish(Update{
		Status:      StatusCompleted,
		Percent:     100,
		Filename:    filename,
		TotalSlides: total,
		TextBlocks:  summary.Fragments,
		FileSize:    formatSize(summary.Bytes),
		DownloadURL: "/download/" + t.id,
	})

	logger.Info("conversion complete",
		zap.Int("slides", summary.Slides),
		zap.Int("failed", summary.Failed),
		zap.Int("fragments", summary.Fragments),
		zap.Int64("bytes", summary.Bytes))
}

func (s *Server) failTask(t *task, err error) {
	s.logger.Warn("conversion failed", zap.String("task", t.id), zap.Error(err))
	t.fail(s.now())
	t.publish(Update{Status: StatusError, Message: "Extraction failed: " + err.Error()})
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

// safeName reduces a client supplied filename to a plain base name.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7F, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "presentation.pptx"
	}
	return name
}
