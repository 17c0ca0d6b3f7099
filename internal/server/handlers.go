package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsawler/slidetext/format"
)

func newTaskID() string {
	return uuid.NewString()
}

// writeJSON sends v with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleExtract stores the uploaded deck and starts converting it.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %s upload limit", formatSize(s.cfg.Server.MaxUploadBytes)))
		case errors.Is(err, http.ErrMissingFile):
			s.writeError(w, http.StatusBadRequest, "no file uploaded")
		default:
			s.writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	name := safeName(header.Filename)
	if format.Detect(name) != format.PPTX {
		s.writeError(w, http.StatusBadRequest, "unsupported file format, only .pptx is accepted")
		return
	}

	id := s.newID()
	upload := filepath.Join(s.cfg.Server.UploadDir, id+".pptx")
	if err := s.saveUpload(upload, file); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %s upload limit", formatSize(s.cfg.Server.MaxUploadBytes)))
			return
		}
		s.logger.Error("saving upload", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}

	if f, err := format.DetectFile(upload); err != nil || f != format.PPTX {
		os.Remove(upload)
		s.writeError(w, http.StatusBadRequest, "file is not a PowerPoint presentation")
		return
	}

	t := newTask(id, s.now())
	s.tasks.add(t)
	s.start(t, upload, name)

	s.logger.Info("task started", zap.String("task", id), zap.String("file", name))
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "task_id": id})
}

func (s *Server) saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// handleProgress streams a task's updates as Server-Sent Events until the
// task completes or fails. Idle periods are filled with heartbeats.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	send := func(u Update) bool {
		data, err := json.Marshal(u)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	t, ok := s.tasks.get(r.PathValue("id"))
	if !ok {
		send(Update{Status: StatusError, Message: "task not found"})
		return
	}

	heartbeat := s.cfg.Server.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	timer := time.NewTimer(heartbeat)
	defer timer.Stop()

	next := 0
	for {
		updates, changed := t.since(next)
		for _, u := range updates {
			if !send(u) {
				return
			}
			if u.terminal() {
				return
			}
		}
		next += len(updates)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(heartbeat)

		select {
		case <-r.Context().Done():
			return
		case <-changed:
		case <-timer.C:
			if !send(Update{Status: StatusHeartbeat}) {
				return
			}
		}
	}
}

// handleDownload sends a completed task's document as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tasks.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	path, name := t.download()
	if path == "" {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not read file")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := s.logger.Info
		if strings.HasPrefix(r.URL.Path, "/progress/") {
			level = s.logger.Debug
		}
		level("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
