package server

import (
	"sync"
	"time"
)

// Task statuses sent on the progress stream.
const (
	StatusProgress  = "progress"
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusHeartbeat = "heartbeat"
)

// Update is one message of a task's progress stream.
type Update struct {
	Status      string `json:"status"`
	Percent     int    `json:"percent,omitempty"`
	Message     string `json:"message,omitempty"`
	Filename    string `json:"filename,omitempty"`
	TotalSlides int    `json:"total_slides,omitempty"`
	TextBlocks  int    `json:"text_blocks,omitempty"`
	FileSize    string `json:"file_size,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func (u Update) terminal() bool {
	return u.Status == StatusCompleted || u.Status == StatusError
}

// task is one upload being converted. Updates are appended, never dropped,
// and readers are woken by closing the current changed channel.
type task struct {
	id      string
	created time.Time

	mu       sync.Mutex
	updates  []Update
	changed  chan struct{}
	output   string // Document path once completed
	filename string // Download name
	finished time.Time
}

func newTask(id string, now time.Time) *task {
	return &task{id: id, created: now, changed: make(chan struct{})}
}

func (t *task) publish(u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates = append(t.updates, u)
	close(t.changed)
	t.changed = make(chan struct{})
}

// since returns the updates after the first n and a channel closed on the
// next publish.
func (t *task) since(n int) ([]Update, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n >= len(t.updates) {
		return nil, t.changed
	}
	out := make([]Update, len(t.updates)-n)
	copy(out, t.updates[n:])
	return out, t.changed
}

func (t *task) complete(output, filename string, now time.Time) {
	t.mu.Lock()
	t.output = output
	t.filename = filename
	t.finished = now
	t.mu.Unlock()
}

func (t *task) fail(now time.Time) {
	t.mu.Lock()
	t.finished = now
	t.mu.Unlock()
}

// download returns the document path and name, empty until completed.
func (t *task) download() (string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output, t.filename
}

// expired reports whether the task finished before cutoff.
func (t *task) expired(cutoff time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.finished.IsZero() && t.finished.Before(cutoff)
}

// taskStore is the registry of live tasks.
type taskStore struct {
	mu    sync.RWMutex
	tasks map[string]*task
}

func newTaskStore() *taskStore {
	return &taskStore{tasks: make(map[string]*task)}
}

func (s *taskStore) add(t *task) {
	s.mu.Lock()
	s.tasks[t.id] = t
	s.mu.Unlock()
}

func (s *taskStore) get(id string) (*task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// removeExpired drops finished tasks older than cutoff and returns them.
func (s *taskStore) removeExpired(cutoff time.Time) []*task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*task
	for id, t := range s.tasks {
		if t.expired(cutoff) {
			removed = append(removed, t)
			delete(s.tasks, id)
		}
	}
	return removed
}

func (s *taskStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
