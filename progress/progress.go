// Package progress delivers per-slide progress events from an extraction to
// whoever is watching: a terminal, an HTTP event stream, or nothing at all.
//
// Observers must not block. Extraction calls Observe synchronously between
// slides, so a slow consumer would stall the document.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event describes progress through a deck. Slide is 1-indexed; Slide ==
// Total together with Done marks the end of the run.
type Event struct {
	Slide   int
	Total   int
	Message string
	Done    bool
}

// Fraction returns Slide/Total clamped to [0, 1]. A deck with no slides
// reports 1 once done and 0 otherwise.
func (e Event) Fraction() float64 {
	if e.Total <= 0 {
		if e.Done {
			return 1
		}
		return 0
	}
	f := float64(e.Slide) / float64(e.Total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Observer receives progress events.
type Observer interface {
	Observe(Event)
}

// Func adapts an ordinary function to Observer.
type Func func(Event)

// Observe calls f(e).
func (f Func) Observe(e Event) { f(e) }

// Nop discards every event.
var Nop Observer = Func(func(Event) {})

// SlideStarted is the message sent as a slide begins.
func SlideStarted(slide, total int) string {
	return fmt.Sprintf("Processing slide %d/%d...", slide, total)
}

// SlideFailed is the message sent when a slide could not be processed.
func SlideFailed(slide int, err error) string {
	return fmt.Sprintf("Error processing slide %d: %v", slide, err)
}

// Complete is the message of the final event.
const Complete = "Export complete"

// Band maps slide progress into [Low, High] percent. The HTTP service
// reserves the range below Low for upload and open, and the range above
// High for writing the document.
type Band struct {
	Low, High int
}

// DefaultBand is the slide band of the upload service.
var DefaultBand = Band{Low: 20, High: 90}

// Percent maps e into the band. The result is truncated, never rounded up,
// so 100% of slides lands exactly on High.
func (b Band) Percent(e Event) int {
	return b.Low + int(e.Fraction()*float64(b.High-b.Low))
}

// Channel forwards events to a buffered channel without ever blocking. When
// the buffer is full, or the Channel is closed, the event is dropped and
// counted.
type Channel struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan Event
	dropped atomic.Int64
}

// NewChannel creates a Channel with the given buffer size (minimum 1).
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan Event, size)}
}

// Observe implements Observer.
func (c *Channel) Observe(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- e:
	default:
		c.dropped.Add(1)
	}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan Event { return c.ch }

// Close closes the event channel so that readers ranging over Events stop.
// It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// Multi fans an event out to several observers in order.
func Multi(observers ...Observer) Observer {
	list := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return Func(func(e Event) {
		for _, o := range list {
			o.Observe(e)
		}
	})
}

// Terminal renders events as a single status line, rewritten in place with
// \r. Updates closer together than the refresh interval are coalesced,
// except the final one. Writes are serialized and the first write error
// disables the terminal.
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	refresh  time.Duration
	last     time.Time
	lastLen  int
	disabled bool
	now      func() time.Time
}

// NewTerminal creates a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, refresh: 100 * time.Millisecond, now: time.Now}
}

// Observe implements Observer.
func (t *Terminal) Observe(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disabled || t.w == nil {
		return
	}
	now := t.now()
	if !e.Done && !t.last.IsZero() && now.Sub(t.last) < t.refresh {
		return
	}
	t.last = now

	line := fmt.Sprintf("[%3d%%] %s", int(e.Fraction()*100), e.Message)
	pad := ""
	if n := t.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	t.lastLen = len(line)

	out := "\r" + line + pad
	if e.Done {
		out += "\n"
		t.lastLen = 0
	}
	if _, err := io.WriteString(t.w, out); err != nil {
		t.disabled = true
	}
}
