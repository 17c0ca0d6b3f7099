package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Fraction(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  float64
	}{
		{"first of four", Event{Slide: 1, Total: 4}, 0.25},
		{"last", Event{Slide: 4, Total: 4}, 1},
		{"before start", Event{Slide: 0, Total: 4}, 0},
		{"overshoot", Event{Slide: 9, Total: 4}, 1},
		{"negative", Event{Slide: -1, Total: 4}, 0},
		{"empty deck running", Event{}, 0},
		{"empty deck done", Event{Done: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.event.Fraction(), 1e-9)
		})
	}
}

func TestBand_Percent(t *testing.T) {
	assert.Equal(t, 20, DefaultBand.Percent(Event{Slide: 0, Total: 10}))
	assert.Equal(t, 27, DefaultBand.Percent(Event{Slide: 1, Total: 10}))
	assert.Equal(t, 43, DefaultBand.Percent(Event{Slide: 1, Total: 3}))
	assert.Equal(t, 90, DefaultBand.Percent(Event{Slide: 10, Total: 10}))
	assert.Equal(t, 90, DefaultBand.Percent(Event{Done: true}))

	full := Band{Low: 0, High: 100}
	assert.Equal(t, 50, full.Percent(Event{Slide: 2, Total: 4}))
}

func TestBand_PercentMonotonic(t *testing.T) {
	prev := -1
	for i := 0; i <= 37; i++ {
		p := DefaultBand.Percent(Event{Slide: i, Total: 37})
		assert.GreaterOrEqual(t, p, prev)
		assert.GreaterOrEqual(t, p, DefaultBand.Low)
		assert.LessOrEqual(t, p, DefaultBand.High)
		prev = p
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Processing slide 3/12...", SlideStarted(3, 12))
	assert.Equal(t, "Error processing slide 4: boom", SlideFailed(4, errors.New("boom")))
}

func TestFunc(t *testing.T) {
	var got []Event
	var o Observer = Func(func(e Event) { got = append(got, e) })

	o.Observe(Event{Slide: 1, Total: 2})
	o.Observe(Event{Slide: 2, Total: 2, Done: true})

	require.Len(t, got, 2)
	assert.True(t, got[1].Done)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop.Observe(Event{Slide: 1}) })
}

func TestChannel_NeverBlocks(t *testing.T) {
	c := NewChannel(2)

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 5; i++ {
			c.Observe(Event{Slide: i, Total: 5})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Observe blocked on a full channel")
	}

	assert.Equal(t, int64(3), c.Dropped())
	assert.Equal(t, 1, (<-c.Events()).Slide)
	assert.Equal(t, 2, (<-c.Events()).Slide)
}

func TestChannel_MinimumSize(t *testing.T) {
	c := NewChannel(0)
	c.Observe(Event{Slide: 1})
	c.Observe(Event{Slide: 2})

	assert.Equal(t, int64(1), c.Dropped())
	assert.Equal(t, 1, (<-c.Events()).Slide)
}

func TestChannel_Close(t *testing.T) {
	c := NewChannel(4)
	c.Observe(Event{Slide: 1})
	c.Close()
	c.Close()

	assert.NotPanics(t, func() { c.Observe(Event{Slide: 2}) })
	assert.Equal(t, int64(1), c.Dropped())

	var got []int
	for e := range c.Events() {
		got = append(got, e.Slide)
	}
	assert.Equal(t, []int{1}, got)
}

func TestMulti(t *testing.T) {
	var order []string
	a := Func(func(Event) { order = append(order, "a") })
	b := Func(func(Event) { order = append(order, "b") })

	Multi(a, nil, b).Observe(Event{})

	assert.Equal(t, []string{"a", "b"}, order)
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	term := NewTerminal(&buf)
	term.now = clock.Now

	term.Observe(Event{Slide: 1, Total: 4, Message: SlideStarted(1, 4)})
	// Coalesced: inside the refresh interval
	term.Observe(Event{Slide: 2, Total: 4, Message: SlideStarted(2, 4)})
	clock.Advance(time.Second)
	term.Observe(Event{Slide: 3, Total: 4, Message: "short"})
	term.Observe(Event{Slide: 4, Total: 4, Message: Complete, Done: true})

	out := buf.String()
	assert.Contains(t, out, "\r[ 25%] Processing slide 1/4...")
	assert.NotContains(t, out, "slide 2/4")
	assert.Contains(t, out, "\r[ 75%] short"+strings.Repeat(" ", len("Processing slide 1/4...")-len("short")))
	assert.True(t, strings.HasSuffix(out, "\r[100%] Export complete\n"))
}

type brokenWriter struct{ calls int }

func (w *brokenWriter) Write([]byte) (int, error) {
	w.calls++
	return 0, io.ErrClosedPipe
}

func TestTerminal_DisablesOnWriteError(t *testing.T) {
	w := &brokenWriter{}
	term := NewTerminal(w)

	term.Observe(Event{Slide: 1, Total: 2, Done: true})
	term.Observe(Event{Slide: 2, Total: 2, Done: true})

	assert.Equal(t, 1, w.calls)
}
