// Package autosave debounces background persistence of editor state. Each
// open document gets an independent timer; every change pushes the deadline
// out again, so a save only fires after a quiet period.
package autosave

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nborup/skribent/internal/editor"
)

// DefaultDelay is the quiet period after the last change before a
// background save fires.
const DefaultDelay = 5 * time.Second

// Snapshot is the editor state handed to the save function.
type Snapshot struct {
	Title   string
	Content string
}

func (s Snapshot) empty() bool {
	return strings.TrimSpace(s.Title) == "" && editor.PlainText(s.Content) == ""
}

// SaveFunc persists a snapshot for the document identified by key.
type SaveFunc func(ctx context.Context, key string, snap Snapshot) error

// Controller schedules debounced saves per document key. Background save
// failures are logged and swallowed; only explicit flushes surface errors.
type Controller struct {
	save  SaveFunc
	delay time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]Snapshot
	busy    map[string]bool
	closed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelay overrides the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithLogger sets the logger for background save failures.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Controller that persists snapshots through save.
func New(save SaveFunc, opts ...Option) *Controller {
	c := &Controller{
		save:    save,
		delay:   DefaultDelay,
		log:     slog.Default(),
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]Snapshot),
		busy:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule records the latest snapshot for key and restarts its debounce
// timer. Earlier pending snapshots for the same key are discarded.
func (c *Controller) Schedule(key string, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending[key] = snap
	if t, ok := c.timers[key]; ok {
		t.Stop()
	}
	c.timers[key] = time.AfterFunc(c.delay, func() { c.fire(key) })
}

// SetBusy marks a document as mid-operation (a formatting transform in
// flight, for example). A timer firing while busy skips silently; the next
// Schedule re-arms it.
func (c *Controller) SetBusy(key string, busy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if busy {
		c.busy[key] = true
	} else {
		delete(c.busy, key)
	}
}

// Cancel drops any pending save for key without persisting it. Used when a
// document is closed or switched away from after an explicit save.
func (c *Controller) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop(key)
}

// Flush persists the pending snapshot for key immediately, if there is one.
// Unlike timer-driven saves, errors are returned to the caller.
func (c *Controller) Flush(ctx context.Context, key string) error {
	c.mu.Lock()
	snap, ok := c.pending[key]
	if ok {
		c.drop(key)
	}
	c.mu.Unlock()
	if !ok || snap.empty() {
		return nil
	}
	return c.save(ctx, key, snap)
}

// Close cancels all pending saves. The controller rejects further
// scheduling afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for key := range c.timers {
		c.drop(key)
	}
}

// drop removes the timer and pending snapshot for key. Caller holds mu.
func (c *Controller) drop(key string) {
	if t, ok := c.timers[key]; ok {
		t.Stop()
		delete(c.timers, key)
	}
	delete(c.pending, key)
}

func (c *Controller) fire(key string) {
	c.mu.Lock()
	if c.closed || c.busy[key] {
		c.mu.Unlock()
		return
	}
	snap, ok := c.pending[key]
	if ok {
		c.drop(key)
	}
	c.mu.Unlock()

	if !ok || snap.empty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.save(ctx, key, snap); err != nil {
		c.log.Warn("background save failed", "key", key, "error", err)
	}
}
