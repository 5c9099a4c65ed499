// Package editor implements the document editing engine: snapshot-based
// undo/redo history and selection-scoped formatting over HTML fragments.
package editor

import (
	"sync"
	"time"
)

// MaxSnapshots bounds the undo history. Oldest entries are evicted silently
// under pressure; running out of history is never an error.
const MaxSnapshots = 20

// Snapshot captures the serialized markup of both editable regions at a
// point in time. Immutable once pushed.
type Snapshot struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is a linear undo/redo stack pair for a single document.
//
// Standard linear-history semantics: any new edit discards the redo branch,
// and undo/redo move the live state between the two stacks so that an
// undo immediately followed by a redo restores the pre-undo state exactly.
type History struct {
	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Save records the current live state before a mutating action. The snapshot
// is appended to the undo stack (evicting the oldest entry past MaxSnapshots)
// and the redo stack is cleared.
func (h *History) Save(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	h.undo = append(h.undo, s)
	if len(h.undo) > MaxSnapshots {
		h.undo = h.undo[len(h.undo)-MaxSnapshots:]
	}
	h.redo = nil
}

// Undo pushes live onto the redo stack and returns the most recent undo
// snapshot. ok is false when the undo stack is empty; live is untouched then.
func (h *History) Undo(live Snapshot) (restored Snapshot, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	if live.Timestamp.IsZero() {
		live.Timestamp = time.Now()
	}
	h.redo = append(h.redo, live)
	restored = h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return restored, true
}

// Redo is the symmetric inverse of Undo, operating on the redo stack.
func (h *History) Redo(live Snapshot) (restored Snapshot, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	if live.Timestamp.IsZero() {
		live.Timestamp = time.Now()
	}
	h.undo = append(h.undo, live)
	restored = h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return restored, true
}

// UndoLen returns the current undo stack depth.
func (h *History) UndoLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// RedoLen returns the current redo stack depth.
func (h *History) RedoLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo)
}

// Registry holds per-document histories keyed by profile and text name.
// Histories are session-scoped: they live in memory and vanish on restart.
type Registry struct {
	mu        sync.Mutex
	histories map[string]*History
}

// NewRegistry creates an empty history registry.
func NewRegistry() *Registry {
	return &Registry{histories: make(map[string]*History)}
}

// Get returns the history for key, creating it on first use.
func (r *Registry) Get(key string) *History {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.histories[key]
	if !ok {
		h = NewHistory()
		r.histories[key] = h
	}
	return h
}

// Drop removes the history for key, if any.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.histories, key)
}
