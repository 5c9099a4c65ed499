package editor

import (
	"fmt"
	"testing"
)

func snap(i int) Snapshot {
	return Snapshot{Title: fmt.Sprintf("t%d", i), Content: fmt.Sprintf("c%d", i)}
}

func TestHistoryBoundedFIFO(t *testing.T) {
	h := NewHistory()

	for i := 0; i < 5; i++ {
		h.Save(snap(i))
	}
	if got := h.UndoLen(); got != 5 {
		t.Fatalf("undo len = %d, want 5", got)
	}

	for i := 5; i < MaxSnapshots+10; i++ {
		h.Save(snap(i))
	}
	if got := h.UndoLen(); got != MaxSnapshots {
		t.Fatalf("undo len = %d, want %d", got, MaxSnapshots)
	}

	// Oldest entries must have been evicted first: unwinding the full stack
	// ends at snapshot 10, not snapshot 0.
	var last Snapshot
	for {
		s, ok := h.Undo(Snapshot{})
		if !ok {
			break
		}
		last = s
	}
	if last.Content != "c10" {
		t.Errorf("oldest surviving snapshot = %q, want c10", last.Content)
	}
}

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory()
	h.Save(Snapshot{Title: "old", Content: "old body"})

	live := Snapshot{Title: "new", Content: "new body"}

	restored, ok := h.Undo(live)
	if !ok {
		t.Fatal("undo on non-empty stack returned ok=false")
	}
	if restored.Title != "old" || restored.Content != "old body" {
		t.Fatalf("undo restored %+v", restored)
	}

	// Redo with the restored state live must return the pre-undo state.
	back, ok := h.Redo(restored)
	if !ok {
		t.Fatal("redo after undo returned ok=false")
	}
	if back.Title != live.Title || back.Content != live.Content {
		t.Errorf("redo restored %+v, want %+v", back, live)
	}
}

func TestHistorySaveClearsRedo(t *testing.T) {
	h := NewHistory()
	h.Save(snap(1))
	if _, ok := h.Undo(snap(2)); !ok {
		t.Fatal("undo failed")
	}
	if h.RedoLen() != 1 {
		t.Fatalf("redo len = %d, want 1", h.RedoLen())
	}

	h.Save(snap(3))
	if h.RedoLen() != 0 {
		t.Errorf("redo len after save = %d, want 0", h.RedoLen())
	}
	if _, ok := h.Redo(snap(4)); ok {
		t.Error("redo succeeded after a fresh edit")
	}
}

func TestHistoryEmptyStacks(t *testing.T) {
	h := NewHistory()
	if _, ok := h.Undo(snap(0)); ok {
		t.Error("undo on empty stack returned ok=true")
	}
	if _, ok := h.Redo(snap(0)); ok {
		t.Error("redo on empty stack returned ok=true")
	}
}

func TestRegistryPerDocument(t *testing.T) {
	r := NewRegistry()
	a := r.Get("profil/tekst-a")
	b := r.Get("profil/tekst-b")
	if a == b {
		t.Fatal("distinct keys share a history")
	}
	a.Save(snap(1))
	if b.UndoLen() != 0 {
		t.Error("save leaked across documents")
	}
	if r.Get("profil/tekst-a") != a {
		t.Error("registry did not return the same history for a key")
	}

	r.Drop("profil/tekst-a")
	if r.Get("profil/tekst-a") == a {
		t.Error("dropped history was not replaced")
	}
}
