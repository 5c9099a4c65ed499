package api

import (
	"net/http"
	"time"

	"github.com/nborup/skribent/internal/editor"
)

type editorHandler struct {
	deps Deps
}

type formatRequest struct {
	Key       string           `json:"key"`
	HTML      string           `json:"html"`
	Selection editor.Selection `json:"selection"`
	Command   string           `json:"command"`
	URL       string           `json:"url,omitempty"`
	Size      int              `json:"size,omitempty"`
	Level     int              `json:"level,omitempty"`
}

type snapshotRequest struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type historyResponse struct {
	Restored bool   `json:"restored"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	UndoLen  int    `json:"undo_len"`
	RedoLen  int    `json:"redo_len"`
}

// Format handles POST /api/editor/format. The live state is snapshotted
// into the document's history before the transform so the edit is undoable.
// The applied result comes back sanitized.
func (h *editorHandler) Format(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}

	var (
		out string
		err error
	)
	switch req.Command {
	case "link":
		out, err = editor.InsertLink(req.HTML, req.Selection, req.URL)
	case "font-size":
		out, err = editor.SetFontSize(req.HTML, req.Selection, req.Size)
	case "heading":
		out, err = editor.SetHeading(req.HTML, req.Selection, req.Level)
	default:
		out, err = editor.ApplyFormatting(req.HTML, req.Selection, editor.Command(req.Command))
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if out != req.HTML {
		h.deps.Histories.Get(req.Key).Save(editor.Snapshot{
			Content:   req.HTML,
			Timestamp: time.Now(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"html": editor.Sanitize(out)})
}

// Snapshot handles POST /api/editor/snapshot, recording the live state
// before a client-side edit.
func (h *editorHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	hist := h.deps.Histories.Get(req.Key)
	hist.Save(editor.Snapshot{Title: req.Title, Content: req.Content, Timestamp: time.Now()})
	writeJSON(w, http.StatusOK, map[string]any{
		"undo_len": hist.UndoLen(),
		"redo_len": hist.RedoLen(),
	})
}

// Undo handles POST /api/editor/undo. The body carries the live state,
// which moves onto the redo stack when a snapshot is restored.
func (h *editorHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(hist *editor.History, live editor.Snapshot) (editor.Snapshot, bool) {
		return hist.Undo(live)
	})
}

// Redo handles POST /api/editor/redo.
func (h *editorHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(hist *editor.History, live editor.Snapshot) (editor.Snapshot, bool) {
		return hist.Redo(live)
	})
}

func (h *editorHandler) step(w http.ResponseWriter, r *http.Request, move func(*editor.History, editor.Snapshot) (editor.Snapshot, bool)) {
	var req snapshotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	hist := h.deps.Histories.Get(req.Key)
	restored, ok := move(hist, editor.Snapshot{Title: req.Title, Content: req.Content, Timestamp: time.Now()})

	resp := historyResponse{
		Restored: ok,
		UndoLen:  hist.UndoLen(),
		RedoLen:  hist.RedoLen(),
	}
	if ok {
		resp.Title = restored.Title
		resp.Content = restored.Content
	} else {
		// Empty stack: the live state stands.
		resp.Title = req.Title
		resp.Content = req.Content
	}
	writeJSON(w, http.StatusOK, resp)
}
