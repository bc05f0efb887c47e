package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"moodloop/internal/models"
	"moodloop/internal/pattern"
)

// Dismisser is the one store operation the handler needs past the engine.
type Dismisser interface {
	DismissPattern(ctx context.Context, userID int, patternID string) (bool, error)
}

type PatternsHandler struct {
	engine    *pattern.Engine
	dismisser Dismisser
}

func NewPatternsHandler(engine *pattern.Engine, dismisser Dismisser) *PatternsHandler {
	return &PatternsHandler{engine: engine, dismisser: dismisser}
}

// List returns surfaced patterns only: active, non-dismissed, above the
// confidence threshold.
func (h *PatternsHandler) List(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.engine.ListActive(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch patterns")
		return
	}
	if patterns == nil {
		patterns = []models.Pattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns})
}

// Detect triggers a detection pass and returns only newly saved patterns.
func (h *PatternsHandler) Detect(w http.ResponseWriter, r *http.Request) {
	saved, err := h.engine.Detect(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "pattern detection failed")
		return
	}
	msg := "No new patterns detected."
	if len(saved) > 0 {
		msg = "New patterns detected."
	}
	if saved == nil {
		saved = []models.Pattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "patterns": saved})
}

// Dismiss permanently excludes a pattern; it never resurfaces, even if
// re-detected.
func (h *PatternsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	patternID := chi.URLParam(r, "id")
	if patternID == "" {
		writeValidationError(w, "pattern id required", nil)
		return
	}
	ok, err := h.dismisser.DismissPattern(r.Context(), userID(r), patternID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not dismiss pattern")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "pattern not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Pattern dismissed."})
}
