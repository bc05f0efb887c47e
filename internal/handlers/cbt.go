package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"moodloop/internal/models"
	"moodloop/internal/store"
)

// CBTHandler covers the thought-challenge exercises and weekly reflections
// that feed the context synthesizer.
type CBTHandler struct {
	store *store.Store
}

func NewCBTHandler(store *store.Store) *CBTHandler {
	return &CBTHandler{store: store}
}

type cbtRequest struct {
	OriginalThought string `json:"original_thought"`
	Distortion      string `json:"distortion"`
	ReframedThought string `json:"reframed_thought"`
}

func (h *CBTHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req cbtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "malformed request body")
		return
	}
	details := map[string]string{}
	if req.OriginalThought == "" {
		details["original_thought"] = "required"
	}
	if req.ReframedThought == "" {
		details["reframed_thought"] = "required"
	}
	if len(details) > 0 {
		writeValidationError(w, "invalid exercise", details)
		return
	}

	ex := models.CBTExercise{
		UserID:          userID(r),
		OriginalThought: req.OriginalThought,
		Distortion:      req.Distortion,
		ReframedThought: req.ReframedThought,
	}
	if err := h.store.InsertCBTExercise(r.Context(), &ex); err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not save exercise")
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (h *CBTHandler) List(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.store.ListRecentCBTExercises(r.Context(), userID(r), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch exercises")
		return
	}
	if exercises == nil {
		exercises = []models.CBTExercise{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exercises": exercises})
}

type reflectionRequest struct {
	Content   string `json:"content"`
	WeekStart string `json:"week_start"` // YYYY-MM-DD, a Monday
}

func (h *CBTHandler) CreateReflection(w http.ResponseWriter, r *http.Request) {
	var req reflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "malformed request body")
		return
	}
	if req.Content == "" {
		writeValidationError(w, "content required", map[string]string{"content": "required"})
		return
	}
	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		writeValidationError(w, "invalid week_start", map[string]string{"week_start": "expected YYYY-MM-DD"})
		return
	}

	rf := models.Reflection{UserID: userID(r), Content: req.Content, WeekStart: weekStart}
	if err := h.store.UpsertReflection(r.Context(), &rf); err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not save reflection")
		return
	}
	writeJSON(w, http.StatusCreated, rf)
}

func (h *CBTHandler) LatestReflection(w http.ResponseWriter, r *http.Request) {
	rf, err := h.store.LatestReflection(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusOK, map[string]any{"reflection": nil})
			return
		}
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch reflection")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reflection": rf})
}
