package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"moodloop/internal/models"
	"moodloop/internal/store"
)

type MoodHandler struct {
	store *store.Store
}

func NewMoodHandler(store *store.Store) *MoodHandler {
	return &MoodHandler{store: store}
}

type moodRequest struct {
	Score        int      `json:"score"`
	Type         string   `json:"type"`
	ActivityType *string  `json:"activity_type,omitempty"`
	Improvement  *float64 `json:"improvement,omitempty"`
}

func (h *MoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "malformed request body")
		return
	}

	details := map[string]string{}
	if req.Score < 1 || req.Score > 10 {
		details["score"] = "must be between 1 and 10"
	}
	if !models.ValidMoodSampleType(models.MoodSampleType(req.Type)) {
		details["type"] = "unknown sample type"
	}
	if len(details) > 0 {
		writeValidationError(w, "invalid mood sample", details)
		return
	}

	sample := models.MoodSample{
		UserID:       userID(r),
		Score:        req.Score,
		Type:         models.MoodSampleType(req.Type),
		ActivityType: req.ActivityType,
		Improvement:  req.Improvement,
	}
	if err := h.store.CreateMoodSample(r.Context(), &sample); err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not save mood sample")
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}

func (h *MoodHandler) List(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -30)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeValidationError(w, "invalid since date", map[string]string{"since": "expected YYYY-MM-DD"})
			return
		}
		since = parsed
	}
	samples, err := h.store.ListMoodSamples(r.Context(), userID(r), since, 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch mood samples")
		return
	}
	if samples == nil {
		samples = []models.MoodSample{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": samples})
}
