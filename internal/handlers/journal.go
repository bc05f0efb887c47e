package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"moodloop/internal/models"
	"moodloop/internal/store"
	"moodloop/internal/tasks"
)

type JournalHandler struct {
	store  *store.Store
	worker *tasks.Worker
}

func NewJournalHandler(store *store.Store, worker *tasks.Worker) *JournalHandler {
	return &JournalHandler{store: store, worker: worker}
}

type journalRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	MoodRating int      `json:"mood_rating"`
	Activities []string `json:"activities"`
}

// Create saves the entry with placeholder sentiment fields and hands
// analysis to the background worker. The response returns immediately; the
// sentiment triple lands asynchronously and reads may briefly see the
// placeholders.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "malformed request body")
		return
	}

	details := map[string]string{}
	if req.Title == "" {
		details["title"] = "required"
	}
	if req.Content == "" {
		details["content"] = "required"
	}
	if req.MoodRating < 1 || req.MoodRating > 10 {
		details["mood_rating"] = "must be between 1 and 10"
	}
	if len(details) > 0 {
		writeValidationError(w, "invalid journal entry", details)
		return
	}

	entry := models.JournalEntry{
		UserID:     userID(r),
		Title:      req.Title,
		Content:    req.Content,
		MoodRating: req.MoodRating,
		Activities: req.Activities,
	}
	if err := h.store.CreateJournalEntry(r.Context(), &entry); err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not save entry")
		return
	}

	h.worker.Enqueue(tasks.AnalysisJob{
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		Title:      req.Title,
		Content:    req.Content,
		MoodRating: req.MoodRating,
	})

	entry.SentimentLabel = models.SentimentPending
	entry.Feedback = models.FeedbackPending
	writeJSON(w, http.StatusCreated, entry)
}

func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 200 {
			writeValidationError(w, "invalid limit", map[string]string{"limit": "expected 1-200"})
			return
		}
		limit = n
	}
	entries, err := h.store.ListJournalEntries(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch entries")
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
