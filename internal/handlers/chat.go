package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"moodloop/internal/llm"
	"moodloop/internal/models"
	"moodloop/internal/sanitize"
	"moodloop/internal/store"
	"moodloop/internal/synth"
)

const chatHistoryDepth = 10

type ChatHandler struct {
	store  *store.Store
	synth  *synth.Synthesizer
	llm    *llm.Client
	logger *zap.Logger
}

func NewChatHandler(st *store.Store, sy *synth.Synthesizer, client *llm.Client, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{store: st, synth: sy, llm: client, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Post handles one chat turn. The rate-limit middleware has already run;
// here the message is sanitized, the user context synthesized, and the
// collaborator called. Chat has no fallback reply, so collaborator failure
// surfaces as 500 with a generic message.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	uid := userID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "malformed request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidMessage, "message is required")
		return
	}

	message := sanitize.Sanitize(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, CodeEmptyMessage, "message is empty after sanitization")
		return
	}

	userContext := h.synth.BuildContext(r.Context(), uid)

	historyRows, err := h.store.ListRecentChatMessages(r.Context(), uid, chatHistoryDepth)
	if err != nil {
		// History is a nice-to-have; the turn proceeds without it.
		h.logger.Warn("could not load chat history", zap.Int("user_id", uid), zap.Error(err))
	}
	history := make([]llm.HistoryMessage, len(historyRows))
	for i, m := range historyRows {
		history[i] = llm.HistoryMessage{Role: m.Role, Content: m.Content}
	}

	reply, err := h.llm.Chat(r.Context(), userContext, history, message)
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			h.logger.Warn("chat collaborator timed out",
				zap.Int("user_id", uid), zap.Duration("elapsed", time.Since(start)))
		} else {
			h.logger.Error("chat collaborator failed",
				zap.Int("user_id", uid), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, CodeInternal, "the coach is unavailable right now, please try again")
		return
	}

	userMsg := models.ChatMessage{UserID: uid, Role: "user", Content: message}
	if err := h.store.InsertChatMessage(r.Context(), &userMsg); err != nil {
		h.logger.Warn("could not persist user message", zap.Error(err))
	}
	assistantMsg := models.ChatMessage{UserID: uid, Role: "assistant", Content: reply}
	if err := h.store.InsertChatMessage(r.Context(), &assistantMsg); err != nil {
		h.logger.Warn("could not persist assistant message", zap.Error(err))
	}

	w.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

// History returns the recent conversation, oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListRecentChatMessages(r.Context(), userID(r), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch messages")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
