package handlers

import (
	"net/http"

	"moodloop/internal/insights"
)

type InsightsHandler struct {
	service *insights.Service
}

func NewInsightsHandler(service *insights.Service) *InsightsHandler {
	return &InsightsHandler{service: service}
}

func (h *InsightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := h.service.Derive(r.Context(), userID(r))
	if resp.Messages == nil {
		resp.Messages = []insights.Message{}
	}
	writeJSON(w, http.StatusOK, resp)
}
