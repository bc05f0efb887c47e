package handlers

import (
	"encoding/json"
	"net/http"
)

// Error codes surfaced to clients. Anything unexpected maps to
// INTERNAL_ERROR with a generic message; detail stays in the server log.
const (
	CodeAuthRequired   = "AUTH_REQUIRED"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInvalidJSON    = "INVALID_JSON"
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeEmptyMessage   = "EMPTY_MESSAGE"
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func writeValidationError(w http.ResponseWriter, message string, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]errorBody{
		"error": {Code: CodeValidation, Message: message, Details: details},
	})
}

func userID(r *http.Request) int {
	id, _ := r.Context().Value("userID").(int)
	return id
}
