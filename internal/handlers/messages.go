package handlers

import (
	"net/http"
	"strconv"

	"hocbai-backend/internal/middleware"
)

type MessageHandler struct {
	messages messageStore
}

func NewMessageHandler(messages messageStore) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// List returns the session's message log in insertion order.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid limit", r))
			return
		}
		limit = n
	}

	messages, err := h.messages.ListBySession(r.Context(), sessionID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch messages", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}
