package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"hocbai-backend/internal/middleware"
)

// SessionHandler mints anonymous sessions. No accounts: the token only keys
// the message log.
type SessionHandler struct {
	auth *middleware.SessionAuth
}

func NewSessionHandler(auth *middleware.SessionAuth) *SessionHandler {
	return &SessionHandler{auth: auth}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New()

	token, err := h.auth.GenerateToken(sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sessionID,
		"token":      token,
	})
}
