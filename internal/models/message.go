package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in the flat chat log. The log is append-only: messages
// are never updated or deleted.
type Message struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Role        string    `json:"role"` // "user" or "assistant"
	Content     string    `json:"content"`
	ContentHTML *string   `json:"content_html"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatTurn is one role-tagged turn of conversation history. History is passed
// by value into each call; there is no mutable shared session state.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history"`
}

// ChatResponse carries the raw model reply and its rendered HTML form.
type ChatResponse struct {
	Reply     string    `json:"reply"`
	ReplyHTML string    `json:"reply_html"`
	MessageID uuid.UUID `json:"message_id"`
}
