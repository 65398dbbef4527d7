package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PracticeSet is a generated batch of exercises. QuestionsJSON holds the
// extracted array once generation succeeds; RawResponse keeps the unparsed
// model text for diagnostics when it does not.
type PracticeSet struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	Topic         string          `json:"topic"`
	Difficulty    string          `json:"difficulty"`
	ConfigJSON    json.RawMessage `json:"config"`
	QuestionsJSON json.RawMessage `json:"questions"`
	QuestionCount int             `json:"question_count"`
	Status        string          `json:"status"` // "pending" | "ready" | "failed"
	RawResponse   *string         `json:"raw_response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type GeneratePracticeRequest struct {
	Topic           string     `json:"topic"`
	NumQuestions    int        `json:"num_questions"`
	Difficulty      string     `json:"difficulty"` // "easy" | "medium" | "hard"
	SourceMessageID *uuid.UUID `json:"source_message_id"`
}
