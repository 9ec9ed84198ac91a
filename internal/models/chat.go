package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/pdfchat/internal/vector"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Feedback labels.
const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// Message is one turn of a workspace conversation. AnswerJSON holds the
// serialized citations of assistant messages.
type Message struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Role        string    `json:"role" db:"role"`
	Content     string    `json:"content" db:"content"`
	AnswerJSON  string    `json:"answer_json,omitempty" db:"answer_json"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Feedback is a thumbs up/down on an assistant message.
type Feedback struct {
	ID        string    `json:"id" db:"id"`
	MessageID string    `json:"message_id" db:"message_id"`
	Label     string    `json:"label" db:"label"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Message     string `json:"message"`
}

// Validate trims the message and checks required fields.
func (r *ChatRequest) Validate() error {
	r.WorkspaceID = strings.TrimSpace(r.WorkspaceID)
	r.Message = strings.TrimSpace(r.Message)
	if r.WorkspaceID == "" {
		return fmt.Errorf("workspace_id cannot be empty")
	}
	if r.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// ChatResponse is the answer to a chat message.
type ChatResponse struct {
	Answer    string       `json:"answer"`
	Citations []vector.Hit `json:"citations"`
	MessageID string       `json:"message_id,omitempty"`
	QueryTime int64        `json:"query_time_ms"`
}

// FeedbackRequest is the body of POST /messages/{id}/feedback.
type FeedbackRequest struct {
	Label string `json:"label"`
	Notes string `json:"notes,omitempty"`
}

// Validate checks that the label is "up" or "down".
func (r *FeedbackRequest) Validate() error {
	r.Label = strings.ToLower(strings.TrimSpace(r.Label))
	if r.Label != FeedbackUp && r.Label != FeedbackDown {
		return fmt.Errorf("label must be %q or %q", FeedbackUp, FeedbackDown)
	}
	return nil
}
