package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus tracks the lifecycle of an assistant message while a
// completion request is in flight.
type MessageStatus string

const (
	StatusLoading   MessageStatus = "loading"
	StatusStreaming MessageStatus = "streaming"
	StatusCompleted MessageStatus = "completed"
	StatusError     MessageStatus = "error"
)

// Message is a single chat message. Content and Status are mutable while an
// assistant response streams in; everything else is fixed at creation.
type Message struct {
	ID        uuid.UUID     `json:"id"`
	Content   string        `json:"content"`
	IsUser    bool          `json:"is_user"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status"`
}

// NewUserMessage creates a completed user message.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.New(),
		Content:   content,
		IsUser:    true,
		Timestamp: time.Now(),
		Status:    StatusCompleted,
	}
}

// NewAssistantMessage creates an empty assistant placeholder in the loading
// state. Its content is filled in as the completion arrives.
func NewAssistantMessage() Message {
	return Message{
		ID:        uuid.New(),
		IsUser:    false,
		Timestamp: time.Now(),
		Status:    StatusLoading,
	}
}
