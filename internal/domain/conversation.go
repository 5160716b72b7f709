package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the placeholder title a conversation carries until the
// first user message arrives.
const DefaultTitle = "New Chat"

// TitleMaxRunes is the number of leading runes of the first user message
// used as the auto-derived conversation title.
const TitleMaxRunes = 20

// Conversation represents a titled chat thread. The Timestamp field tracks
// last activity and is the sort key for the conversation list: the most
// recently mutated conversation is always at index 0.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// NewConversation creates an empty conversation with the placeholder title.
func NewConversation() Conversation {
	return Conversation{
		ID:        uuid.New(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		Timestamp: time.Now(),
	}
}

// Clone returns a deep copy so callers can hand out read-only views without
// sharing the message slice.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// HasUserMessage reports whether any user-authored message exists yet.
// Used to decide whether an incoming user message should set the title.
func (c Conversation) HasUserMessage() bool {
	for _, m := range c.Messages {
		if m.IsUser {
			return true
		}
	}
	return false
}

// DeriveTitle builds a conversation title from message content: the content
// verbatim when it fits, otherwise the first TitleMaxRunes runes plus "...".
func DeriveTitle(content string) string {
	r := []rune(content)
	if len(r) <= TitleMaxRunes {
		return content
	}
	return string(r[:TitleMaxRunes]) + "..."
}
