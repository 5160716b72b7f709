package llm

import (
	"fmt"

	"github.com/wzyfromhust/textsage/internal/domain"
)

// BuildPrompt composes the user message sent to the model from the captured
// selected text and the user's question. Without selected text the question
// passes through untouched.
func BuildPrompt(selectedText, question string) string {
	if selectedText == "" {
		return question
	}
	return fmt.Sprintf("Here is the text I selected:\n\n%s\n\n%s", selectedText, question)
}

// HistoryFromMessages converts stored conversation messages into the wire
// history, mapping authorship onto the user/assistant roles.
func HistoryFromMessages(msgs []domain.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		role := RoleAssistant
		if m.IsUser {
			role = RoleUser
		}
		out = append(out, Message{Role: role, Content: m.Content})
	}
	return out
}
