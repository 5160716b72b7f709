package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wzyfromhust/textsage/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("question only passes through", func(t *testing.T) {
		assert.Equal(t, "what is this?", BuildPrompt("", "what is this?"))
	})

	t.Run("selected text is prepended", func(t *testing.T) {
		got := BuildPrompt("some paragraph", "summarize it")
		assert.Contains(t, got, "some paragraph")
		assert.Contains(t, got, "summarize it")
	})
}

func TestHistoryFromMessages(t *testing.T) {
	msgs := []domain.Message{
		domain.NewUserMessage("question"),
		{Content: "answer", IsUser: false},
	}

	history := HistoryFromMessages(msgs)

	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	}, history)
}
