package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wzyfromhust/textsage/internal/api/response"
	"github.com/wzyfromhust/textsage/internal/domain"
	"github.com/wzyfromhust/textsage/internal/llm"
	"github.com/wzyfromhust/textsage/internal/store"
)

var validate = validator.New()

// ChatRequest is the payload for sending a message. Context carries the
// captured selected text, if any.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	Context string `json:"context"`
}

// ChatHandler relays a user message through the completion client and
// drives the assistant message's loading → streaming → completed | error
// lifecycle in the store.
type ChatHandler struct {
	store        *store.Store
	client       *llm.Client
	useStreaming func() bool
}

func NewChatHandler(s *store.Store, c *llm.Client, useStreaming func() bool) *ChatHandler {
	return &ChatHandler{store: s, client: c, useStreaming: useStreaming}
}

// Send appends the user message, issues the completion, and streams or
// returns the assistant response.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "Message is required")
		return
	}

	// Store writes survive a client disconnect.
	storeCtx := context.WithoutCancel(r.Context())

	userMsg := domain.NewUserMessage(llm.BuildPrompt(req.Context, req.Message))
	h.store.AddMessage(storeCtx, userMsg)

	conv, ok := h.store.Current()
	if !ok {
		// AddMessage guarantees an active conversation.
		response.Error(w, http.StatusInternalServerError, "No active conversation")
		return
	}
	history := llm.HistoryFromMessages(conv.Messages)

	assistant := domain.NewAssistantMessage()
	h.store.AddMessage(storeCtx, assistant)

	if h.useStreaming() {
		h.sendStreaming(w, r, storeCtx, conv.ID, assistant.ID, history)
		return
	}
	h.sendBlocking(w, r, storeCtx, conv.ID, assistant.ID, history)
}

func (h *ChatHandler) sendBlocking(w http.ResponseWriter, r *http.Request, storeCtx context.Context, convID, msgID uuid.UUID, history []llm.Message) {
	text, err := h.client.Complete(r.Context(), history)
	if err != nil {
		log.Error().Err(err).Msg("completion failed")
		h.store.UpdateMessage(storeCtx, convID, msgID, describeError(err), domain.StatusError)
	} else {
		h.store.UpdateMessage(storeCtx, convID, msgID, text, domain.StatusCompleted)
	}

	// Look up by id, not the active pointer: another request may have moved
	// it while the completion was in flight.
	conv, ok := h.store.Get(convID)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Conversation no longer exists")
		return
	}
	for _, m := range conv.Messages {
		if m.ID == msgID {
			response.OK(w, m)
			return
		}
	}
	response.Error(w, http.StatusInternalServerError, "Assistant message missing")
}

// sendStreaming relays completion deltas to the UI as Server-Sent Events
// while mirroring them into the stored assistant message.
func (h *ChatHandler) sendStreaming(w http.ResponseWriter, r *http.Request, storeCtx context.Context, convID, msgID uuid.UUID, history []llm.Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var accumulated string
	onChunk := func(delta string) {
		accumulated += delta
		h.store.UpdateMessage(storeCtx, convID, msgID, accumulated, domain.StatusStreaming)
		writeEvent(w, map[string]string{"content": delta})
		flusher.Flush()
	}

	text, err := h.client.CompleteStream(r.Context(), history, onChunk)
	if err != nil {
		log.Error().Err(err).Msg("streaming completion failed")
		h.store.UpdateMessage(storeCtx, convID, msgID, describeError(err), domain.StatusError)
		writeEvent(w, map[string]string{"error": describeError(err)})
		flusher.Flush()
		return
	}

	h.store.UpdateMessage(storeCtx, convID, msgID, text, domain.StatusCompleted)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// describeError turns a client error into the human-readable string shown
// as the assistant message content.
func describeError(err error) string {
	var serverErr *llm.ServerError
	var netErr *llm.NetworkError
	var decodeErr *llm.DecodingError
	var endpointErr *llm.InvalidEndpointError
	var streamErr *llm.StreamError

	switch {
	case errors.Is(err, llm.ErrEmptyAPIKey):
		return "No API key is configured. Set one in settings and try again."
	case errors.Is(err, llm.ErrNoMessageInResponse):
		return "The server response contained no message."
	case errors.As(err, &serverErr):
		return fmt.Sprintf("The server returned an error (status %d).", serverErr.StatusCode)
	case errors.As(err, &netErr):
		return "A network error occurred. Check your connection and try again."
	case errors.As(err, &decodeErr):
		return "The server response could not be understood."
	case errors.As(err, &endpointErr):
		return "The configured endpoint URL is invalid."
	case errors.As(err, &streamErr):
		return "The response stream was interrupted."
	default:
		return "The request failed: " + err.Error()
	}
}
