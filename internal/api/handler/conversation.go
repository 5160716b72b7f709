package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wzyfromhust/textsage/internal/api/response"
	"github.com/wzyfromhust/textsage/internal/store"
)

// ConversationHandler exposes the conversation store to the UI layer.
type ConversationHandler struct {
	store *store.Store
}

func NewConversationHandler(s *store.Store) *ConversationHandler {
	return &ConversationHandler{store: s}
}

// List returns all conversations, most recently active first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.store.Conversations())
}

// Create inserts a new conversation, makes it active and returns it.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.store.CreateConversation(r.Context())

	conv, ok := h.store.Current()
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	response.Created(w, conv)
}

// Active returns the currently active conversation.
func (h *ConversationHandler) Active(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.store.Current()
	if !ok {
		response.Error(w, http.StatusNotFound, "No active conversation")
		return
	}
	response.OK(w, conv)
}

// Activate switches the active conversation pointer.
func (h *ConversationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	h.store.SwitchActive(id)
	response.NoContent(w)
}

// Delete removes a conversation.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	// Persistence must not be cut short by a client disconnect.
	h.store.DeleteConversation(context.WithoutCancel(r.Context()), id)
	response.NoContent(w)
}

// Clear empties the active conversation's messages.
func (h *ConversationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.ClearActive(context.WithoutCancel(r.Context()))
	response.NoContent(w)
}
