package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wzyfromhust/textsage/internal/api/handler"
	custommw "github.com/wzyfromhust/textsage/internal/api/middleware"
	"github.com/wzyfromhust/textsage/internal/config"
	"github.com/wzyfromhust/textsage/internal/llm"
	"github.com/wzyfromhust/textsage/internal/store"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, conversations *store.Store, client *llm.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommw.Logger)
	r.Use(middleware.Recoverer)

	// CORS: the UI layer runs locally but may be served from another port.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	conversationHandler := handler.NewConversationHandler(conversations)
	chatHandler := handler.NewChatHandler(conversations, client, func() bool {
		return cfg.Chat.UseStreaming
	})

	r.Get("/health", handler.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)
			r.Get("/active", conversationHandler.Active)
			r.Post("/active/clear", conversationHandler.Clear)
			r.Post("/{id}/activate", conversationHandler.Activate)
			r.Delete("/{id}", conversationHandler.Delete)
		})
		r.Post("/chat", chatHandler.Send)
	})

	return r
}
