package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wzyfromhust/textsage/internal/api"
	"github.com/wzyfromhust/textsage/internal/config"
	"github.com/wzyfromhust/textsage/internal/domain"
	"github.com/wzyfromhust/textsage/internal/llm"
	"github.com/wzyfromhust/textsage/internal/logging"
	"github.com/wzyfromhust/textsage/internal/storage/file"
	"github.com/wzyfromhust/textsage/internal/storage/rediskv"
	"github.com/wzyfromhust/textsage/internal/storage/sqlitekv"
	"github.com/wzyfromhust/textsage/internal/store"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("kv_backend", cfg.KV.Backend).
		Msg("Starting textsage core")

	ctx := context.Background()

	// Initialize key-value backend
	var kv domain.KeyValueStore
	switch cfg.KV.Backend {
	case "redis":
		kv, err = rediskv.Open(ctx, cfg.KV.Redis.Addr(), cfg.KV.Redis.Password, cfg.KV.Redis.DB)
	default:
		kv, err = sqlitekv.Open(ctx, cfg.KV.SQLite.Path)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open key-value store")
	}
	defer kv.Close()

	// Initialize conversation store
	conversations := store.New(ctx, file.NewStore(), kv, store.Options{
		FilePath:     cfg.Store.ConversationsPath(),
		HistoryLimit: cfg.Store.HistoryLimit,
	})

	// Initialize completion client; configuration is read per request
	client := llm.NewClient(func() llm.Config {
		return llm.Config{
			APIKey:  cfg.Chat.APIKey,
			Model:   cfg.Chat.Model,
			BaseURL: cfg.Chat.BaseURL,
		}
	}, &http.Client{Timeout: cfg.Chat.Timeout})

	// Initialize router
	router := api.NewRouter(cfg, conversations, client)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Flush conversations before the process exits
	if err := conversations.SaveAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to save conversations on shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
