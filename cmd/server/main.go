package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-backend/cmd"
	"chat-backend/internal/api"
	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	"chat-backend/internal/database"
	"chat-backend/internal/generation"
	"chat-backend/internal/messaging"
	"chat-backend/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func createPublisher(cfg config.Config) messaging.Publisher {
	if cfg.RabbitMQURL != "" {
		publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		return publisher
	}

	queue := messaging.NewInMemoryQueue(cfg.EventQueueSize)
	go messaging.LogTurns(queue)
	return queue
}

func createServer(manager *chat.ChatSessionManager, cfg config.Config) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		api.NewChatService(manager, cfg.RequestTimeout).AddRoutes(r)
		// websocket connections are long lived and skip the request timeout
		api.NewChatSocket(manager).AddRoutes(r)
	})

	web.NewChatPage(manager, cfg.RequestTimeout).AddRoutes(r)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logFile := cmd.SetupLogFile(cfg.LogFile)
	defer logFile.Close()

	slog.Info("starting chat server", "port", cfg.Port, "backend_type", cfg.BackendType, "model", cfg.ModelName, "database", cfg.DatabaseURL)

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	backend, err := generation.LoadBackend(cfg.Backend())
	if err != nil {
		log.Fatalf("could not load generation backend: %v", err)
	}

	publisher := createPublisher(cfg)
	defer publisher.Close()

	manager := chat.NewChatSessionManager(
		chat.NewGormStore(db), backend, publisher, cfg.SessionCacheSize,
		chat.WithThinkingDelay(cfg.ThinkingDelay),
	)

	server := createServer(manager, cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server started", "port", cfg.Port, "backend", backend.Name())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
