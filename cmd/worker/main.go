package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chat-backend/cmd"
	"chat-backend/internal/messaging"

	"github.com/caarlos0/env/v11"
)

type WorkerConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL,notEmpty,required"`
	LogFile     string `env:"LOG_FILE"`
}

// Consumes the chat turn feed published by the server and writes it to the log.
func main() {
	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	logFile := cmd.SetupLogFile(cfg.LogFile)
	defer logFile.Close()

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer receiver.Close()

	go messaging.LogTurns(receiver)

	slog.Info("worker started, waiting for turn events", "queue", messaging.TurnQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("worker stopped")
}
