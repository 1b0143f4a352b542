package config

import (
	"fmt"
	"time"

	"chat-backend/internal/generation"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"./chat-data/chat.db"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	LogFile     string `env:"LOG_FILE"`

	BackendType    string        `env:"BACKEND_TYPE" envDefault:"causal"`
	BackendURL     string        `env:"BACKEND_URL"`
	ModelName      string        `env:"MODEL_NAME"`
	BackendToken   string        `env:"BACKEND_API_TOKEN"`
	EOSToken       string        `env:"EOS_TOKEN"`
	MaxLength      int           `env:"MAX_LENGTH" envDefault:"150"`
	Temperature    float64       `env:"TEMPERATURE" envDefault:"0.7"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"60s"`
	BackendRPS     float64       `env:"BACKEND_RATE_LIMIT" envDefault:"0"`
	BackendBurst   int           `env:"BACKEND_BURST" envDefault:"1"`

	ThinkingDelay    time.Duration `env:"THINKING_DELAY" envDefault:"0s"`
	SessionCacheSize int           `env:"SESSION_CACHE_SIZE" envDefault:"128"`
	EventQueueSize   int           `env:"EVENT_QUEUE_SIZE" envDefault:"1024"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.MaxLength <= 0 {
		return Config{}, fmt.Errorf("MAX_LENGTH must be positive, got %d", cfg.MaxLength)
	}
	if cfg.SessionCacheSize <= 0 {
		return Config{}, fmt.Errorf("SESSION_CACHE_SIZE must be positive, got %d", cfg.SessionCacheSize)
	}
	if _, ok := generation.NewBackendLoaders()[generation.BackendType(cfg.BackendType)]; !ok {
		return Config{}, fmt.Errorf("invalid BACKEND_TYPE '%s': must be one of causal, seq2seq, openai, anthropic", cfg.BackendType)
	}

	return cfg, nil
}

func (cfg Config) Backend() generation.Config {
	return generation.Config{
		Type:        generation.BackendType(cfg.BackendType),
		URL:         cfg.BackendURL,
		Model:       cfg.ModelName,
		Token:       cfg.BackendToken,
		EOSToken:    cfg.EOSToken,
		MaxLength:   cfg.MaxLength,
		Temperature: &cfg.Temperature,
		Timeout:     cfg.BackendTimeout,
		RateLimit:   cfg.BackendRPS,
		Burst:       cfg.BackendBurst,
	}
}
