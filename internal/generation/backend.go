package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// BackendType names one of the interchangeable generation backends.
type BackendType string

const (
	Causal    BackendType = "causal"
	Seq2Seq   BackendType = "seq2seq"
	OpenAI    BackendType = "openai"
	Anthropic BackendType = "anthropic"
)

const (
	OpRequest  = "request"
	OpResponse = "response"
	OpDecode   = "decode"
	OpTruncate = "truncate"
	OpPanic    = "panic"
)

// Backend turns a prompt into a reply. Implementations make a single attempt and
// report every failure as a *GenerationError.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)

	Name() string
}

type GenerationError struct {
	Backend string
	Op      string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s backend %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newGenerationError(backend, op string, err error) *GenerationError {
	return &GenerationError{Backend: backend, Op: op, Err: err}
}

// Describe renders a generation failure as display text for the conversation.
func Describe(err error) string {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return fmt.Sprintf("Error generating response: %v", gerr.Err)
	}
	return fmt.Sprintf("Error generating response: %v", err)
}

type Config struct {
	Type      BackendType
	URL       string
	Model     string
	Token     string
	EOSToken  string
	MaxLength int
	// Temperature is nil when unset; the backend then uses its default. Zero is
	// a valid setting.
	Temperature *float64
	Timeout     time.Duration
	// RateLimit caps calls per second to the endpoint; zero disables it.
	RateLimit float64
	Burst     int
}

func (cfg Config) temperature() (float64, error) {
	if cfg.Temperature == nil {
		return defaultTemperature, nil
	}
	if *cfg.Temperature < 0 {
		return 0, fmt.Errorf("temperature must not be negative, got %v", *cfg.Temperature)
	}
	return *cfg.Temperature, nil
}

type BackendLoader func(cfg Config) (Backend, error)

func NewBackendLoaders() map[BackendType]BackendLoader {
	return map[BackendType]BackendLoader{
		Causal: func(cfg Config) (Backend, error) {
			return NewCausalBackend(cfg)
		},
		Seq2Seq: func(cfg Config) (Backend, error) {
			return NewSeq2SeqBackend(cfg)
		},
		OpenAI: func(cfg Config) (Backend, error) {
			return NewOpenAIBackend(cfg)
		},
		Anthropic: func(cfg Config) (Backend, error) {
			return NewAnthropicBackend(cfg)
		},
	}
}

func LoadBackend(cfg Config) (Backend, error) {
	loader, ok := NewBackendLoaders()[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported backend type '%s'", cfg.Type)
	}
	backend, err := loader(cfg)
	if err != nil {
		return nil, fmt.Errorf("error loading %s backend: %w", cfg.Type, err)
	}
	if cfg.RateLimit > 0 {
		backend = NewRateLimitedBackend(backend, cfg.RateLimit, cfg.Burst)
	}
	return Guard(backend), nil
}

type guarded struct {
	backend Backend
}

// Guard wraps a backend so that panics and untyped errors come back as a
// *GenerationError.
func Guard(backend Backend) Backend {
	if g, ok := backend.(*guarded); ok {
		return g
	}
	return &guarded{backend: backend}
}

func (g *guarded) Name() string {
	return g.backend.Name()
}

func (g *guarded) Generate(ctx context.Context, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("generation backend panicked", "backend", g.backend.Name(), "panic", r)
			reply, err = "", newGenerationError(g.backend.Name(), OpPanic, fmt.Errorf("%v", r))
		}
	}()

	reply, err = g.backend.Generate(ctx, prompt)
	if err != nil {
		var gerr *GenerationError
		if !errors.As(err, &gerr) {
			err = newGenerationError(g.backend.Name(), OpRequest, err)
		}
		return "", err
	}
	return reply, nil
}
