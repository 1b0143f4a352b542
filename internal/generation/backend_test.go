package generation_test

import (
	"context"
	"errors"
	"testing"

	"chat-backend/internal/generation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcBackend func(ctx context.Context, prompt string) (string, error)

func (f funcBackend) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f funcBackend) Name() string {
	return "func"
}

func TestGuardRecoversPanics(t *testing.T) {
	backend := generation.Guard(funcBackend(func(context.Context, string) (string, error) {
		panic("tokenizer exploded")
	}))

	reply, err := backend.Generate(context.Background(), "X")
	assert.Empty(t, reply)

	var gerr *generation.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, generation.OpPanic, gerr.Op)
	assert.Equal(t, "func", gerr.Backend)
	assert.Contains(t, generation.Describe(err), "tokenizer exploded")
}

func TestGuardWrapsPlainErrors(t *testing.T) {
	cause := errors.New("connection refused")
	backend := generation.Guard(funcBackend(func(context.Context, string) (string, error) {
		return "partial", cause
	}))

	reply, err := backend.Generate(context.Background(), "X")
	assert.Empty(t, reply)
	assert.ErrorIs(t, err, cause)

	var gerr *generation.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, generation.OpRequest, gerr.Op)
}

func TestGuardIsIdempotent(t *testing.T) {
	inner := funcBackend(func(_ context.Context, prompt string) (string, error) { return prompt, nil })
	once := generation.Guard(inner)
	assert.Same(t, once, generation.Guard(once))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Error generating response: boom", generation.Describe(errors.New("boom")))
	assert.Equal(t, "Error generating response: timeout",
		generation.Describe(&generation.GenerationError{Backend: "causal", Op: generation.OpRequest, Err: errors.New("timeout")}))
}

func TestLoadBackend(t *testing.T) {
	_, err := generation.LoadBackend(generation.Config{Type: "unknown"})
	assert.ErrorContains(t, err, "unsupported backend type")

	backend, err := generation.LoadBackend(generation.Config{Type: generation.Causal, URL: "http://localhost:1"})
	require.NoError(t, err)
	assert.Equal(t, "causal", backend.Name())
}
