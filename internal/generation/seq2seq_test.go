package generation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeq2SeqBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"generated_text": " Nice to meet you. "}]`))
	}))
	defer server.Close()

	backend, err := NewSeq2SeqBackend(Config{URL: server.URL, Token: "hf_test"})
	require.NoError(t, err)
	assert.Equal(t, defaultTemperature, backend.temperature)
	assert.Equal(t, defaultSeq2SeqModel, backend.model)

	reply, err := backend.Generate(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Nice to meet you.", reply)
}

func TestSeq2SeqBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Model is overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	backend, err := NewSeq2SeqBackend(Config{URL: server.URL, Token: "hf_test"})
	require.NoError(t, err)

	_, err = backend.Generate(context.Background(), "Hello")
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, OpRequest, gerr.Op)
}
