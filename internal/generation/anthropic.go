package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicBackend sends the prompt as a single user message to the Anthropic
// messages API and joins the text blocks of the reply.
type AnthropicBackend struct {
	messages  *anthropic.MessageService
	model     anthropic.Model
	maxTokens int64
	temp      float64
}

func NewAnthropicBackend(cfg Config) (*AnthropicBackend, error) {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxLength
	if maxTokens <= 0 {
		maxTokens = defaultMaxLength
	}
	temp, err := cfg.temperature()
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.Token != "" {
		opts = append(opts, option.WithAPIKey(cfg.Token))
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicBackend{
		messages:  client.Messages,
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		temp:      temp,
	}, nil
}

func (a *AnthropicBackend) Name() string {
	return string(Anthropic)
}

func (a *AnthropicBackend) Generate(ctx context.Context, prompt string) (string, error) {
	message, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.F(a.model),
		MaxTokens:   anthropic.F(a.maxTokens),
		Temperature: anthropic.Float(a.temp),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		}),
	})
	if err != nil {
		slog.Error("anthropic error: message request failed", "model", a.model, "error", err)
		return "", newGenerationError(a.Name(), OpRequest, fmt.Errorf("anthropic generation failed: %w", err))
	}

	var parts []string
	for _, block := range message.Content {
		if text, ok := block.AsUnion().(anthropic.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}

	reply := strings.TrimSpace(strings.Join(parts, "\n"))
	if reply == "" {
		return "", newGenerationError(a.Name(), OpDecode, errors.New("anthropic returned no text content"))
	}
	return reply, nil
}
