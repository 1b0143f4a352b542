package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend sends the prompt as a single user message to an OpenAI
// compatible chat completions endpoint.
type OpenAIBackend struct {
	client    openai.Client
	model     string
	maxTokens int
	temp      float64
}

func NewOpenAIBackend(cfg Config) (*OpenAIBackend, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxLength
	if maxTokens <= 0 {
		maxTokens = defaultMaxLength
	}
	temp, err := cfg.temperature()
	if err != nil {
		return nil, err
	}

	var opts []option.RequestOption
	if cfg.Token != "" {
		opts = append(opts, option.WithAPIKey(cfg.Token))
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	// single best-effort attempt per turn
	opts = append(opts, option.WithMaxRetries(0))

	return &OpenAIBackend{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		temp:      temp,
	}, nil
}

func (o *OpenAIBackend) Name() string {
	return string(OpenAI)
}

func (o *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	chatOpts := openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:       o.model,
		MaxTokens:   openai.Int(int64(o.maxTokens)),
		Temperature: openai.Float(o.temp),
	}

	res, err := o.client.Chat.Completions.New(ctx, chatOpts)
	if err != nil {
		slog.Error("openai error: chat completions failed", "model", o.model, "error", err)
		return "", newGenerationError(o.Name(), OpRequest, fmt.Errorf("openai generation failed: %w", err))
	}

	if len(res.Choices) == 0 {
		return "", newGenerationError(o.Name(), OpDecode, errors.New("openai returned no choices"))
	}

	reply := strings.TrimSpace(res.Choices[0].Message.Content)
	if reply == "" {
		return "", newGenerationError(o.Name(), OpDecode, errors.New("openai returned an empty message"))
	}
	return reply, nil
}
