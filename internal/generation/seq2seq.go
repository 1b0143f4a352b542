package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
)

const (
	defaultSeq2SeqModel = "facebook/blenderbot-400M-distill"
	defaultTemperature  = 0.7
)

// Seq2SeqBackend runs an encoder-decoder model. The decoder output is the reply
// as is, and sampling makes it non-deterministic.
type Seq2SeqBackend struct {
	llm         llms.Model
	model       string
	maxLength   int
	temperature float64
}

func NewSeq2SeqBackend(cfg Config) (*Seq2SeqBackend, error) {
	model := cfg.Model
	if model == "" {
		model = defaultSeq2SeqModel
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}
	temperature, err := cfg.temperature()
	if err != nil {
		return nil, err
	}

	opts := []huggingface.Option{huggingface.WithModel(model)}
	if cfg.Token != "" {
		opts = append(opts, huggingface.WithToken(cfg.Token))
	}
	if cfg.URL != "" {
		opts = append(opts, huggingface.WithURL(cfg.URL))
	}

	llm, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create huggingface client: %w", err)
	}

	return &Seq2SeqBackend{
		llm:         llm,
		model:       model,
		maxLength:   maxLength,
		temperature: temperature,
	}, nil
}

func (b *Seq2SeqBackend) Name() string {
	return string(Seq2Seq)
}

func (b *Seq2SeqBackend) Generate(ctx context.Context, prompt string) (string, error) {
	reply, err := llms.GenerateFromSinglePrompt(ctx, b.llm, prompt,
		llms.WithModel(b.model),
		llms.WithMaxLength(b.maxLength),
		llms.WithTemperature(b.temperature),
	)
	if err != nil {
		slog.Error("seq2seq backend request failed", "model", b.model, "error", err)
		return "", newGenerationError(b.Name(), OpRequest, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", newGenerationError(b.Name(), OpDecode, errors.New("model produced an empty reply"))
	}
	return reply, nil
}
