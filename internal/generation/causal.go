package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultCausalModel  = "microsoft/DialoGPT-medium"
	defaultEOSToken     = "<|endoftext|>"
	defaultMaxLength    = 150
	defaultInferenceURL = "https://api-inference.huggingface.co"
)

// CausalBackend talks to a text-generation inference endpoint serving a left to
// right model. The model echoes the prompt, so the reply is cut out of the
// generated text. Decoding is greedy and therefore deterministic.
type CausalBackend struct {
	client    *resty.Client
	model     string
	eosToken  string
	maxLength int
}

type causalParameters struct {
	MaxLength          int  `json:"max_length"`
	NumReturnSequences int  `json:"num_return_sequences"`
	DoSample           bool `json:"do_sample"`
	ReturnFullText     bool `json:"return_full_text"`
}

type causalRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters causalParameters `json:"parameters"`
	Options    map[string]any   `json:"options,omitempty"`
}

type causalResult struct {
	GeneratedText string `json:"generated_text"`
}

func NewCausalBackend(cfg Config) (*CausalBackend, error) {
	url := cfg.URL
	if url == "" {
		url = defaultInferenceURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultCausalModel
	}
	eos := cfg.EOSToken
	if eos == "" {
		eos = defaultEOSToken
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().SetBaseURL(url).SetTimeout(timeout)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &CausalBackend{
		client:    client,
		model:     model,
		eosToken:  eos,
		maxLength: maxLength,
	}, nil
}

func (b *CausalBackend) Name() string {
	return string(Causal)
}

func (b *CausalBackend) Generate(ctx context.Context, prompt string) (string, error) {
	body := causalRequest{
		Inputs: prompt + b.eosToken,
		Parameters: causalParameters{
			MaxLength:          b.maxLength,
			NumReturnSequences: 1,
			DoSample:           false,
			ReturnFullText:     true,
		},
		Options: map[string]any{"wait_for_model": true},
	}

	var results []causalResult
	res, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&results).
		Post("/models/" + b.model)
	if err != nil {
		slog.Error("causal backend request failed", "model", b.model, "error", err)
		return "", newGenerationError(b.Name(), OpRequest, err)
	}

	if !res.IsSuccess() {
		slog.Error("causal backend returned error", "model", b.model, "status_code", res.StatusCode(), "body", res.String())
		return "", newGenerationError(b.Name(), OpResponse, fmt.Errorf("inference endpoint returned status %d: %s", res.StatusCode(), strings.TrimSpace(res.String())))
	}

	if len(results) == 0 {
		return "", newGenerationError(b.Name(), OpDecode, errors.New("inference endpoint returned no sequences"))
	}

	reply, err := stripPromptEcho(results[0].GeneratedText, prompt, b.eosToken)
	if err != nil {
		return "", newGenerationError(b.Name(), OpTruncate, err)
	}
	return reply, nil
}

// stripPromptEcho keeps the text after the last occurrence of the prompt, with end
// markers removed.
func stripPromptEcho(generated, prompt, eosToken string) (string, error) {
	if prompt == "" {
		return "", errors.New("empty prompt")
	}

	reply := generated
	if i := strings.LastIndex(generated, prompt); i >= 0 {
		reply = generated[i+len(prompt):]
	}
	if eosToken != "" {
		reply = strings.ReplaceAll(reply, eosToken, "")
	}
	reply = strings.TrimSpace(reply)

	if reply == "" {
		return "", errors.New("model produced no text after the prompt")
	}
	return reply, nil
}
