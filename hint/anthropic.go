package hint

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider asks Claude for a hint through the Messages API
type AnthropicProvider struct {
	apiKey    string
	model     string
	prompt    string
	maxTokens int
	opts      []option.RequestOption
}

// NewAnthropicProvider creates a new Anthropic hint provider. Extra request
// options are appended after the API key.
func NewAnthropicProvider(apiKey, model, prompt string, maxTokens int, opts ...option.RequestOption) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		apiKey:    apiKey,
		model:     model,
		prompt:    prompt,
		maxTokens: maxTokens,
		opts:      opts,
	}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Model() string {
	return p.model
}

func (p *AnthropicProvider) Hint(ctx context.Context, image []byte, system, game string) (string, error) {
	if p.apiKey == "" {
		return "", ErrNoCredential
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(p.apiKey)}, p.opts...)...)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(Prompt(p.prompt, system, game)),
			),
		},
	})
	if err != nil {
		return "", classify(p.Name(), err, anthropicStatus)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", emptyAnswer(p.Name())
	}
	return text, nil
}

func anthropicStatus(err error) (int, string, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Error(), true
	}
	return 0, "", false
}
