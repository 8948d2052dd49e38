package hint

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider asks a vision-capable chat model for a hint
type OpenAIProvider struct {
	apiKey    string
	model     string
	prompt    string
	maxTokens int
	opts      []option.RequestOption
}

// NewOpenAIProvider creates a new OpenAI hint provider
func NewOpenAIProvider(apiKey, model, prompt string, maxTokens int, opts ...option.RequestOption) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{
		apiKey:    apiKey,
		model:     model,
		prompt:    prompt,
		maxTokens: maxTokens,
		opts:      opts,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) Hint(ctx context.Context, image []byte, system, game string) (string, error) {
	if p.apiKey == "" {
		return "", ErrNoCredential
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(p.apiKey)}, p.opts...)...)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(p.model),
		MaxTokens: openai.Int(int64(p.maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
				openai.TextContentPart(Prompt(p.prompt, system, game)),
			}),
		},
	})
	if err != nil {
		return "", classify(p.Name(), err, openaiStatus)
	}

	if len(resp.Choices) == 0 {
		return "", emptyAnswer(p.Name())
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", emptyAnswer(p.Name())
	}
	return text, nil
}

func openaiStatus(err error) (int, string, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Message, true
	}
	return 0, "", false
}
