package hint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider asks a Gemini model for a hint
type GeminiProvider struct {
	apiKey    string
	model     string
	prompt    string
	maxTokens int
	opts      []option.ClientOption
}

// NewGeminiProvider creates a new Gemini hint provider
func NewGeminiProvider(apiKey, model, prompt string, maxTokens int, opts ...option.ClientOption) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{
		apiKey:    apiKey,
		model:     model,
		prompt:    prompt,
		maxTokens: maxTokens,
		opts:      opts,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) Hint(ctx context.Context, image []byte, system, game string) (string, error) {
	if p.apiKey == "" {
		return "", ErrNoCredential
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)...)
	if err != nil {
		return "", &TransportError{Provider: p.Name(), Err: fmt.Errorf("failed to create client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetMaxOutputTokens(int32(p.maxTokens))

	resp, err := model.GenerateContent(ctx, genai.ImageData("png", image), genai.Text(Prompt(p.prompt, system, game)))
	if err != nil {
		return "", classify(p.Name(), err, geminiStatus)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", emptyAnswer(p.Name())
	}
	return text, nil
}

func geminiStatus(err error) (int, string, bool) {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, gErr.Message, true
	}
	// gRPC-backed API errors expose the mapped HTTP status
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPCode() > 0 {
		return sc.HTTPCode(), err.Error(), true
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return 0, blocked.Error(), true
	}
	return 0, "", false
}
