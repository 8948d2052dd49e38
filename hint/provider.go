package hint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retrohint/hintd/config"
)

// Provider produces a hint for a screenshot of the running game
type Provider interface {
	Name() string
	Model() string
	Hint(ctx context.Context, image []byte, system, game string) (string, error)
}

// ErrNoCredential means no API key was found for the configured provider
var ErrNoCredential = errors.New("no API key configured")

// ProviderError is a well-formed refusal from the hint service: an HTTP
// error status, or a response carrying no text
type ProviderError struct {
	Provider string
	Code     int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Message)
}

// TransportError means the hint service could not be reached or did not answer in time
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const DefaultMaxTokens = 300

// NewProvider creates a hint provider based on configuration
func NewProvider(cfg config.HintConfig) (Provider, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	prompt := cfg.PromptTemplate

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, prompt, maxTokens), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, prompt, maxTokens), nil
	case "gemini":
		return NewGeminiProvider(cfg.APIKey, cfg.Model, prompt, maxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// Prompt fills the {system} and {game} placeholders of a prompt template
func Prompt(template, system, game string) string {
	return strings.NewReplacer("{system}", system, "{game}", game).Replace(template)
}

// statusCoder is implemented by the SDK error types that carry an HTTP status
type statusCoder interface {
	HTTPCode() int
}

// classify maps an SDK error onto ProviderError or TransportError
func classify(provider string, err error, status func(error) (int, string, bool)) error {
	if err == nil {
		return nil
	}
	if code, msg, ok := status(err); ok {
		return &ProviderError{Provider: provider, Code: code, Message: msg}
	}
	return &TransportError{Provider: provider, Err: err}
}

func emptyAnswer(provider string) error {
	return &ProviderError{Provider: provider, Message: "response contained no text"}
}
