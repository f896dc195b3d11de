package llm

import (
	"context"
	"fmt"
)

// Message is one prior turn handed to the model as context.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a single completion call. Zero Temperature/MaxTokens use the provider defaults.
type Request struct {
	SystemPrompt string
	History      []Message
	UserMessage  string
	Temperature  float32
	MaxTokens    int
	// JSONMode asks for a JSON object response where the provider supports it.
	JSONMode bool
}

// LLMProvider is implemented by every chat-completion backend.
type LLMProvider interface {
	GenerateResponse(ctx context.Context, req Request) (string, error)
	GetProviderName() string
}

// ProviderType selects the backend in NewProvider.
type ProviderType string

const (
	ProviderOpenAI   ProviderType = "openai"
	ProviderGroq     ProviderType = "groq"
	ProviderDeepSeek ProviderType = "deepseek"
	ProviderClaude   ProviderType = "claude"
	ProviderGemini   ProviderType = "gemini"
)

// ProviderConfig describes one chat-completion backend.
type ProviderConfig struct {
	Type    ProviderType
	APIKey  string
	BaseURL string // overrides the provider's default endpoint

	Model       string
	Temperature float32
	MaxTokens   int
}

// NewProvider builds the provider named by cfg.Type. An empty type means OpenAI.
func NewProvider(cfg *ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for LLM provider %q", cfg.Type)
	}

	switch cfg.Type {
	case ProviderOpenAI, "":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil

	case ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = "llama-3.1-8b-instant"
		}
		return newCompatibleProvider("Groq", cfg.APIKey, baseURL, model, cfg.Temperature, cfg.MaxTokens), nil

	case ProviderDeepSeek:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = deepSeekBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = "deepseek-chat"
		}
		return newCompatibleProvider("DeepSeek", cfg.APIKey, baseURL, model, cfg.Temperature, cfg.MaxTokens), nil

	case ProviderClaude:
		return NewClaudeProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil

	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s", cfg.Type)
	}
}
