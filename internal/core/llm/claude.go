package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	claudeBaseURL    = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	client      *http.Client
}

func NewClaudeProvider(apiKey, baseURL, model string, temperature float32, maxTokens int) *ClaudeProvider {
	if baseURL == "" {
		baseURL = claudeBaseURL
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if temperature == 0 {
		temperature = 0.7
	}
	if maxTokens == 0 {
		maxTokens = 300
	}

	return &ClaudeProvider{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *ClaudeProvider) GetProviderName() string {
	return "Anthropic Claude"
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateResponse has no native JSON mode on this API. With JSONMode set the
// assistant turn is prefilled with "{" and the brace is put back on the reply.
func (p *ClaudeProvider) GenerateResponse(ctx context.Context, in Request) (string, error) {
	messages := make([]claudeMessage, 0, len(in.History)+2)
	for _, m := range in.History {
		messages = append(messages, claudeMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, claudeMessage{Role: RoleUser, Content: in.UserMessage})
	if in.JSONMode {
		messages = append(messages, claudeMessage{Role: RoleAssistant, Content: "{"})
	}

	var out claudeResponse
	err := postJSON(ctx, p.client, p.baseURL+"/messages", map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}, claudeRequest{
		Model:       p.model,
		MaxTokens:   pickInt(in.MaxTokens, p.maxTokens),
		Temperature: pick(in.Temperature, p.temperature),
		System:      in.SystemPrompt,
		Messages:    messages,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("claude error (model: %s): %w", p.model, err)
	}

	var b strings.Builder
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no response from Claude")
	}
	if in.JSONMode {
		return "{" + b.String(), nil
	}
	return b.String(), nil
}
