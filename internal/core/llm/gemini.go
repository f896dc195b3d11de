package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the Gemini generateContent endpoint.
type GeminiProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	client      *http.Client
}

func NewGeminiProvider(apiKey, baseURL, model string, temperature float32, maxTokens int) *GeminiProvider {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if temperature == 0 {
		temperature = 0.7
	}
	if maxTokens == 0 {
		maxTokens = 300
	}

	return &GeminiProvider{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GeminiProvider) GetProviderName() string {
	return "Google Gemini"
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) GenerateResponse(ctx context.Context, in Request) (string, error) {
	contents := make([]geminiContent, 0, len(in.History)+1)
	for _, m := range in.History {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: in.UserMessage}}})

	body := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     pick(in.Temperature, p.temperature),
			MaxOutputTokens: pickInt(in.MaxTokens, p.maxTokens),
		},
	}
	if in.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: in.SystemPrompt}}}
	}
	if in.JSONMode {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	var out geminiResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	if err := postJSON(ctx, p.client, url, map[string]string{"x-goog-api-key": p.apiKey}, body, &out); err != nil {
		return "", fmt.Errorf("gemini error (model: %s): %w", p.model, err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini (candidates: %d)", len(out.Candidates))
	}
	var b strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
