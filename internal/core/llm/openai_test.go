package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderSendsHistoryAndJSONMode(t *testing.T) {
	var got struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature    float32 `json:"temperature"`
		MaxTokens      int     `json:"max_tokens"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"intent\":\"greeting\",\"confidence\":0.9}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", srv.URL+"/v1", "", 0, 0)
	out, err := p.GenerateResponse(context.Background(), Request{
		SystemPrompt: "sys",
		History:      []Message{{Role: RoleUser, Content: "hola"}, {Role: RoleAssistant, Content: "¡Hola!"}},
		UserMessage:  "quiero cemento",
		Temperature:  0.3,
		MaxTokens:    100,
		JSONMode:     true,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "greeting")

	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "quiero cemento", got.Messages[3].Content)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	assert.Equal(t, 100, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProviderConfig
		wantName string
		wantErr  bool
	}{
		{"openai default", ProviderConfig{APIKey: "k"}, "OpenAI", false},
		{"groq", ProviderConfig{Type: ProviderGroq, APIKey: "k"}, "Groq", false},
		{"deepseek", ProviderConfig{Type: ProviderDeepSeek, APIKey: "k"}, "DeepSeek", false},
		{"claude", ProviderConfig{Type: ProviderClaude, APIKey: "k"}, "Anthropic Claude", false},
		{"gemini", ProviderConfig{Type: ProviderGemini, APIKey: "k"}, "Google Gemini", false},
		{"missing key", ProviderConfig{Type: ProviderOpenAI}, "", true},
		{"unknown", ProviderConfig{Type: "mystery", APIKey: "k"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.GetProviderName())
		})
	}
}

type slowProvider struct{}

func (slowProvider) GenerateResponse(ctx context.Context, req Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowProvider) GetProviderName() string { return "slow" }

func TestServiceAppliesTimeout(t *testing.T) {
	s := NewServiceWithProvider(slowProvider{}, 20*time.Millisecond)

	start := time.Now()
	_, err := s.GenerateResponse(context.Background(), Request{UserMessage: "hola"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
