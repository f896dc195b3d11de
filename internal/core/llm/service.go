package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Service bounds every call to the wrapped provider with a timeout.
type Service struct {
	provider LLMProvider
	timeout  time.Duration
}

// NewService builds the configured provider.
func NewService(cfg *ProviderConfig, timeout time.Duration) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	log.Info().Str("provider", provider.GetProviderName()).Str("model", cfg.Model).Msg("🤖 Using LLM provider")
	return NewServiceWithProvider(provider, timeout), nil
}

// NewServiceWithProvider wraps an already built provider.
func NewServiceWithProvider(provider LLMProvider, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{provider: provider, timeout: timeout}
}

func (s *Service) GenerateResponse(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.GenerateResponse(ctx, req)
}

func (s *Service) GetProviderName() string {
	return s.provider.GetProviderName()
}
