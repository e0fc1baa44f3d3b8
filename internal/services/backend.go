package services

import (
	"context"
	"fmt"
	"log/slog"

	"chatroom-backend/internal/config"
)

// NewAssistantFromConfig wires the configured backend. The returned close
// func releases backend clients.
func NewAssistantFromConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Assistant, func(), error) {
	switch cfg.AssistantBackend {
	case config.BackendKeyword:
		return NewAssistant(NewKeywordDecider(), NewPlaceholderImageGenerator(), cfg.AssistantSignature, log), func() {}, nil

	case config.BackendGemini:
		limiter := NewCallLimiter(cfg.GeminiConcurrentReqs)

		decider, err := NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiDecisionModel, cfg.AssistantName, limiter, log)
		if err != nil {
			return nil, nil, err
		}
		images, err := NewGeminiImageService(ctx, cfg.GeminiAPIKey, cfg.GeminiImageModel, limiter, log)
		if err != nil {
			decider.Close()
			return nil, nil, err
		}
		return NewAssistant(decider, images, cfg.AssistantSignature, log), decider.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown assistant backend %q", cfg.AssistantBackend)
	}
}
