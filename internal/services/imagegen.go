package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/lib/sl"
)

type imageModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiImageService is the image-capable call of the dispatcher. It asks
// for combined text and image output.
type GeminiImageService struct {
	models  imageModels
	model   string
	limiter *CallLimiter
	log     *slog.Logger
}

func NewGeminiImageService(ctx context.Context, apiKey, model string, limiter *CallLimiter, log *slog.Logger) (*GeminiImageService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini image client: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &GeminiImageService{
		models:  client.Models,
		model:   model,
		limiter: limiter,
		log:     log.With(sl.Module("gemini-image")),
	}, nil
}

// GenerateImage sends the reference images first, then the instruction.
func (s *GeminiImageService) GenerateImage(ctx context.Context, references []*datauri.DataURI, instruction string) (*GeneratedImage, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	parts := make([]*genai.Part, 0, len(references)+1)
	for _, ref := range references {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: ref.MIMEType, Data: ref.Data}})
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := s.models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("Gemini image API error: %w", err)
	}

	return firstImage(resp)
}

func firstImage(resp *genai.GenerateContentResponse) (*GeneratedImage, error) {
	if resp == nil {
		return nil, ErrNoImage
	}

	var text strings.Builder
	var image *GeneratedImage
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if image == nil && part.InlineData != nil && len(part.InlineData.Data) > 0 &&
				strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				image = &GeneratedImage{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				}
			}
		}
	}

	if image == nil {
		return nil, ErrNoImage
	}
	image.Text = strings.TrimSpace(text.String())
	return image, nil
}
