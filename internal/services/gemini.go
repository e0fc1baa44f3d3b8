package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/lib/sl"
	"chatroom-backend/internal/models"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiService runs the decision step against a hosted Gemini model with
// a JSON response schema.
type GeminiService struct {
	client  *genai.Client
	model   contentGenerator
	persona string
	limiter *CallLimiter
	log     *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName, persona string, limiter *CallLimiter, log *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = decisionSchema()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf("You are %s. Always answer with the requested JSON object.", persona))},
	}

	if log == nil {
		log = slog.Default()
	}

	return &GeminiService{
		client:  client,
		model:   model,
		persona: persona,
		limiter: limiter,
		log:     log.With(sl.Module("gemini")),
	}, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Decide sends the instruction document followed by the reference images
// and parses the model's JSON answer.
func (s *GeminiService) Decide(ctx context.Context, req models.ChatRequest) (*models.RoutingDecision, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	parts := []genai.Part{genai.Text(buildDecisionPrompt(s.persona, req))}
	for i, raw := range req.ReferenceImages {
		img, err := datauri.ParseImage(raw)
		if err != nil {
			return nil, fmt.Errorf("reference image %d: %w", i, err)
		}
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}

	resp, err := s.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			s.log.Warn("Gemini stopped early", slog.Int("candidate", i), slog.String("reason", cand.FinishReason.String()))
		}
	}

	return parseDecision(extractText(resp))
}

func decisionSchema() *genai.Schema {
	actions := make([]string, len(models.Actions))
	for i, a := range models.Actions {
		actions[i] = string(a)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action": {
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        actions,
				Description: "How to handle the message.",
			},
			"text": {
				Type:        genai.TypeString,
				Description: "Reply text, image description, long-form document, or a short status label for image actions.",
			},
			"image_instruction": {
				Type:        genai.TypeString,
				Description: "Instruction for the image model when action is generateOrEditImage.",
			},
			"use_reference_images": {
				Type:        genai.TypeBoolean,
				Description: "Whether attached images are context for the image model.",
			},
		},
		Required: []string{"action"},
	}
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
