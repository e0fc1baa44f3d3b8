package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/lib/sl"
	"chatroom-backend/internal/models"
)

// User-facing fallback texts.
const (
	MsgDecisionFallback    = "I'm sorry, I couldn't process that request."
	MsgNoReply             = "I'm not sure how to respond to that."
	MsgNoImage             = "Sorry, I couldn't generate the image this time. The model didn't provide an image."
	MsgGenerationFailed    = "I ran into an issue trying to generate that image. Please try a different prompt."
	MsgModificationFailed  = "I ran into an issue trying to modify that image. Please try a different instruction."
	LabelImageGeneration   = "Image generation"
	LabelImageModification = "Image modification"
	DefaultSignature       = "Written by AI Assistant"
)

// Decider classifies a turn and drafts the reply.
type Decider interface {
	Decide(ctx context.Context, req models.ChatRequest) (*models.RoutingDecision, error)
}

// ImageGenerator produces one image from optional reference images and an
// instruction. It returns ErrNoImage when the backend answered without one.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, references []*datauri.DataURI, instruction string) (*GeneratedImage, error)
}

type GeneratedImage struct {
	MIMEType string
	Data     []byte
	Text     string
}

// Assistant turns a ChatRequest into exactly one ChatResponse: one decision
// call, then at most one image call.
type Assistant struct {
	decider   Decider
	images    ImageGenerator
	signature string
	log       *slog.Logger
}

func NewAssistant(decider Decider, images ImageGenerator, signature string, log *slog.Logger) *Assistant {
	if strings.TrimSpace(signature) == "" {
		signature = DefaultSignature
	}
	if log == nil {
		log = slog.Default()
	}
	return &Assistant{
		decider:   decider,
		images:    images,
		signature: strings.TrimSpace(signature),
		log:       log.With(sl.Module("assistant")),
	}
}

// Respond never fails; backend errors degrade to a text notice.
func (a *Assistant) Respond(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	decision := a.Decide(ctx, req)
	return a.Dispatch(ctx, req, decision)
}

// Decide runs the decision step and falls back to an apology reply when
// the backend fails or returns a malformed decision.
func (a *Assistant) Decide(ctx context.Context, req models.ChatRequest) models.RoutingDecision {
	d, err := a.decider.Decide(ctx, req)
	if err != nil {
		a.log.Error("decision step failed", sl.Err(err))
		return fallbackDecision()
	}
	if d == nil || !d.Action.Valid() {
		a.log.Warn("decision step returned no usable decision")
		return fallbackDecision()
	}
	a.log.Debug("routing decision",
		slog.String("action", string(d.Action)),
		slog.Int("images", len(req.ReferenceImages)),
	)
	return *d
}

func (a *Assistant) Dispatch(ctx context.Context, req models.ChatRequest, d models.RoutingDecision) models.ChatResponse {
	switch d.Action {
	case models.ActionGenerateOrEditImage:
		return a.generateImage(ctx, req, d)
	case models.ActionComposeLongForm, models.ActionDescribeImage, models.ActionReply:
		return models.ChatResponse{ReplyText: applySignature(d.Action, textOrDefault(d.Text), a.signature)}
	default:
		a.log.Warn("unrecognized action", slog.String("action", string(d.Action)))
		return models.ChatResponse{ReplyText: applySignature(models.ActionReply, textOrDefault(d.Text), a.signature)}
	}
}

func (a *Assistant) generateImage(ctx context.Context, req models.ChatRequest, d models.RoutingDecision) models.ChatResponse {
	var refs []*datauri.DataURI
	label, failure := LabelImageGeneration, MsgGenerationFailed

	if req.HasImages() && (d.UseReferenceImages == nil || *d.UseReferenceImages) {
		label, failure = LabelImageModification, MsgModificationFailed
		for i, raw := range req.ReferenceImages {
			ref, err := datauri.ParseImage(raw)
			if err != nil {
				a.log.Warn("skipping unreadable reference image", slog.Int("index", i), sl.Err(err))
				continue
			}
			refs = append(refs, ref)
		}
	}

	instruction := strings.TrimSpace(d.ImageInstruction)
	if instruction == "" {
		instruction = req.UserText
	}

	img, err := a.images.GenerateImage(ctx, refs, instruction)
	if errors.Is(err, ErrNoImage) {
		a.log.Warn("image call returned no image", slog.String("instruction", instruction))
		return models.ChatResponse{ReplyText: MsgNoImage}
	}
	if err != nil {
		a.log.Error("image generation error", sl.Err(err), slog.Int("references", len(refs)))
		return models.ChatResponse{ReplyText: failure}
	}
	if img == nil || len(img.Data) == 0 || !strings.HasPrefix(mimeOrDefault(img.MIMEType), "image/") {
		a.log.Warn("image call returned unusable payload")
		return models.ChatResponse{ReplyText: MsgNoImage}
	}

	status := strings.TrimSpace(d.Text)
	if status == "" {
		status = label
	}

	return models.ChatResponse{
		ReplyText:     status,
		ImageDataURI:  datauri.Encode(mimeOrDefault(img.MIMEType), img.Data),
		IsImageResult: true,
	}
}

func fallbackDecision() models.RoutingDecision {
	return models.RoutingDecision{Action: models.ActionReply, Text: MsgDecisionFallback}
}

func textOrDefault(text string) string {
	if strings.TrimSpace(text) == "" {
		return MsgNoReply
	}
	return text
}

func mimeOrDefault(mime string) string {
	if mime == "" {
		return datauri.DefaultImageMIME
	}
	return mime
}

// applySignature makes the signature line the last line of long-form
// documents and strips it from every other reply.
func applySignature(action models.Action, text, signature string) string {
	body := strings.TrimRight(text, " \t\r\n")
	signed := strings.HasSuffix(body, signature)
	if signed {
		body = strings.TrimRight(strings.TrimSuffix(body, signature), " \t\r\n")
	}

	if action == models.ActionComposeLongForm {
		if body == "" {
			return signature
		}
		return body + "\n\n" + signature
	}
	if !signed {
		return text
	}
	if body == "" {
		return MsgNoReply
	}
	return body
}
