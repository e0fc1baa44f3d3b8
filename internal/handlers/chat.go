package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chatroom-backend/internal/lib/sl"
	"chatroom-backend/internal/models"
	"chatroom-backend/internal/services"
)

const (
	currentUserID      = "user_current"
	assistantID        = "user_ai_assistant"
	pendingText        = "Thinking..."
	defaultTurnTimeout = 90 * time.Second
)

type assistantResponder interface {
	Respond(ctx context.Context, req models.ChatRequest) models.ChatResponse
}

type transcriptStore interface {
	Create() uuid.UUID
	Append(conversationID uuid.UUID, msg models.ChatMessage) (models.ChatMessage, error)
	Resolve(conversationID, messageID uuid.UUID, resp models.ChatResponse) (models.ChatMessage, error)
	List(conversationID uuid.UUID) ([]models.ChatMessage, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, msg models.WSMessage) error
}

type ChatHandler struct {
	assistant     assistantResponder
	store         transcriptStore
	events        eventPublisher
	assistantName string
	timeout       time.Duration
	log           *slog.Logger
}

func NewChatHandler(
	assistant assistantResponder,
	store transcriptStore,
	events eventPublisher,
	assistantName string,
	timeout time.Duration,
	log *slog.Logger,
) *ChatHandler {
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChatHandler{
		assistant:     assistant,
		store:         store,
		events:        events,
		assistantName: assistantName,
		timeout:       timeout,
		log:           log.With(sl.Module("handlers.chat")),
	}
}

// Chat answers a single turn without touching any transcript.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTurn(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.turnContext(r)
	defer cancel()

	writeJSON(w, http.StatusOK, h.assistant.Respond(ctx, req))
}

func (h *ChatHandler) Participants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []models.Participant{
		{ID: currentUserID, Name: "You", AvatarHint: "profile user", IsCurrentUser: true, Status: "online"},
		{ID: assistantID, Name: h.assistantName, AvatarHint: "assistant logo", Status: "online"},
	})
}

func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	id := h.store.Create()
	writeJSON(w, http.StatusCreated, models.ConversationResponse{ID: id, Messages: []models.ChatMessage{}})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	msgs, err := h.store.List(id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ConversationResponse{ID: id, Messages: msgs})
}

// SendMessage appends the user's message and a pending assistant
// placeholder, runs the assistant, then resolves the placeholder.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	req, ok := h.decodeTurn(w, r)
	if !ok {
		return
	}

	userMsg, err := h.store.Append(conversationID, models.ChatMessage{
		Sender:     models.SenderUser,
		UserName:   "You",
		AvatarHint: "profile user",
		Text:       req.UserText,
		Images:     req.ReferenceImages,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	pending, err := h.store.Append(conversationID, models.ChatMessage{
		Sender:     models.SenderAssistant,
		UserName:   h.assistantName,
		AvatarHint: "assistant logo",
		Text:       pendingText,
		Pending:    true,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	ctx, cancel := h.turnContext(r)
	defer cancel()

	h.publish(ctx, models.EventMessageAdded, conversationID, userMsg)
	h.publish(ctx, models.EventMessageAdded, conversationID, pending)

	resp := h.assistant.Respond(ctx, req)

	final, err := h.store.Resolve(conversationID, pending.ID, resp)
	if err != nil {
		h.log.Error("failed to resolve placeholder", sl.Err(err), slog.String("message", pending.ID.String()))
		handleServiceError(w, r, err)
		return
	}

	h.publish(ctx, models.EventMessageUpdated, conversationID, final)

	writeJSON(w, http.StatusOK, models.SendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: final,
	})
}

func (h *ChatHandler) decodeTurn(w http.ResponseWriter, r *http.Request) (models.ChatRequest, bool) {
	var body models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Request body is too large", r))
			return models.ChatRequest{}, false
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return models.ChatRequest{}, false
	}

	req, err := services.NewChatRequest(body.UserText, body.ReferenceImages)
	if err != nil {
		handleServiceError(w, r, err)
		return models.ChatRequest{}, false
	}
	return req, true
}

// turnContext detaches the turn from the client connection: a turn in
// flight runs to completion or failure, bounded only by the timeout.
func (h *ChatHandler) turnContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
}

func (h *ChatHandler) publish(ctx context.Context, eventType string, conversationID uuid.UUID, msg models.ChatMessage) {
	if h.events == nil {
		return
	}
	err := h.events.Publish(ctx, models.WSMessage{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        msg,
	})
	if err != nil {
		h.log.Warn("failed to publish update", sl.Err(err), slog.String("type", eventType))
	}
}
