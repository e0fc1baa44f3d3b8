package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxReferenceImages caps how many images a single turn may attach.
const MaxReferenceImages = 4

// Action is the routing tag the decision step assigns to a turn.
type Action string

const (
	ActionReply               Action = "reply"
	ActionGenerateOrEditImage Action = "generateOrEditImage"
	ActionDescribeImage       Action = "describeImage"
	ActionComposeLongForm     Action = "composeLongForm"
)

// Actions lists every valid action in prompt order.
var Actions = []Action{
	ActionReply,
	ActionGenerateOrEditImage,
	ActionDescribeImage,
	ActionComposeLongForm,
}

func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ChatRequest is one user turn: free-form text plus optional reference
// images encoded as data URIs.
type ChatRequest struct {
	UserText        string   `json:"text"`
	ReferenceImages []string `json:"images,omitempty"`
}

// HasImages reports whether the turn carries reference images.
func (r ChatRequest) HasImages() bool {
	return len(r.ReferenceImages) > 0
}

// RoutingDecision is the structured answer of the decision step.
type RoutingDecision struct {
	Action           Action `json:"action"`
	Text             string `json:"text,omitempty"`
	ImageInstruction string `json:"image_instruction,omitempty"`
	// UseReferenceImages is nil when the model did not say; attached
	// images are then carried forward.
	UseReferenceImages *bool `json:"use_reference_images,omitempty"`
}

// ChatResponse is the assistant's reply to exactly one ChatRequest.
type ChatResponse struct {
	ReplyText     string `json:"reply_text,omitempty"`
	ImageDataURI  string `json:"image_data_uri,omitempty"`
	IsImageResult bool   `json:"is_image_result"`
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is a transcript entry as the UI renders it.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	UserName       string    `json:"user_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	AvatarHint     string    `json:"avatar_hint,omitempty"`
	Text           string    `json:"text"`
	Images         []string  `json:"images,omitempty"`
	ImageDataURI   string    `json:"image_data_uri,omitempty"`
	IsImageResult  bool      `json:"is_image_result"`
	Pending        bool      `json:"pending"`
	Timestamp      time.Time `json:"timestamp"`
}

// Participant is a chat member shown in the participants panel.
type Participant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	AvatarHint    string `json:"avatar_hint,omitempty"`
	IsCurrentUser bool   `json:"is_current_user"`
	Status        string `json:"status"`
}

// SendMessageResponse is returned when a user posts into a conversation.
type SendMessageResponse struct {
	UserMessage      ChatMessage `json:"user_message"`
	AssistantMessage ChatMessage `json:"assistant_message"`
}

type ConversationResponse struct {
	ID       uuid.UUID     `json:"id"`
	Messages []ChatMessage `json:"messages"`
}
