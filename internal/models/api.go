package models

import "github.com/google/uuid"

// WebSocket event types.
const (
	EventMessageAdded   = "message_added"
	EventMessageUpdated = "message_updated"
)

type WSMessage struct {
	Type           string      `json:"type"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Payload        interface{} `json:"payload"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
