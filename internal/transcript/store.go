// Package transcript keeps per-conversation message lists in memory.
// Lists are append-only; the single permitted edit is resolving a pending
// assistant placeholder into its final content.
package transcript

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatroom-backend/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotPending           = errors.New("message is not pending")
)

type conversation struct {
	messages []models.ChatMessage
	index    map[uuid.UUID]int
}

type Store struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*conversation
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[uuid.UUID]*conversation),
		now:           time.Now,
	}
}

func (s *Store) Create() uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.conversations[id] = &conversation{index: make(map[uuid.UUID]int)}
	s.mu.Unlock()
	return id
}

func (s *Store) Exists(conversationID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conversations[conversationID]
	return ok
}

// Append assigns the message an ID and timestamp and adds it to the end of
// the conversation.
func (s *Store) Append(conversationID uuid.UUID, msg models.ChatMessage) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.ChatMessage{}, ErrConversationNotFound
	}

	msg.ID = uuid.New()
	msg.ConversationID = conversationID
	msg.Timestamp = s.now()
	msg.Images = slices.Clone(msg.Images)

	conv.index[msg.ID] = len(conv.messages)
	conv.messages = append(conv.messages, msg)
	return copyMessage(msg), nil
}

// Resolve replaces a pending placeholder with the assistant's response.
// A message can be resolved only once.
func (s *Store) Resolve(conversationID, messageID uuid.UUID, resp models.ChatResponse) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.ChatMessage{}, ErrConversationNotFound
	}
	i, ok := conv.index[messageID]
	if !ok {
		return models.ChatMessage{}, ErrMessageNotFound
	}

	msg := &conv.messages[i]
	if !msg.Pending {
		return models.ChatMessage{}, ErrNotPending
	}

	msg.Text = resp.ReplyText
	msg.ImageDataURI = resp.ImageDataURI
	msg.IsImageResult = resp.IsImageResult
	msg.Pending = false
	msg.Timestamp = s.now()

	return copyMessage(*msg), nil
}

func (s *Store) List(conversationID uuid.UUID) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	out := make([]models.ChatMessage, len(conv.messages))
	for i, m := range conv.messages {
		out[i] = copyMessage(m)
	}
	return out, nil
}

func copyMessage(m models.ChatMessage) models.ChatMessage {
	m.Images = slices.Clone(m.Images)
	return m
}
