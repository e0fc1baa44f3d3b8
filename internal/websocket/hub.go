package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/lib/sl"
	"chatroom-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func channelName(conversationID uuid.UUID) string {
	return "conversation_updates:" + conversationID.String()
}

const (
	// Time allowed to write one message to the peer.
	writeWait = 10 * time.Second

	// Events queued per socket before it is treated as stalled and dropped.
	sendBuffer = 32
)

// client is one socket. Only its writePump goroutine writes to conn.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *client) writePump(log *slog.Logger) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug("WebSocket write failed", sl.Err(err))
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub pushes transcript events to every socket watching a conversation.
// With a Redis client, events travel through pub/sub so any instance can
// publish; without one they are broadcast in-process.
type Hub struct {
	mu          sync.Mutex
	connections map[uuid.UUID][]*client
	redisClient *redis.Client
	cancelFuncs map[uuid.UUID]context.CancelFunc
	exists      func(uuid.UUID) bool
	log         *slog.Logger
}

func NewHub(redisClient *redis.Client, exists func(uuid.UUID) bool, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		redisClient: redisClient,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		exists:      exists,
		log:         log.With(sl.Module("websocket")),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}
	if h.exists != nil && !h.exists(conversationID) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", sl.Err(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.registerConnection(conversationID, c)
	go c.writePump(h.log)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(conversationID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Publish delivers an event to the conversation's subscribers. It never
// waits on socket I/O.
func (h *Hub) Publish(ctx context.Context, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal ws message: %w", err)
	}

	if h.redisClient != nil {
		if err := h.redisClient.Publish(ctx, channelName(msg.ConversationID), data).Err(); err != nil {
			return fmt.Errorf("publish ws message: %w", err)
		}
		return nil
	}

	h.broadcast(msg.ConversationID, data)
	return nil
}

func (h *Hub) ConnectionCount(conversationID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections[conversationID])
}

func (h *Hub) subscriptionActive(conversationID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.cancelFuncs[conversationID]
	return ok
}

func (h *Hub) registerConnection(conversationID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conversationID] = append(h.connections[conversationID], c)

	// Start pub/sub subscription on the first connection
	if h.redisClient != nil && len(h.connections[conversationID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[conversationID] = cancel
		go h.subscribeToPubSub(ctx, conversationID)
	}

	h.log.Info("WebSocket connected",
		slog.String("conversation", conversationID.String()),
		slog.Int("total", len(h.connections[conversationID])),
	)
}

func (h *Hub) unregisterConnection(conversationID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(conversationID, c) {
		h.log.Info("WebSocket disconnected", slog.String("conversation", conversationID.String()))
	}
}

// removeLocked drops c from the conversation and stops its writer. The
// pub/sub subscription ends with the last socket. Callers hold h.mu.
func (h *Hub) removeLocked(conversationID uuid.UUID, c *client) bool {
	c.close()

	conns := h.connections[conversationID]
	found := false
	for i, other := range conns {
		if other == c {
			h.connections[conversationID] = append(conns[:i:i], conns[i+1:]...)
			found = true
			break
		}
	}

	if len(h.connections[conversationID]) == 0 {
		delete(h.connections, conversationID)
		if cancel, ok := h.cancelFuncs[conversationID]; ok {
			cancel()
			delete(h.cancelFuncs, conversationID)
		}
	}
	return found
}

func (h *Hub) subscribeToPubSub(ctx context.Context, conversationID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(conversationID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(conversationID, []byte(msg.Payload))
		}
	}
}

// broadcast queues data on every socket of the conversation. A socket
// whose queue is full is dropped.
func (h *Hub) broadcast(conversationID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range slices.Clone(h.connections[conversationID]) {
		select {
		case c.send <- data:
		default:
			h.log.Warn("WebSocket client too slow, dropping", slog.String("conversation", conversationID.String()))
			h.removeLocked(conversationID, c)
			c.conn.Close()
		}
	}
}
