package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/models"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/conversations/{id}/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/conversations/" + id + "/ws"
}

func TestHub_LocalBroadcast(t *testing.T) {
	id := uuid.New()
	hub := NewHub(nil, func(c uuid.UUID) bool { return c == id }, nil)
	srv := newTestServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id.String()), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(id) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Connection was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	err = hub.Publish(context.Background(), models.WSMessage{
		Type:           models.EventMessageAdded,
		ConversationID: id,
		Payload:        map[string]string{"text": "hello"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.WSMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Type != models.EventMessageAdded || got.ConversationID != id {
		t.Errorf("Unexpected message %+v", got)
	}
}

func TestHub_RejectsUnknownConversation(t *testing.T) {
	hub := NewHub(nil, func(uuid.UUID) bool { return false }, nil)
	srv := newTestServer(t, hub)

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"invalid id", "not-a-uuid", 400},
		{"unknown id", uuid.New().String(), 404},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tc.id), nil)
			if err == nil {
				t.Fatal("Expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Errorf("Expected status %d, got %v", tc.status, resp)
			}
		})
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	err := hub.Publish(context.Background(), models.WSMessage{Type: models.EventMessageUpdated, ConversationID: uuid.New()})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func dial(t *testing.T, srv *httptest.Server, id uuid.UUID) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id.String()), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_StalledClientDoesNotBlockPublish(t *testing.T) {
	stalled, other := uuid.New(), uuid.New()
	hub := NewHub(nil, nil, nil)
	srv := newTestServer(t, hub)

	dial(t, srv, stalled) // never read from
	reader := dial(t, srv, other)
	waitFor(t, "both sockets to register", func() bool {
		return hub.ConnectionCount(stalled) == 1 && hub.ConnectionCount(other) == 1
	})

	big := strings.Repeat("x", 512<<10)
	start := time.Now()
	for i := 0; i < 128; i++ {
		err := hub.Publish(context.Background(), models.WSMessage{
			Type:           models.EventMessageUpdated,
			ConversationID: stalled,
			Payload:        map[string]string{"text": big},
		})
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected publishing to a non-reading socket not to block, took %v", elapsed)
	}

	start = time.Now()
	err := hub.Publish(context.Background(), models.WSMessage{
		Type:           models.EventMessageAdded,
		ConversationID: other,
		Payload:        map[string]string{"text": "hello"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected publish to another conversation to return promptly, took %v", elapsed)
	}

	reader.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.WSMessage
	if err := reader.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.ConversationID != other {
		t.Errorf("Expected event for %s, got %+v", other, got)
	}

	waitFor(t, "the stalled socket to be dropped", func() bool {
		return hub.ConnectionCount(stalled) == 0
	})
	if hub.ConnectionCount(other) != 1 {
		t.Errorf("Expected the reading socket to stay connected, got %d", hub.ConnectionCount(other))
	}
}

func TestHub_RedisPubSub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	id := uuid.New()
	hub := NewHub(rdb, func(c uuid.UUID) bool { return c == id }, nil)
	srv := newTestServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id.String()), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	channel := channelName(id)
	waitFor(t, "the pub/sub subscription", func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	})
	if !hub.subscriptionActive(id) {
		t.Fatal("Expected subscription to be tracked")
	}

	err = hub.Publish(context.Background(), models.WSMessage{
		Type:           models.EventMessageAdded,
		ConversationID: id,
		Payload:        map[string]string{"text": "via redis"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.WSMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Type != models.EventMessageAdded || got.ConversationID != id {
		t.Errorf("Unexpected message %+v", got)
	}
	payload, _ := got.Payload.(map[string]interface{})
	if payload["text"] != "via redis" {
		t.Errorf("Expected payload text 'via redis', got %v", got.Payload)
	}

	conn.Close()
	waitFor(t, "the last socket to unregister", func() bool {
		return hub.ConnectionCount(id) == 0 && !hub.subscriptionActive(id)
	})
	waitFor(t, "the pub/sub subscription to end", func() bool {
		return mr.PubSubNumSub(channel)[channel] == 0
	})
}

func TestHub_RedisPublishError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	hub := NewHub(rdb, nil, nil)
	err := hub.Publish(context.Background(), models.WSMessage{Type: models.EventMessageAdded, ConversationID: uuid.New()})
	if err == nil {
		t.Error("Expected error when Redis is unreachable, got nil")
	}
}
