package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chatroom-backend/internal/handlers"
	"chatroom-backend/internal/middleware"
	"chatroom-backend/internal/websocket"
)

// Inline reference images make chat bodies large.
const maxChatBody = 32 << 20

func New(
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/participants", chatHandler.Participants)

		// ──── Stateless Chat ────
		r.With(chimiddleware.RequestSize(maxChatBody)).Post("/chat", chatHandler.Chat)

		// ──── Conversation Routes ────
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", chatHandler.CreateConversation)
			r.Get("/{id}/messages", chatHandler.ListMessages)
			r.With(chimiddleware.RequestSize(maxChatBody)).Post("/{id}/messages", chatHandler.SendMessage)
			r.Get("/{id}/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
