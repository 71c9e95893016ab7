package api

import (
	"net/http"
	"time"

	// Registers the generated OpenAPI document with swaggo.
	_ "chatstore/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates the chi router with every route of the service.
func NewRouter(chatHandler *ChatHandler, streamHandler *StreamHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Liveness probe for container orchestration.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// JSON routes get a request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/chats", chatHandler.GetChats)
			r.Post("/chats", chatHandler.CreateChat)
			r.Delete("/chats", chatHandler.DeleteChat)
			r.Get("/chats/{chatID}", chatHandler.GetChat)
			r.Put("/chats/{chatID}", chatHandler.SaveChat)
			r.Delete("/chats/{chatID}", chatHandler.DeleteChat)
			r.Post("/chats/{chatID}/messages", chatHandler.AppendMessage)
			r.Get("/chats/{chatID}/streams", chatHandler.GetStreams)
		})

		// Streaming routes hold the connection open and must not time out.
		r.Group(func(r chi.Router) {
			r.Post("/chat", streamHandler.HandleChat)
			r.Get("/chat/{chatID}/stream", streamHandler.HandleResume)
		})
	})

	return r
}
