package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eunoia-health/eunoia/internal/api"
	"github.com/eunoia-health/eunoia/internal/api/handlers"
	"github.com/eunoia-health/eunoia/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", cfg.ChatHandler.Chat)
		r.Post("/clear", cfg.ChatHandler.ClearHistory)
		r.Get("/history", cfg.ChatHandler.History)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", cfg.ChatHandler.ListConversations)
			r.Post("/", cfg.ChatHandler.CreateConversation)
			r.Get("/{conversationID}", cfg.ChatHandler.GetConversation)
			r.Delete("/{conversationID}", cfg.ChatHandler.DeleteConversation)
		})
	})

	return r
}
