package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/personachat/backend/internal/config"
	"github.com/personachat/backend/internal/handler/chat"
	chatService "github.com/personachat/backend/internal/service/chat"
)

// NewRouter wires HTTP routes to the orchestrator.
func NewRouter(chatSvc *chatService.Service, corsCfg config.CORSConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{corsCfg.Origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	chatHandler := chat.New(chatSvc)
	chatHandler.RegisterRoutes(r)

	return r
}
