package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"hocbai-backend/internal/handlers"
	"hocbai-backend/internal/middleware"
	"hocbai-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	messageHandler *handlers.MessageHandler,
	practiceHandler *handlers.PracticeHandler,
	jobHandler *handlers.JobHandler,
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

	// Session creation rate limiter (10 req/min per IP)
	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Anonymous session bootstrap (public)
		r.Group(func(r chi.Router) {
			r.Use(sessionLimiter.Middleware)
			r.Post("/session", sessionHandler.Create)
		})

		// Everything else requires a session token
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Middleware)

			r.Route("/chat", func(r chi.Router) {
				r.Post("/", chatHandler.Ask)
				r.Post("/photo", chatHandler.AskWithPhoto)
			})

			r.Get("/messages", messageHandler.List)

			r.Route("/practice", func(r chi.Router) {
				r.Post("/generate", practiceHandler.Generate)
				r.Get("/", practiceHandler.List)
				r.Get("/{id}", practiceHandler.Get)
			})

			r.Get("/jobs/{id}", jobHandler.Get)
		})

		// WebSocket (token via query param)
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
