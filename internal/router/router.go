package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"immerse-backend/internal/handlers"
	"immerse-backend/internal/middleware"
	"immerse-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	sessionHandler *handlers.SessionHandler,
	contentHandler *handlers.ContentHandler,
	wsHub *websocket.Hub,
	submitLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session creation limiter (30 req/min per IP)
	createLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Content Routes (public) ────
		r.Get("/content/supported-formats", contentHandler.SupportedFormats)

		// ──── Session Routes ────
		r.With(createLimiter.Middleware).Post("/sessions", sessionHandler.Create)

		r.Route("/session", func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.Delete)
			r.Put("/source", sessionHandler.SelectSource)
			r.Put("/youtube-url", sessionHandler.SetYouTubeURL)
			r.Post("/file", sessionHandler.UploadFile)
			r.Put("/theme", sessionHandler.ToggleTheme)
			r.With(submitLimiter.Middleware).Post("/submit", sessionHandler.Submit)
			r.Get("/history", sessionHandler.History)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
