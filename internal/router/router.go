package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docchat/internal/handlers"
	"docchat/internal/middleware"
	"docchat/internal/websocket"
)

type Handlers struct {
	Documents *handlers.DocumentHandler
	Chat      *handlers.ChatHandler
	Hub       *websocket.Hub
}

// Limits are requests per minute per client IP.
type Limits struct {
	Upload int
	Chat   int
}

var DefaultLimits = Limits{Upload: 10, Chat: 60}

// Router is the HTTP handler for the server. Close releases the per-route
// rate limiters.
type Router struct {
	http.Handler
	limiters []*middleware.RateLimiter
}

func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}

func New(h Handlers, limits Limits, metrics *middleware.Metrics, gatherer prometheus.Gatherer) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)

	uploadLimiter := middleware.NewRateLimiter(limits.Upload, time.Minute)
	chatLimiter := middleware.NewRateLimiter(limits.Chat, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.With(uploadLimiter.Middleware).Post("/upload", h.Documents.Upload)
	r.With(chatLimiter.Middleware).Post("/chat", h.Chat.Chat)

	r.Get("/uploads/{filename}", h.Documents.ServeFile)
	r.Get("/documents/active", h.Documents.Active)
	r.Get("/formats", h.Documents.SupportedFormats)

	r.Get("/ws", h.Hub.HandleWebSocket)

	return &Router{Handler: r, limiters: []*middleware.RateLimiter{uploadLimiter, chatLimiter}}
}
