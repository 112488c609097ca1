package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pribylovaa/wedding-guestbook/internal/http/handlers"
	"github.com/pribylovaa/wedding-guestbook/internal/http/middleware"
	"github.com/pribylovaa/wedding-guestbook/internal/metrics"
	"github.com/pribylovaa/wedding-guestbook/internal/ratelimit"
)

// Классы маршрутов для лимитера.
const (
	PolicySubmit   = "submit"
	PolicyLike     = "like"
	PolicyModerate = "moderate"
	PolicyLogin    = "login"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	Timeout        time.Duration
	AllowedOrigins []string
	// TrustProxy — брать IP клиента из X-Forwarded-For/X-Real-IP (сервис за reverse proxy).
	TrustProxy bool
	Verifier   middleware.TokenVerifier
	Metrics    *metrics.Metrics
	// Limiters — лимитеры по классам маршрутов; отсутствующий класс не ограничивается.
	Limiters map[string]ratelimit.Limiter
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования: id попадает в логгер запроса
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
	)
	if opts.TrustProxy {
		root.Use(chimw.RealIP)
	}
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", handlers.HeaderClientID},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}
	if opts.Verifier != nil {
		root.Use(middleware.Auth(opts.Verifier))
	}

	registerRoutes(root, h, opts)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	limit := func(policy string) func(http.Handler) http.Handler {
		return middleware.RateLimit(policy, opts.Limiters[policy], opts.Metrics)
	}

	// auth
	r.With(limit(PolicyLogin)).Post("/auth/login", h.Login)

	// public guestbook
	r.Get("/messages", h.ListMessages)
	r.With(limit(PolicySubmit)).Post("/messages", h.SubmitMessage)
	r.With(limit(PolicyLike)).Post("/messages/{id}/like", h.LikeMessage)
	r.With(limit(PolicyLike)).Delete("/messages/{id}/like", h.UnlikeMessage)

	// operators
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireOperator(), limit(PolicyModerate))

		r.Get("/messages", h.AdminListMessages)
		r.Get("/messages/{id}", h.AdminGetMessage)
		r.Get("/stats", h.Stats)
		r.Post("/messages/bulk-moderate", h.BulkModerate)
		r.Post("/messages/{id}/moderate", h.ModerateMessage)
		r.Patch("/messages/{id}/highlight", h.HighlightMessage)
	})
}
