// Package handler exposes the receipt service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/polischuks/checkbox/internal/metrics"
	"github.com/polischuks/checkbox/internal/middleware"
	"github.com/polischuks/checkbox/internal/service"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the collaborators of the HTTP layer. Auth, Receipts and
// Sessions are required.
type Config struct {
	Auth     *service.AuthService
	Receipts *service.ReceiptService
	Sessions middleware.SessionResolver
	Health   Pinger
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Handler serves the REST API.
type Handler struct {
	auth     *service.AuthService
	receipts *service.ReceiptService
	health   Pinger
	logger   *slog.Logger
}

// NewRouter builds the chi router with all routes and middleware.
// Trailing slashes are optional on every route.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		auth:     cfg.Auth,
		receipts: cfg.Receipts,
		health:   cfg.Health,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger, cfg.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(chimw.StripSlashes)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not Found", logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", logger)
	})

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Post("/register", h.Register)
	r.Post("/token", h.Token)

	r.Route("/receipts", func(r chi.Router) {
		r.Get("/public/{id}", h.GetPublicReceipt)
		r.Get("/{id}/text", h.GetReceiptText)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.Sessions, logger))
			r.Post("/", h.CreateReceipt)
			r.Get("/", h.ListReceipts)
			r.Get("/{id}", h.GetReceipt)
		})
	})

	return r
}

// Healthz reports whether the store is reachable.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			respondWithError(w, http.StatusServiceUnavailable, "Database unavailable", h.logger)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}
