package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/outrclub/outr-api/internal/middleware"
	"github.com/outrclub/outr-api/internal/ratelimit"
	"github.com/outrclub/outr-api/internal/service"
)

// RouterConfig carries the collaborators the HTTP API is built from.
type RouterConfig struct {
	Auth         *service.AuthService
	Profiles     *service.ProfileService
	Sessions     *service.SessionManager
	Limiter      *ratelimit.Limiter
	RateLimitMax int
}

// NewRouter builds the HTTP API. Every /api route passes the per-client
// rate limiter before anything else.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Auth)
	profileHandler := NewProfileHandler(cfg.Profiles)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Limiter, cfg.RateLimitMax))

		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(cfg.Sessions))

			r.Post("/auth/logout-all", authHandler.HandleLogoutAll)
			r.Post("/account/deactivate", authHandler.HandleDeactivate)
			r.Get("/me", authHandler.HandleMe)

			r.Get("/profile", profileHandler.HandleGetProfile)
			r.Put("/profile", profileHandler.HandleUpdateProfile)
			r.Get("/audit", profileHandler.HandleListAudit)
		})
	})

	return r
}

// HandleHealth handles GET /health requests.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "outr.club"})
}
