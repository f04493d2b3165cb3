package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-mod-console/internal/config"
	"go-mod-console/internal/handler"
	"go-mod-console/internal/middleware"
	"go-mod-console/internal/websocket"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	sessionHandler *handler.SessionHandler,
	operationsHandler *handler.OperationsHandler,
	auditHandler *handler.AuditHandler,
	hub *websocket.Hub,
	healthCheck func() error,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if healthCheck != nil {
			if err := healthCheck(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unhealthy"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, w, r)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)
			auth.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Post("/register", authHandler.Register)
			auth.Post("/refresh", authHandler.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		api.Route("/sessions", func(sessions chi.Router) {
			sessions.Use(authMiddleware.RequireAuth)

			sessions.Post("/", sessionHandler.Create)

			sessions.Route("/{sessionID}", func(session chi.Router) {
				session.Delete("/", sessionHandler.Close)
				session.Put("/page", sessionHandler.SetPage)

				session.Get("/selection", sessionHandler.Selection)
				session.Post("/selection", sessionHandler.Select)
				session.Delete("/selection", sessionHandler.SelectNone)
				session.Delete("/selection/{recordID}", sessionHandler.Deselect)
				session.Post("/selection/toggle-page", sessionHandler.TogglePage)

				session.Get("/operations", operationsHandler.List)
				session.Get("/operations/history", operationsHandler.History)

				moderate := session.With(authMiddleware.RequireRoles("moderator", "admin"))
				moderate.Post("/operations/{kind}/start", operationsHandler.Start)
				moderate.Post("/operations/confirm", operationsHandler.Confirm)
				moderate.Post("/operations/cancel", operationsHandler.Cancel)
				moderate.Post("/operations/retry", operationsHandler.Retry)
			})
		})

		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Get("/audit", auditHandler.List)
	})

	return r
}
