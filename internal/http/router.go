package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// DefaultAuthRateLimit is the per-IP request budget per minute for the
// public auth routes.
const DefaultAuthRateLimit = 20

// RouterConfig collects the handlers mounted by NewRouter. Nil handlers are
// not mounted.
type RouterConfig struct {
	Auth         *AuthHandler
	Desks        *DeskHandler
	Skills       *SkillHandler
	Employees    *EmployeeHandler
	Images       *ImageHandler
	Reservations *ReservationHandler
	Users        *UserHandler
	Groups       *GroupHandler

	Authenticator Authenticator
	// Health reports whether the backing store is reachable.
	Health        func(ctx context.Context) error
	AuthRateLimit int
	Logger        *zap.Logger
}

// NewRouter builds the chi router for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	limit := cfg.AuthRateLimit
	if limit <= 0 {
		limit = DefaultAuthRateLimit
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(cfg.Health, logger))

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Group(func(r chi.Router) {
				r.Use(httprate.Limit(
					limit,
					time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				))
				r.Post("/auth/register", cfg.Auth.Register)
				r.Post("/auth/token", cfg.Auth.Token)
				r.Post("/auth/token/refresh", cfg.Auth.Refresh)
			})
		}

		if cfg.Authenticator == nil {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(cfg.Authenticator, logger))

			if h := cfg.Desks; h != nil {
				r.Route("/desks", func(r chi.Router) {
					r.Get("/", h.List)
					r.Post("/", h.Create)
					r.Get("/{deskID}", h.Get)
					r.Put("/{deskID}", h.Update)
					r.Delete("/{deskID}", h.Delete)
				})
			}

			if h := cfg.Skills; h != nil {
				r.Get("/skills", h.List)
				r.Post("/skills", h.Create)
				r.Delete("/skills/{skillID}", h.Delete)
			}

			if cfg.Employees != nil || cfg.Images != nil {
				r.Route("/employees", func(r chi.Router) {
					if h := cfg.Employees; h != nil {
						r.Get("/", h.List)
						r.Post("/", h.Create)
						r.Get("/export", h.Export)
						r.Get("/{employeeID}", h.Get)
						r.Put("/{employeeID}", h.Update)
						r.Delete("/{employeeID}", h.Delete)
						r.Post("/{employeeID}/move", h.Move)
					}
					if h := cfg.Images; h != nil {
						r.Get("/{employeeID}/images", h.List)
						r.Post("/{employeeID}/images", h.Upload)
						r.Put("/{employeeID}/images/{imageID}", h.Update)
						r.Delete("/{employeeID}/images/{imageID}", h.Delete)
						r.Get("/{employeeID}/images/{imageID}/content", h.Content)
					}
				})
			}

			if h := cfg.Reservations; h != nil {
				r.Route("/reservations", func(r chi.Router) {
					r.Get("/", h.List)
					r.Post("/", h.Create)
					r.Post("/series", h.CreateSeries)
					r.Get("/{reservationID}", h.Get)
					r.Delete("/{reservationID}", h.Delete)
				})
			}

			if h := cfg.Users; h != nil {
				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.List)
					r.Get("/{userID}", h.Get)
					r.Put("/{userID}", h.Update)
					r.Delete("/{userID}", h.Delete)
				})
			}

			if h := cfg.Groups; h != nil {
				r.Get("/groups", h.List)
			}
		})
	})

	return r
}

func healthHandler(check func(ctx context.Context) error, logger *zap.Logger) http.HandlerFunc {
	responder := newResponder(logger)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.loggerFor(r.Context()).Warn("health check failed", zap.Error(err))
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
