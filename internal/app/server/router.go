package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/domain/leave"
	"trainerleave/internal/domain/notifications"
	"trainerleave/internal/platform/config"
	"trainerleave/internal/platform/metrics"
	audithandler "trainerleave/internal/transport/http/handlers/audit"
	authhandler "trainerleave/internal/transport/http/handlers/auth"
	jobshandler "trainerleave/internal/transport/http/handlers/jobs"
	leavehandler "trainerleave/internal/transport/http/handlers/leave"
	notificationshandler "trainerleave/internal/transport/http/handlers/notifications"
	"trainerleave/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps lists what the HTTP surface needs; Services satisfies it in production.
type RouterDeps struct {
	Leave         *leave.Service
	Directory     leavehandler.TrainerDirectory
	Notifications *notifications.Service
	Registry      *notifications.Registry
	Auth          authhandler.TokenIssuer
	Runner        jobshandler.Runner
	Runs          jobshandler.RunHistory
	Metrics       *metrics.Collector
	Ready         Pinger
}

func (s *Services) RouterDeps() RouterDeps {
	return RouterDeps{
		Leave:         s.Leave,
		Directory:     s.Directory,
		Notifications: s.Notifications,
		Registry:      s.Registry,
		Auth:          s.Auth,
		Runner:        s.Runner,
		Runs:          s.Runs,
		Metrics:       s.Metrics,
		Ready:         s.Pool,
	}
}

func NewRouter(cfg config.Config, deps RouterDeps) http.Handler {
	perms := auth.StaticPermissions{}

	var recorder middleware.RequestRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Total-Count"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JSONBody(maxBodyBytes))
		r.Use(middleware.MutationRateLimit(60, time.Minute))

		if cfg.Environment != "production" && deps.Auth != nil {
			authhandler.NewHandler(deps.Auth, cfg.AccessTokenTTL).RegisterRoutes(r)
		}

		leavehandler.NewHandler(deps.Leave, deps.Directory, perms).RegisterRoutes(r)
		audithandler.NewHandler(deps.Leave, perms).RegisterRoutes(r)
		jobshandler.NewHandler(deps.Runner, deps.Runs, perms).RegisterRoutes(r)
		notificationshandler.NewHandler(deps.Notifications, deps.Registry, perms, cfg.StreamHeartbeat).RegisterRoutes(r)
	})

	return router
}
