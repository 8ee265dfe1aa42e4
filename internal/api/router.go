package api

import (
	"log/slog"
	"net/http"
	"time"

	"users_sheet/internal/api/handler"
	"users_sheet/internal/api/middleware"
	"users_sheet/internal/api/session"
	"users_sheet/internal/app/service"
	"users_sheet/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Paths are the redirect targets used by access gating.
type Paths struct {
	SignIn       string
	AccessDenied string
}

func NewRouter(
	authService *service.AuthService,
	adminService *service.AdminService,
	sessions *session.Manager,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	paths Paths,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.Metrics(m))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(sessions.Verifier())
		r.Use(sessions.Load)

		accountHandler := handler.NewAccountHandler(authService)
		r.Route("/account", accountHandler.RegisterRoutes)

		gate := middleware.NewGate(sessions, authService, paths.SignIn, paths.AccessDenied, logger)
		sheetHandler := handler.NewSheetHandler(adminService)
		r.Route("/sheet", func(r chi.Router) {
			r.Use(gate.RequireActive)
			sheetHandler.RegisterRoutes(r)
		})
	})

	return r
}
