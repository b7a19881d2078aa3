package ops

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/levkhmelev/psy-support-bot/internal/config"
	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/metrics"
)

// ReadinessChecker сообщает о готовности хранилища.
type ReadinessChecker func() error

// NewRouter собирает маршруты служебного сервера.
func NewRouter(log *slog.Logger, ready ReadinessChecker, gatherer prometheus.Gatherer) chi.Router {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	router.Get("/health", healthHandler(log, ready))
	router.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	return router
}

// NewServer оборачивает маршруты в http.Server с таймаутами из конфига.
func NewServer(cfg config.OpsServer, log *slog.Logger, ready ReadinessChecker, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      NewRouter(log, ready, gatherer),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func healthHandler(log *slog.Logger, ready ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ready(); err != nil {
			log.Error("health check failed", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, Error("storage is not ready"))
			return
		}

		w.WriteHeader(http.StatusOK)
		render.JSON(w, r, StatusOKWithData(map[string]any{
			"status": "ok",
		}))
	}
}
