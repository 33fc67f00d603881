package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/laminex-bi/laminex-bi/internal/observability"
	"github.com/laminex-bi/laminex-bi/internal/platform/httpx"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/jobs"

	kpihttp "github.com/laminex-bi/laminex-bi/internal/kpi/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	KPIHandler *kpihttp.Handler
	JobHandler *jobs.Handler
	Store      *source.Store
	Metrics    *observability.Metrics
}

// NewRouter constructs the chi.Router for the KPI service.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	if params.Logger == nil {
		params.Logger = slog.Default()
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Ready only once the first snapshot has loaded; a fresh deploy
	// serves 503 until the refresh job lands.
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if params.Store == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", "no snapshot store")
			return
		}
		snap, err := params.Store.Current(ctx)
		if err != nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", err.Error())
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"snapshot": snap.ID,
			"taken_at": snap.TakenAt.UTC().Format(time.RFC3339),
		})
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	guard := BasicAuth("", "")
	if params.Config != nil {
		guard = BasicAuth(params.Config.BasicAuthUser, params.Config.BasicAuthHash)
	}
	r.Group(func(r chi.Router) {
		r.Use(guard)
		if params.KPIHandler != nil {
			params.KPIHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
