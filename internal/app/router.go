package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/tutorhub/tutorhub/internal/agents"
	"github.com/tutorhub/tutorhub/internal/courses"
	"github.com/tutorhub/tutorhub/internal/modules"
	"github.com/tutorhub/tutorhub/internal/observability"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/tokens"
	"github.com/tutorhub/tutorhub/internal/universities"
	"github.com/tutorhub/tutorhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	Auth                *principal.Middleware
	UniversitiesHandler *universities.Handler
	CoursesHandler      *courses.Handler
	ModulesHandler      *modules.Handler
	AgentsHandler       *agents.Handler
	TokensHandler       *tokens.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(params.Auth.Require)

		if params.UniversitiesHandler != nil {
			api.Route("/universities", params.UniversitiesHandler.MountRoutes)
		}
		if params.CoursesHandler != nil {
			api.Route("/courses", params.CoursesHandler.MountRoutes)
		}
		if params.ModulesHandler != nil {
			api.Route("/modules", params.ModulesHandler.MountRoutes)
		}
		if params.AgentsHandler != nil {
			api.Route("/agents", params.AgentsHandler.MountRoutes)
		}
		if params.TokensHandler != nil {
			api.Route("/tokens", params.TokensHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	// Widget validation is unauthenticated and rate limited per client IP.
	r.Route("/widget", func(widget chi.Router) {
		limit, window := widgetRate(params.Config)
		widget.Use(httprate.Limit(limit, window, httprate.WithKeyFuncs(httprate.KeyByIP)))
		if params.TokensHandler != nil {
			params.TokensHandler.MountWidgetRoutes(widget)
		}
	})

	return r
}

func widgetRate(cfg *Config) (int, time.Duration) {
	limit, window := 120, time.Minute
	if cfg != nil && cfg.WidgetRateLimit > 0 {
		limit = cfg.WidgetRateLimit
	}
	if cfg != nil && cfg.WidgetRateWindow > 0 {
		window = cfg.WidgetRateWindow
	}
	return limit, window
}
