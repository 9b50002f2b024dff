package api

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/api/handlers"
	mw "github.com/Harshitk-cp/mindkernel/internal/api/middleware"
	"github.com/Harshitk-cp/mindkernel/internal/buildconfig"
	"github.com/Harshitk-cp/mindkernel/internal/config"
	"github.com/Harshitk-cp/mindkernel/internal/kernel"
)

// App holds the router and the state shared by /health and /metrics.
type App struct {
	Router  *chi.Mux
	kernel  *kernel.Kernel
	metrics *mw.MetricsCollector
	logger  *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewApp(k *kernel.Kernel, cfg *config.Config, logger *zap.Logger) *App {
	memoryHandler := handlers.NewMemoryHandler(k.Pipeline)
	experienceHandler := handlers.NewExperienceHandler(k.Pipeline)
	personaHandler := handlers.NewPersonaHandler(k.Pipeline)
	cognitionHandler := handlers.NewCognitionHandler(k.Pipeline)
	decisionHandler := handlers.NewDecisionHandler(k.Pipeline)
	pipelineHandler := handlers.NewPipelineHandler(k.Pipeline)
	jobHandler := handlers.NewJobHandler(k.Scheduler)
	auditHandler := handlers.NewAuditHandler(k.Audit)

	r := chi.NewRouter()
	app := &App{
		Router:  r,
		kernel:  k,
		metrics: mw.NewMetricsCollector(),
		logger:  logger,
		done:    make(chan struct{}),
	}

	// Order matters: the request id must exist before logging.
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, app.done))

	r.Get("/health", app.healthHandler())
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.BearerAuth(cfg.APIToken))

		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.Create)
			r.Get("/", memoryHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memoryHandler.GetByID)
				r.Post("/experience", memoryHandler.ToExperience)
			})
		})

		r.Route("/experiences", func(r chi.Router) {
			r.Get("/", experienceHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", experienceHandler.GetByID)
				r.Post("/cognition", experienceHandler.ToCognition)
				r.Post("/blocked-decision", experienceHandler.BlockedDecision)
			})
		})

		r.Route("/personas", func(r chi.Router) {
			r.Get("/", personaHandler.List)
			r.Put("/{id}", personaHandler.Upsert)
			r.Get("/{id}", personaHandler.GetByID)
		})

		r.Route("/cognitions", func(r chi.Router) {
			r.Post("/", cognitionHandler.Create)
			r.Get("/", cognitionHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cognitionHandler.GetByID)
				r.Post("/decision", cognitionHandler.ToDecision)
			})
		})

		r.Route("/decisions", func(r chi.Router) {
			r.Get("/", decisionHandler.List)
			r.Get("/{id}", decisionHandler.GetByID)
		})

		r.Post("/pipeline/full-path", pipelineHandler.FullPath)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobHandler.Enqueue)
			r.Post("/pull", jobHandler.Pull)
			r.Get("/stats", jobHandler.Stats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", jobHandler.GetByID)
				r.Post("/ack", jobHandler.Ack)
				r.Post("/fail", jobHandler.Fail)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", auditHandler.List)
			r.Get("/verify", auditHandler.Verify)
			r.Get("/replay/{type}/{id}", auditHandler.Replay)
		})
	})

	return app
}

// Close stops the rate limiter's cleanup goroutine.
func (app *App) Close() {
	app.closeOnce.Do(func() { close(app.done) })
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.kernel.Store.Ping(r.Context()); err != nil {
			app.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		snap := app.metrics.Snapshot()
		response := map[string]any{
			"uptime_seconds": snap.Uptime.Seconds(),
			"uptime_human":   snap.Uptime.Round(time.Second).String(),
			"request_count":  snap.Requests,
			"error_count":    snap.Errors,
			"in_flight":      snap.InFlight,
			"routes":         snap.Routes,
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		stats, err := app.kernel.Scheduler.Stats(r.Context())
		if err != nil {
			app.logger.Warn("scheduler stats unavailable", zap.Error(err))
		} else {
			response["scheduler"] = stats
		}

		writeJSON(w, http.StatusOK, response)
	}
}
