// Package api wires HTTP handlers, middleware and routes.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-settler/internal/api/handlers"
	"github.com/dvloznov/expense-settler/internal/api/middleware"
	"github.com/dvloznov/expense-settler/internal/jobs"
)

// RouterConfig holds everything the HTTP router serves.
type RouterConfig struct {
	Log         zerolog.Logger
	Runs        handlers.RunReader // nil disables run history
	Publisher   jobs.Publisher
	JobStore    jobs.JobStore
	APIKey      string
	CORSOrigins []string
}

// NewRouter builds the API handler with middleware applied.
func NewRouter(cfg RouterConfig) http.Handler {
	settleHandler := handlers.NewSettleHandler(cfg.Log)
	runsHandler := handlers.NewRunsHandler(cfg.Runs, cfg.Publisher, cfg.Log)
	jobsHandler := handlers.NewJobsHandler(cfg.JobStore, cfg.Log)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health check stays outside auth
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.Auth(cfg.APIKey))

	protected.HandleFunc("/settle", settleHandler.Settle).Methods(http.MethodPost)
	protected.HandleFunc("/runs", runsHandler.EnqueueRun).Methods(http.MethodPost)
	protected.HandleFunc("/runs", runsHandler.ListRuns).Methods(http.MethodGet)
	protected.HandleFunc("/runs/{id}", runsHandler.GetRun).Methods(http.MethodGet)
	protected.HandleFunc("/jobs", jobsHandler.ListJobs).Methods(http.MethodGet)
	protected.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods(http.MethodGet)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         3600,
	}).Handler(r)

	return middleware.Recovery(cfg.Log)(
		middleware.RequestID(
			middleware.Logger(cfg.Log)(corsHandler),
		),
	)
}
