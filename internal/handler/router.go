package handler

import (
	"net/http"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	jobHandler      *JobHandler
	callbackHandler *CallbackHandler
	healthHandler   *HealthHandler
	corsConfig      middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	jobHandler *JobHandler,
	callbackHandler *CallbackHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		jobHandler:      jobHandler,
		callbackHandler: callbackHandler,
		healthHandler:   healthHandler,
		corsConfig:      corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", rt.healthHandler.Health)
	mux.HandleFunc("GET /ready", rt.healthHandler.Ready)

	mux.HandleFunc("POST /api/v1/jobs", rt.jobHandler.Start)
	mux.HandleFunc("GET /api/v1/jobs", rt.jobHandler.List)
	mux.HandleFunc("GET /api/v1/jobs/{id}", rt.jobHandler.Get)
	mux.HandleFunc("POST "+config.CallbackPath, rt.callbackHandler.Receive)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}
