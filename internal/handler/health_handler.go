package handler

import (
	"context"
	"net/http"
	"time"
)

// StatusSource reports the state health output is built from
type StatusSource interface {
	Ping(ctx context.Context) error
	UnmatchedCallbacks() int64
}

// CircuitReporter reports the outbound circuit breaker state
type CircuitReporter interface {
	CircuitState() string
}

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	source    StatusSource
	circuit   CircuitReporter
	storeName string
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(source StatusSource, circuit CircuitReporter, storeName, version string) *HealthHandler {
	return &HealthHandler{
		source:    source,
		circuit:   circuit,
		storeName: storeName,
		startTime: time.Now(),
		version:   version,
	}
}

// StoreStatus describes the job store connection
type StoreStatus struct {
	Driver string `json:"driver"`
	Status string `json:"status"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status             string      `json:"status"`
	Version            string      `json:"version"`
	Timestamp          string      `json:"timestamp"`
	Store              StoreStatus `json:"store"`
	UptimeSeconds      int64       `json:"uptimeSeconds"`
	CircuitBreaker     string      `json:"circuitBreaker"`
	UnmatchedCallbacks int64       `json:"unmatchedCallbacks"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready bool        `json:"ready"`
	Store StoreStatus `json:"store"`
}

func (h *HealthHandler) storeStatus(ctx context.Context) (StoreStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.source.Ping(ctx); err != nil {
		return StoreStatus{Driver: h.storeName, Status: "disconnected"}, false
	}
	return StoreStatus{Driver: h.storeName, Status: "connected"}, true
}

// Health returns the service health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeStatus(r.Context())

	status := "healthy"
	if !ok {
		status = "degraded"
	}

	circuit := "unknown"
	if h.circuit != nil {
		circuit = h.circuit.CircuitState()
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             status,
		Version:            h.version,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		Store:              store,
		UptimeSeconds:      int64(time.Since(h.startTime).Seconds()),
		CircuitBreaker:     circuit,
		UnmatchedCallbacks: h.source.UnmatchedCallbacks(),
	})
}

// Ready returns the service readiness status
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeStatus(r.Context())

	statusCode := http.StatusOK
	if !ok {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{Ready: ok, Store: store})
}
