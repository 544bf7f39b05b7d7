package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dandantas/boomerang/internal/model"
	"github.com/dandantas/boomerang/internal/service"
)

// JobHandler handles job start, poll and listing
type JobHandler struct {
	lifecycle *service.Lifecycle
}

// NewJobHandler creates a new job handler
func NewJobHandler(lifecycle *service.Lifecycle) *JobHandler {
	return &JobHandler{lifecycle: lifecycle}
}

// JobListResponse represents a list of jobs
type JobListResponse struct {
	Jobs  []model.JobView `json:"jobs"`
	Total int             `json:"total"`
}

// Start handles POST /api/v1/jobs
func (h *JobHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.lifecycle.Start(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, summary)
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	view, err := h.lifecycle.Status(r.Context(), jobID)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "job not found", JobID: jobID})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// List handles GET /api/v1/jobs?status=
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(model.StatusProcessing)
	}

	views, err := h.lifecycle.ListByStatus(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, JobListResponse{Jobs: views, Total: len(views)})
}
