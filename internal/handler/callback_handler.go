package handler

import (
	"io"
	"net/http"

	"github.com/dandantas/boomerang/internal/service"
)

// CallbackHandler receives workflow callbacks
type CallbackHandler struct {
	lifecycle *service.Lifecycle
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(lifecycle *service.Lifecycle) *CallbackHandler {
	return &CallbackHandler{lifecycle: lifecycle}
}

// Receive handles POST /api/v1/callbacks. The body is passed through raw;
// the normalizer decides what it means.
func (h *CallbackHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ack, err := h.lifecycle.Reconcile(r.Context(), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ack)
}
