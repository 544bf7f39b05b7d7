package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/model"
)

// TriggerRequest carries one job to the external workflow
type TriggerRequest struct {
	JobID       string
	Target      string
	Credential  string
	CallbackURL string
}

// Dispatcher sends the outbound trigger for each job. The workflow defers
// the real work and calls back later, so a client-side timeout counts as a
// successful hand-off.
type Dispatcher struct {
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
	url            string
	timeout        time.Duration
	params         map[string]string
	headers        map[string]string
}

// NewDispatcher creates a trigger dispatcher
func NewDispatcher(cfg config.TriggerConfig) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		circuitBreaker: NewCircuitBreaker(),
		url:            cfg.URL,
		timeout:        cfg.Timeout,
		params:         cfg.Params,
		headers:        cfg.Headers,
	}
}

// Trigger posts the job to the workflow. It returns nil when the workflow
// accepted the job or the call timed out, and an ErrDispatchFailure
// otherwise.
func (d *Dispatcher) Trigger(ctx context.Context, req TriggerRequest) error {
	if !d.circuitBreaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping trigger",
			"job_id", req.JobID,
			"circuit_state", d.circuitBreaker.State().String(),
		)
		return fmt.Errorf("%w: circuit breaker is open", model.ErrDispatchFailure)
	}

	start := time.Now()
	statusCode, err := d.send(ctx, req)
	duration := time.Since(start)

	switch {
	case err == nil:
		slog.Info("Trigger accepted",
			"job_id", req.JobID,
			"status_code", statusCode,
			"duration_ms", duration.Milliseconds(),
		)
		d.circuitBreaker.RecordSuccess()
		return nil

	case isTimeout(err):
		slog.Info("Trigger timed out, treating as handed off",
			"job_id", req.JobID,
			"duration_ms", duration.Milliseconds(),
		)
		d.circuitBreaker.RecordSuccess()
		return nil

	default:
		slog.Error("Trigger failed",
			"job_id", req.JobID,
			"status_code", statusCode,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		d.circuitBreaker.RecordFailure()
		return fmt.Errorf("%w: %v", model.ErrDispatchFailure, err)
	}
}

func (d *Dispatcher) payload(req TriggerRequest) map[string]interface{} {
	body := make(map[string]interface{}, len(d.params)+4)
	for k, v := range d.params {
		body[k] = v
	}

	body["jobId"] = req.JobID
	body["url"] = req.Target
	body["callbackUrl"] = req.CallbackURL
	if req.Credential != "" {
		body["sessionCookie"] = req.Credential
	}
	return body
}

// send performs the single trigger attempt
func (d *Dispatcher) send(ctx context.Context, req TriggerRequest) (int, error) {
	payloadBytes, err := json.Marshal(d.payload(req))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, d.url, bytes.NewReader(payloadBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range d.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Read response body (limit to 1KB)
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Debug("Trigger rejected", "job_id", req.JobID, "response_body", string(bodyBytes))
		return resp.StatusCode, fmt.Errorf("trigger returned status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// CircuitState reports the breaker state for health output
func (d *Dispatcher) CircuitState() string {
	return d.circuitBreaker.State().String()
}
