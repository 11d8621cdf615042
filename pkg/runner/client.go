// Package runner provides clients for the external headless-runner batch
// system and its artifact object store.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Execution states reported by the runner.
const (
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// ExecutionStats carries step counters from the runner.
type ExecutionStats struct {
	StepsPassed int `json:"steps_passed"`
	StepsTotal  int `json:"steps_total"`
}

// ExecutionStatus is the runner's view of one batch execution.
type ExecutionStatus struct {
	State string          `json:"state"`
	Stats *ExecutionStats `json:"stats,omitempty"`
}

// Terminal reports whether the execution has finished.
func (s ExecutionStatus) Terminal() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Client is the interface to the headless runner batch system.
type Client interface {
	// Submit starts a batch execution for the payload stored at payloadRef
	// in the artifact store and returns the execution ID.
	Submit(ctx context.Context, payloadRef string) (string, error)

	// Status returns the current state of an execution.
	Status(ctx context.Context, executionID string) (ExecutionStatus, error)
}

// HTTPClient talks to the runner service over JSON/HTTP.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient creates a runner client for the given endpoint.
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type submitRequest struct {
	PayloadRef string `json:"payload_ref"`
}

type submitResponse struct {
	ExecutionID string `json:"execution_id"`
}

// Submit implements Client.
func (c *HTTPClient) Submit(ctx context.Context, payloadRef string) (string, error) {
	body, err := json.Marshal(submitRequest{PayloadRef: payloadRef})
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/executions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit execution: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("runner returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.ExecutionID == "" {
		return "", errors.New("runner returned empty execution_id")
	}
	return out.ExecutionID, nil
}

// Status implements Client.
func (c *HTTPClient) Status(ctx context.Context, executionID string) (ExecutionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/executions/"+executionID, nil)
	if err != nil {
		return ExecutionStatus{}, fmt.Errorf("create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ExecutionStatus{}, fmt.Errorf("query execution %s: %w", executionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ExecutionStatus{}, fmt.Errorf("runner returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var out ExecutionStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ExecutionStatus{}, fmt.Errorf("decode status response: %w", err)
	}
	return out, nil
}
