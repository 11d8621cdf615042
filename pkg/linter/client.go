// Package linter provides the client interface to the external parser/linter
// service used to check topologies and device command sequences.
package linter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Issue is a single finding from a topology lint.
type Issue struct {
	Severity string `json:"severity"` // "error" or "warning"
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// CommandResult is the per-command outcome of a CLI lint.
type CommandResult struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// CLIOptions tune a CLI lint request.
type CLIOptions struct {
	// Strict rejects commands the linter cannot positively recognize.
	Strict bool `json:"strict,omitempty"`
}

// Client is the interface to the linter service. Calls are side-effect-free
// and retriable.
type Client interface {
	// LintTopology checks a topology description and returns its issues.
	LintTopology(ctx context.Context, topology string) ([]Issue, error)

	// LintCLI checks an ordered command sequence for the given platform.
	LintCLI(ctx context.Context, platform string, commands []string, opts CLIOptions) ([]CommandResult, error)
}

// HTTPClient talks to the linter service over JSON/HTTP.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient creates a linter client for the given endpoint
// (e.g. "http://linter:9000").
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type lintTopologyRequest struct {
	Topology string `json:"topology"`
}

type lintTopologyResponse struct {
	Issues []Issue `json:"issues"`
}

type lintCLIRequest struct {
	Platform string     `json:"platform"`
	Commands []string   `json:"commands"`
	Options  CLIOptions `json:"options"`
}

type lintCLIResponse struct {
	Results []CommandResult `json:"results"`
}

// LintTopology implements Client.
func (c *HTTPClient) LintTopology(ctx context.Context, topology string) ([]Issue, error) {
	var resp lintTopologyResponse
	if err := c.post(ctx, "/v1/lint/topology", lintTopologyRequest{Topology: topology}, &resp); err != nil {
		return nil, fmt.Errorf("lint topology: %w", err)
	}
	return resp.Issues, nil
}

// LintCLI implements Client.
func (c *HTTPClient) LintCLI(ctx context.Context, platform string, commands []string, opts CLIOptions) ([]CommandResult, error) {
	var resp lintCLIResponse
	req := lintCLIRequest{Platform: platform, Commands: commands, Options: opts}
	if err := c.post(ctx, "/v1/lint/cli", req, &resp); err != nil {
		return nil, fmt.Errorf("lint cli for %s: %w", platform, err)
	}
	return resp.Results, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("linter returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Errors filters issues down to error severity.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Severity == "error" {
			out = append(out, is)
		}
	}
	return out
}

// FailedCommands filters CLI results down to failures.
func FailedCommands(results []CommandResult) []CommandResult {
	var out []CommandResult
	for _, r := range results {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}
