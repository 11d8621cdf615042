package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labforge/pkg/agent"
	"github.com/labforge/labforge/pkg/config"
	"github.com/labforge/labforge/pkg/linter"
	"github.com/labforge/labforge/pkg/llm"
	"github.com/labforge/labforge/pkg/models"
	"github.com/labforge/labforge/pkg/pipeline"
	"github.com/labforge/labforge/pkg/registry"
	"github.com/labforge/labforge/pkg/runner"
	"github.com/labforge/labforge/pkg/services"
	"github.com/labforge/labforge/pkg/validator"
)

// newTestServer builds a server whose pipelines block in the Planner so labs
// stay observable in planner_running.
func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()

	cfg := config.Default()
	reg := registry.New(8)

	blocked := llm.GenerateFunc(func(ctx context.Context, system string, conversation []llm.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	lint := &linter.FakeClient{}
	driver := pipeline.NewDriver(
		reg,
		agent.NewPlanner(blocked, reg, cfg.MaxPlannerTurns, 0, cfg.UserReplyTimeout),
		agent.NewDesigner(blocked, lint, 0, false),
		agent.NewAuthor(blocked, lint, 0, false),
		agent.NewAnalyzer(blocked, 0),
		validator.New(&runner.FakeClient{}, runner.NewMemStore(), time.Millisecond),
		cfg,
	)
	svc := services.NewLabService(reg, driver)
	return NewServer(svc, []string{"*"}), reg
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func createLab(t *testing.T, s *Server, prompt string) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/labs/create",
		`{"prompt":"`+prompt+`","dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CreateLabResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.LabID)
	return resp.LabID
}

func TestCreateLabEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/labs/create",
		`{"prompt":"Build a 2-router static-routing lab","dry_run":true,"enable_rca":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CreateLabResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.LabID)
	assert.Equal(t, models.StatusPlannerRunning, resp.Status)
}

func TestCreateLabValidation(t *testing.T) {
	s, _ := newTestServer(t)

	// Nine characters.
	rec := do(t, s, http.MethodPost, "/api/labs/create", `{"prompt":"too short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "validation failed", errResp.Error)
	assert.Contains(t, errResp.Detail, "prompt")

	// Ten characters.
	rec = do(t, s, http.MethodPost, "/api/labs/create", `{"prompt":"ten chars!"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateLabMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/labs/create", `{"prompt": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid request body", errResp.Error)
}

func TestPostMessageEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	labID := createLab(t, s, "teach static routing basics")

	rec := do(t, s, http.MethodPost, "/api/labs/"+labID+"/message", `{"content":"2 routers"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "message_received", resp.Status)
	assert.Equal(t, models.StatusPlannerRunning, resp.ConversationStatus)
}

func TestPostMessageErrors(t *testing.T) {
	s, reg := newTestServer(t)
	labID := createLab(t, s, "teach static routing basics")

	rec := do(t, s, http.MethodPost, "/api/labs/unknown/message", `{"content":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/labs/"+labID+"/message", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, reg.Mutate(labID, func(lab *models.Lab) {
		lab.Status = models.StatusCompleted
	}))
	rec = do(t, s, http.MethodPost, "/api/labs/"+labID+"/message", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLabEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	labID := createLab(t, s, "teach static routing basics")

	for _, path := range []string{"/api/labs/" + labID, "/api/labs/" + labID + "/status"} {
		rec := do(t, s, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, labID, body["lab_id"])
		assert.Contains(t, body, "status")
		assert.Contains(t, body, "conversation")
		assert.Contains(t, body, "progress")
		assert.Contains(t, body, "current_agent")
		assert.NotContains(t, body, "pending_messages")
	}

	rec := do(t, s, http.MethodGet, "/api/labs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLabsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	first := createLab(t, s, "teach static routing basics")
	second := createLab(t, s, "teach OSPF multi-area design")

	rec := do(t, s, http.MethodGet, "/api/labs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var labs []models.LabSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &labs))
	require.Len(t, labs, 2)
	assert.Equal(t, second, labs[0].LabID)
	assert.Equal(t, first, labs[1].LabID)
}

func TestCancelLabEndpoint(t *testing.T) {
	s, reg := newTestServer(t)
	labID := createLab(t, s, "teach static routing basics")

	rec := do(t, s, http.MethodPost, "/api/labs/"+labID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Wait until the pipeline lands in failed, then cancelling conflicts.
	require.Eventually(t, func() bool {
		snap, err := reg.Get(labID)
		return err == nil && snap.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)

	rec = do(t, s, http.MethodPost, "/api/labs/"+labID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/labs/unknown/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/labs", nil)
	req.Header.Set("Origin", "https://labs.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight.
	req = httptest.NewRequest(http.MethodOptions, "/api/labs/create", nil)
	req.Header.Set("Origin", "https://labs.example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSRestrictedOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	s.corsOrigins = []string{"https://allowed.example.com"}

	req := httptest.NewRequest(http.MethodGet, "/api/labs", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://allowed.example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://allowed.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
