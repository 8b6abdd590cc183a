package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coco-ai/tool-service/internal/history"
	"github.com/coco-ai/tool-service/internal/metrics"
	"github.com/coco-ai/tool-service/pkg/tool"
)

type stubTool struct {
	name        string
	description string
	schema      tool.Schema
	execute     func(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.description }
func (s *stubTool) Schema() tool.Schema { return s.schema }
func (s *stubTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return s.execute(ctx, params)
}

func echoTool() tool.Tool {
	return &stubTool{
		name:        "echo",
		description: "Echoes the provided text",
		schema: tool.Schema{
			{Name: "text", Type: "string", Description: "Text to echo", Required: true},
		},
		execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"echoed": params["text"]}, nil
		},
	}
}

func failTool() tool.Tool {
	return &stubTool{
		name:        "explode",
		description: "Always fails",
		schema:      tool.Schema{},
		execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, errors.New("boom")
		},
	}
}

func newTestServer(t *testing.T) (*Server, *history.Store) {
	t.Helper()

	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(echoTool()))
	require.NoError(t, registry.Register(failTool()))

	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := metrics.NewMetrics()
	dispatcher := tool.NewDispatcher(registry, zerolog.Nop(),
		tool.WithObserver(m), tool.WithObserver(store))

	srv, err := NewServer(Config{
		Options:    Options{Version: "1.2.3", AllowedOrigins: []string{"*"}},
		Registry:   registry,
		Dispatcher: dispatcher,
		Metrics:    m,
		History:    store,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return srv, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec, body := doJSON(t, h, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	rec, body = doJSON(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	available := body["available_tools"].([]interface{})
	assert.Equal(t, []interface{}{"echo", "explode"}, available)
}

func TestListTools(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "GET", "/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tools, ok := body["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 2)

	first := tools[0].(map[string]interface{})
	assert.Equal(t, "echo", first["name"])
	assert.Equal(t, "available", first["status"])

	params := first["parameters"].(map[string]interface{})
	text := params["text"].(map[string]interface{})
	assert.Equal(t, "string", text["type"])
	assert.Equal(t, true, text["required"])
}

func TestGetTool(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec, body := doJSON(t, h, "GET", "/tools/echo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "echo", body["name"])
	assert.NotNil(t, body["json_schema"])

	rec, body = doJSON(t, h, "GET", "/tools/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Tool not found", body["detail"])
}

func TestExecuteSuccess(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/echo/execute", map[string]interface{}{
		"parameters": map[string]interface{}{"text": "hi"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Tool executed successfully", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "hi", data["echoed"])
	assert.GreaterOrEqual(t, body["execution_time"].(float64), 0.0)
}

func TestExecuteMissingParameter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/echo/execute", map[string]interface{}{
		"parameters": map[string]interface{}{},
	})
	// Validation failures travel inside the envelope with a 200.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Missing required parameter: text", body["message"])
	assert.Nil(t, body["data"])
}

func TestExecuteToolFailure(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/explode/execute", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Tool execution failed: boom", body["message"])
}

func TestExecuteUnknownToolIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/missing/execute", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Tool not found", body["detail"])
}

func TestExecuteInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/tools/echo/execute", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchMixedResults(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/batch", []map[string]interface{}{
		{"tool_name": "echo", "parameters": map[string]interface{}{"text": "a"}},
		{"tool_name": "missing", "parameters": map[string]interface{}{}},
		{"tool_name": "explode", "parameters": map[string]interface{}{}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 3)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "echo", first["tool_name"])
	assert.Equal(t, true, first["success"])
	assert.NotNil(t, first["execution_time"])

	second := results[1].(map[string]interface{})
	assert.Equal(t, "missing", second["tool_name"])
	assert.Equal(t, false, second["success"])
	assert.Equal(t, "Tool not found", second["error"])
	_, hasTime := second["execution_time"]
	assert.False(t, hasTime)

	third := results[2].(map[string]interface{})
	assert.Equal(t, false, third["success"])
	assert.Equal(t, "boom", third["error"])
	assert.NotNil(t, third["execution_time"])
}

func TestBatchWrappedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/batch", map[string]interface{}{
		"requests": []map[string]interface{}{
			{"tool_name": "echo", "parameters": map[string]interface{}{"text": "b"}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestBatchEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), "POST", "/tools/batch", []map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, results)
}

func TestExecutionsEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, "POST", "/tools/echo/execute", map[string]interface{}{
		"parameters": map[string]interface{}{"text": "hi"},
	})
	store.Flush()

	rec, body := doJSON(t, h, "GET", "/executions?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	executions, ok := body["executions"].([]interface{})
	require.True(t, ok)
	require.Len(t, executions, 1)

	entry := executions[0].(map[string]interface{})
	assert.Equal(t, "echo", entry["tool_name"])
	assert.Equal(t, true, entry["success"])
}

func TestExecutionsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doJSON(t, srv.Handler(), "GET", "/executions?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, "POST", "/tools/echo/execute", map[string]interface{}{
		"parameters": map[string]interface{}{"text": "hi"},
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tool_executions_total")
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec, _ := doJSON(t, h, "GET", "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, "fixed-id", rec2.Header().Get("X-Request-ID"))
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest("OPTIONS", "/tools", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestShutdownRejectsNewRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	srv.shutdownMu.Lock()
	srv.isShuttingDown = true
	srv.shutdownMu.Unlock()

	rec, _ := doJSON(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
