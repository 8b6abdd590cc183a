package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coco-ai/tool-service/pkg/tool"
)

func TestToolExecuted(t *testing.T) {
	m := NewMetrics()

	m.ToolExecuted(tool.Execution{
		ToolName:      "web_search",
		Success:       true,
		ExecutionTime: 0.25,
		Timestamp:     time.Now(),
	})
	m.ToolExecuted(tool.Execution{
		ToolName:      "web_search",
		Success:       false,
		ExecutionTime: 0.1,
		Timestamp:     time.Now(),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolExecutionsTotal.WithLabelValues("web_search", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolExecutionsTotal.WithLabelValues("web_search", "error")))
}

func TestRecordBatch(t *testing.T) {
	m := NewMetrics()
	elapsed := 0.05

	m.RecordBatch([]tool.BatchItem{
		{ToolName: "web_search", Success: true, ExecutionTime: &elapsed},
		{ToolName: "nope", Success: false},
		{ToolName: "data_analysis", Success: false, ExecutionTime: &elapsed},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRequestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItemsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItemsTotal.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItemsTotal.WithLabelValues("error")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("/tools", "GET", 200)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
