package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(values ...map[string]interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func TestDataAnalysisDescriptive(t *testing.T) {
	da := NewDataAnalysis()

	result, err := da.Execute(context.Background(), map[string]interface{}{
		"data": rows(
			map[string]interface{}{"x": 1.0, "y": 10.0},
			map[string]interface{}{"x": 2.0, "y": 20.0},
			map[string]interface{}{"x": 3.0, "y": "n/a"},
		),
		"analysis_type": "descriptive",
	})
	require.NoError(t, err)

	out := result.(map[string]interface{})
	assert.Equal(t, "descriptive", out["analysis_type"])
	assert.Equal(t, []int{3, 2}, out["data_shape"])

	inner := out["result"].(map[string]interface{})
	summary := inner["summary"].(map[string]interface{})
	x := summary["x"].(map[string]interface{})
	assert.Equal(t, 3, x["count"])
	assert.InDelta(t, 2.0, x["mean"].(float64), 1e-9)
	assert.InDelta(t, 1.0, x["std"].(float64), 1e-9)
	assert.InDelta(t, 1.0, x["min"].(float64), 1e-9)
	assert.InDelta(t, 3.0, x["max"].(float64), 1e-9)

	missing := inner["missing_values"].(map[string]int)
	assert.Equal(t, 1, missing["y"])
	assert.Equal(t, 0, missing["x"])
}

func TestDataAnalysisTrend(t *testing.T) {
	da := NewDataAnalysis()

	result, err := da.Execute(context.Background(), map[string]interface{}{
		"data": rows(
			map[string]interface{}{"up": 1.0, "down": 9.0},
			map[string]interface{}{"up": 2.0, "down": 6.0},
			map[string]interface{}{"up": 3.0, "down": 3.0},
		),
		"analysis_type": "trend",
	})
	require.NoError(t, err)

	trends := result.(map[string]interface{})["result"].(map[string]interface{})["trends"].(map[string]interface{})

	up := trends["up"].(map[string]interface{})
	assert.InDelta(t, 1.0, up["slope"].(float64), 1e-9)
	assert.Equal(t, "increasing", up["trend_direction"])

	down := trends["down"].(map[string]interface{})
	assert.InDelta(t, -3.0, down["slope"].(float64), 1e-9)
	assert.Equal(t, "decreasing", down["trend_direction"])
}

func TestDataAnalysisCorrelation(t *testing.T) {
	da := NewDataAnalysis()

	result, err := da.Execute(context.Background(), map[string]interface{}{
		"data": rows(
			map[string]interface{}{"a": 1.0, "b": 2.0},
			map[string]interface{}{"a": 2.0, "b": 4.0},
			map[string]interface{}{"a": 3.0, "b": 6.0},
			map[string]interface{}{"a": 4.0, "b": 8.0},
		),
		"analysis_type": "correlation",
	})
	require.NoError(t, err)

	inner := result.(map[string]interface{})["result"].(map[string]interface{})
	matrix := inner["correlation_matrix"].(map[string]interface{})
	rowA := matrix["a"].(map[string]interface{})
	assert.InDelta(t, 1.0, rowA["b"].(float64), 1e-9)

	high := inner["high_correlations"].([]map[string]interface{})
	require.Len(t, high, 1)
	assert.Equal(t, "a", high[0]["variable1"])
	assert.Equal(t, "b", high[0]["variable2"])
}

func TestDataAnalysisRegression(t *testing.T) {
	da := NewDataAnalysis()

	// y = 2x + 1, exactly.
	result, err := da.Execute(context.Background(), map[string]interface{}{
		"data": rows(
			map[string]interface{}{"x": 0.0, "y": 1.0},
			map[string]interface{}{"x": 1.0, "y": 3.0},
			map[string]interface{}{"x": 2.0, "y": 5.0},
			map[string]interface{}{"x": 3.0, "y": 7.0},
		),
		"analysis_type": "regression",
		"columns":       []interface{}{"x", "y"},
	})
	require.NoError(t, err)

	inner := result.(map[string]interface{})["result"].(map[string]interface{})
	coeffs := inner["coefficients"].([]float64)
	require.Len(t, coeffs, 2)
	assert.InDelta(t, 1.0, coeffs[0], 1e-6, "intercept")
	assert.InDelta(t, 2.0, coeffs[1], 1e-6, "slope")
	assert.Equal(t, "y", inner["dependent_variable"])
	assert.Equal(t, []string{"x"}, inner["independent_variables"])
}

func TestDataAnalysisErrors(t *testing.T) {
	da := NewDataAnalysis()

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{
			name: "unsupported analysis type",
			params: map[string]interface{}{
				"data":          rows(map[string]interface{}{"x": 1.0}),
				"analysis_type": "clustering",
			},
		},
		{
			name: "data not an array",
			params: map[string]interface{}{
				"data":          "nope",
				"analysis_type": "descriptive",
			},
		},
		{
			name: "empty data",
			params: map[string]interface{}{
				"data":          []interface{}{},
				"analysis_type": "descriptive",
			},
		},
		{
			name: "unknown column",
			params: map[string]interface{}{
				"data":          rows(map[string]interface{}{"x": 1.0}),
				"analysis_type": "descriptive",
				"columns":       []interface{}{"ghost"},
			},
		},
		{
			name: "regression with one column",
			params: map[string]interface{}{
				"data":          rows(map[string]interface{}{"x": 1.0}, map[string]interface{}{"x": 2.0}),
				"analysis_type": "regression",
				"columns":       []interface{}{"x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := da.Execute(context.Background(), tt.params)
			assert.Error(t, err)
		})
	}
}
