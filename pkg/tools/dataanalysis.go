package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/coco-ai/tool-service/pkg/tool"
)

const highCorrelationThreshold = 0.7

// DataAnalysis runs statistical analysis over a list of records: descriptive
// statistics, per-column linear trend, Pearson correlation and multiple
// linear regression.
type DataAnalysis struct{}

// NewDataAnalysis creates the data_analysis tool.
func NewDataAnalysis() *DataAnalysis {
	return &DataAnalysis{}
}

func (t *DataAnalysis) Name() string { return "data_analysis" }

func (t *DataAnalysis) Description() string {
	return "Performs statistical analysis over tabular data"
}

func (t *DataAnalysis) Schema() tool.Schema {
	return tool.Schema{
		{Name: "data", Type: "array", Description: "Rows to analyze (objects keyed by column name)", Required: true},
		{Name: "analysis_type", Type: "string", Description: "Kind of analysis to run", Required: true,
			Enum: []interface{}{"descriptive", "trend", "correlation", "regression"}},
		{Name: "columns", Type: "array", Description: "Columns to analyze (defaults to all numeric columns)"},
	}
}

func (t *DataAnalysis) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	rows, ok := params["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("data must be an array of objects")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("data must not be empty")
	}
	analysisType, _ := params["analysis_type"].(string)
	requested := stringSliceParam(params, "columns")

	frame, err := buildFrame(rows)
	if err != nil {
		return nil, err
	}

	columns := requested
	if len(columns) == 0 {
		columns = frame.numericColumns()
	}
	for _, col := range columns {
		if _, ok := frame.missing[col]; !ok {
			return nil, fmt.Errorf("unknown column: %s", col)
		}
	}

	var result interface{}
	switch analysisType {
	case "descriptive":
		result = frame.describe(columns)
	case "trend":
		result = frame.trends(columns)
	case "correlation":
		result = frame.correlations(columns)
	case "regression":
		result, err = frame.regression(columns)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported analysis type: %s", analysisType)
	}

	return map[string]interface{}{
		"analysis_type": analysisType,
		"data_shape":    []int{len(rows), len(frame.order)},
		"result":        result,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// frame holds column-oriented numeric data extracted from the input rows.
// missing counts non-numeric or absent cells per column.
type frame struct {
	columns map[string][]float64
	missing map[string]int
	order   []string
	rows    int
}

func buildFrame(rows []interface{}) (*frame, error) {
	f := &frame{
		columns: make(map[string][]float64),
		missing: make(map[string]int),
		rows:    len(rows),
	}

	for i, raw := range rows {
		record, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d is not an object", i)
		}
		for key, value := range record {
			if _, seen := f.missing[key]; !seen {
				f.order = append(f.order, key)
				f.missing[key] = 0
			}
			if n, isNum := numberValue(value); isNum {
				f.columns[key] = append(f.columns[key], n)
			} else {
				f.missing[key]++
			}
		}
	}
	sort.Strings(f.order)
	return f, nil
}

func (f *frame) numericColumns() []string {
	out := []string{}
	for _, name := range f.order {
		if len(f.columns[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

func (f *frame) describe(columns []string) map[string]interface{} {
	summary := make(map[string]interface{}, len(columns))
	missing := make(map[string]int, len(columns))

	for _, col := range columns {
		values := f.columns[col]
		missing[col] = f.missing[col]
		if len(values) == 0 {
			continue
		}
		summary[col] = map[string]interface{}{
			"count": len(values),
			"mean":  mean(values),
			"std":   stddev(values),
			"min":   minOf(values),
			"max":   maxOf(values),
			"25%":   percentile(values, 0.25),
			"50%":   percentile(values, 0.5),
			"75%":   percentile(values, 0.75),
		}
	}

	return map[string]interface{}{
		"summary":        summary,
		"missing_values": missing,
	}
}

func (f *frame) trends(columns []string) map[string]interface{} {
	trends := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		values := f.columns[col]
		if len(values) < 2 {
			continue
		}
		slope, intercept := linearFit(values)
		direction := "decreasing"
		if slope > 0 {
			direction = "increasing"
		}
		trends[col] = map[string]interface{}{
			"slope":           slope,
			"intercept":       intercept,
			"trend_direction": direction,
		}
	}
	return map[string]interface{}{"trends": trends}
}

func (f *frame) correlations(columns []string) map[string]interface{} {
	matrix := make(map[string]interface{}, len(columns))
	high := []map[string]interface{}{}

	for i, a := range columns {
		row := make(map[string]interface{}, len(columns))
		for j, b := range columns {
			r := pearson(f.columns[a], f.columns[b])
			row[b] = r
			if j > i && math.Abs(r) >= highCorrelationThreshold {
				high = append(high, map[string]interface{}{
					"variable1":   a,
					"variable2":   b,
					"correlation": r,
				})
			}
		}
		matrix[a] = row
	}

	return map[string]interface{}{
		"correlation_matrix": matrix,
		"high_correlations":  high,
	}
}

// regression fits the last named column against the preceding ones by
// solving the normal equations.
func (f *frame) regression(columns []string) (map[string]interface{}, error) {
	if len(columns) < 2 {
		return nil, fmt.Errorf("regression analysis requires at least 2 columns")
	}

	dependent := columns[len(columns)-1]
	independents := columns[:len(columns)-1]

	y := f.columns[dependent]
	n := len(y)
	for _, col := range independents {
		if len(f.columns[col]) != n {
			return nil, fmt.Errorf("column %s has %d numeric values, expected %d", col, len(f.columns[col]), n)
		}
	}
	if n <= len(independents) {
		return nil, fmt.Errorf("not enough rows for regression: %d rows, %d predictors", n, len(independents))
	}

	// Design matrix with an intercept column.
	cols := len(independents) + 1
	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = make([]float64, cols)
		x[i][0] = 1
		for j, col := range independents {
			x[i][j+1] = f.columns[col][i]
		}
	}

	coefficients, err := solveNormalEquations(x, y)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"coefficients":          coefficients,
		"independent_variables": independents,
		"dependent_variable":    dependent,
	}, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func maxOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// linearFit returns the least-squares slope and intercept of values against
// their index.
func linearFit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, mean(values)
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]

	meanA, meanB := mean(a), mean(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		if &a[0] == &b[0] {
			return 1
		}
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// solveNormalEquations solves (XᵀX)β = Xᵀy by Gaussian elimination with
// partial pivoting.
func solveNormalEquations(x [][]float64, y []float64) ([]float64, error) {
	n := len(x)
	cols := len(x[0])

	xtx := make([][]float64, cols)
	xty := make([]float64, cols)
	for i := 0; i < cols; i++ {
		xtx[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			for k := 0; k < n; k++ {
				xtx[i][j] += x[k][i] * x[k][j]
			}
		}
		for k := 0; k < n; k++ {
			xty[i] += x[k][i] * y[k]
		}
	}

	for i := 0; i < cols; i++ {
		pivot := i
		for r := i + 1; r < cols; r++ {
			if math.Abs(xtx[r][i]) > math.Abs(xtx[pivot][i]) {
				pivot = r
			}
		}
		if math.Abs(xtx[pivot][i]) < 1e-12 {
			return nil, fmt.Errorf("regression matrix is singular")
		}
		xtx[i], xtx[pivot] = xtx[pivot], xtx[i]
		xty[i], xty[pivot] = xty[pivot], xty[i]

		for r := i + 1; r < cols; r++ {
			factor := xtx[r][i] / xtx[i][i]
			for c := i; c < cols; c++ {
				xtx[r][c] -= factor * xtx[i][c]
			}
			xty[r] -= factor * xty[i]
		}
	}

	beta := make([]float64, cols)
	for i := cols - 1; i >= 0; i-- {
		sum := xty[i]
		for c := i + 1; c < cols; c++ {
			sum -= xtx[i][c] * beta[c]
		}
		beta[i] = sum / xtx[i][i]
	}
	return beta, nil
}
