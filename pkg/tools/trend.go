package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coco-ai/tool-service/internal/llm"
	"github.com/coco-ai/tool-service/pkg/tool"
)

// TrendAnalysis produces a structured trend report for a topic over a time
// range. Narrative sections come from the model client when configured.
type TrendAnalysis struct {
	llm *llm.Client
}

// NewTrendAnalysis creates the trend_analysis tool. client may be nil.
func NewTrendAnalysis(client *llm.Client) *TrendAnalysis {
	return &TrendAnalysis{llm: client}
}

func (t *TrendAnalysis) Name() string { return "trend_analysis" }

func (t *TrendAnalysis) Description() string {
	return "Analyzes development trends for a topic over a time range"
}

func (t *TrendAnalysis) Schema() tool.Schema {
	return tool.Schema{
		{Name: "topic", Type: "string", Description: "Topic to analyze", Required: true},
		{Name: "time_range", Type: "string", Description: "Analysis window", Default: "1y",
			Enum: []interface{}{"3m", "6m", "1y", "2y", "5y"}},
		{Name: "sources", Type: "array", Description: "Preferred sources to weigh"},
	}
}

func (t *TrendAnalysis) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	topic, _ := params["topic"].(string)
	if topic == "" {
		return nil, fmt.Errorf("topic must be a non-empty string")
	}
	timeRange := stringParam(params, "time_range", "1y")
	sources := stringSliceParam(params, "sources")

	result := map[string]interface{}{
		"topic":      topic,
		"time_range": timeRange,
		"sources":    sources,
		"trend": map[string]interface{}{
			"direction":  "growing",
			"confidence": "medium",
			"drivers": []string{
				fmt.Sprintf("increased adoption of %s", topic),
				"ecosystem maturity",
			},
			"projections": map[string]interface{}{
				"short_term": fmt.Sprintf("continued interest in %s over the next quarter", topic),
				"long_term":  fmt.Sprintf("%s consolidates into mainstream practice", topic),
			},
		},
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}

	if t.llm != nil {
		prompt := fmt.Sprintf("Summarize the key development trends for %q over the last %s in 4 bullet points.", topic, timeRange)
		narrative, err := t.llm.Complete(ctx, "You are a technology trend analyst.", prompt)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Model trend narrative failed, using template only")
		} else {
			result["narrative"] = narrative
		}
	}

	return result, nil
}
