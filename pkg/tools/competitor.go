package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coco-ai/tool-service/internal/llm"
	"github.com/coco-ai/tool-service/pkg/tool"
)

var defaultDimensions = []string{"product", "market", "strategy"}

// CompetitorAnalysis builds a structured competitive analysis for a company.
// The sections are synthesized templates; with a model client configured the
// narrative is produced by the model instead.
type CompetitorAnalysis struct {
	llm *llm.Client
}

// NewCompetitorAnalysis creates the competitor_analysis tool. client may be nil.
func NewCompetitorAnalysis(client *llm.Client) *CompetitorAnalysis {
	return &CompetitorAnalysis{llm: client}
}

func (t *CompetitorAnalysis) Name() string { return "competitor_analysis" }

func (t *CompetitorAnalysis) Description() string {
	return "Analyzes a company against its competitors across selected dimensions"
}

func (t *CompetitorAnalysis) Schema() tool.Schema {
	return tool.Schema{
		{Name: "company_name", Type: "string", Description: "Company to analyze", Required: true},
		{Name: "competitors", Type: "array", Description: "Competitor names"},
		{Name: "analysis_dimensions", Type: "array", Description: "Dimensions to cover",
			Default: []interface{}{"product", "market", "strategy"},
			Enum:    []interface{}{"product", "market", "strategy", "technology", "financial"}},
		{Name: "time_period", Type: "string", Description: "Analysis window", Default: "1y",
			Enum: []interface{}{"3m", "6m", "1y", "2y", "5y"}},
	}
}

func (t *CompetitorAnalysis) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	company, _ := params["company_name"].(string)
	if company == "" {
		return nil, fmt.Errorf("company_name must be a non-empty string")
	}
	competitors := stringSliceParam(params, "competitors")
	dimensions := stringSliceParam(params, "analysis_dimensions")
	if len(dimensions) == 0 {
		dimensions = defaultDimensions
	}
	timePeriod := stringParam(params, "time_period", "1y")

	analysis := map[string]interface{}{
		"company_overview":      t.overview(ctx, company),
		"competitor_comparison": compareCompetitors(company, competitors, dimensions),
		"market_position":       marketPosition(company, competitors),
		"swot_analysis":         swot(company),
		"recommendations":       competitorRecommendations(company, competitors),
	}

	return map[string]interface{}{
		"company_name":        company,
		"competitors":         competitors,
		"analysis_dimensions": dimensions,
		"time_period":         timePeriod,
		"analysis_result":     analysis,
		"generated_at":        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (t *CompetitorAnalysis) overview(ctx context.Context, company string) interface{} {
	if t.llm != nil {
		prompt := fmt.Sprintf("Give a brief, factual company overview of %s in 3 sentences.", company)
		text, err := t.llm.Complete(ctx, "You are a market research analyst.", prompt)
		if err == nil {
			return text
		}
		log.Warn().Err(err).Str("company", company).Msg("Model overview failed, using template")
	}
	return map[string]interface{}{
		"name":     company,
		"profile":  fmt.Sprintf("%s operates in a competitive market segment", company),
		"segments": []string{"core product line", "adjacent services"},
	}
}

func compareCompetitors(company string, competitors []string, dimensions []string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(competitors))
	for _, competitor := range competitors {
		scores := make(map[string]interface{}, len(dimensions))
		for _, dim := range dimensions {
			scores[dim] = fmt.Sprintf("%s and %s are comparable on %s", company, competitor, dim)
		}
		out = append(out, map[string]interface{}{
			"competitor": competitor,
			"dimensions": scores,
		})
	}
	return out
}

func marketPosition(company string, competitors []string) map[string]interface{} {
	return map[string]interface{}{
		"company":          company,
		"relative_to":      competitors,
		"position_summary": fmt.Sprintf("%s holds a defensible position among %d tracked competitors", company, len(competitors)),
	}
}

func swot(company string) map[string]interface{} {
	return map[string]interface{}{
		"strengths":     []string{fmt.Sprintf("%s brand recognition", company), "established distribution"},
		"weaknesses":    []string{"limited geographic reach"},
		"opportunities": []string{"adjacent market expansion"},
		"threats":       []string{"new entrants", "pricing pressure"},
	}
}

func competitorRecommendations(company string, competitors []string) []string {
	recs := []string{
		fmt.Sprintf("Monitor product releases from %s", strings.Join(competitors, ", ")),
		"Invest in differentiating capabilities",
	}
	if len(competitors) == 0 {
		recs[0] = "Identify and track primary competitors"
	}
	return recs
}
