package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coco-ai/tool-service/internal/llm"
	"github.com/coco-ai/tool-service/pkg/tool"
)

// ReportGeneration renders research reports in markdown, HTML or JSON from a
// structured content object. With a model client configured it also produces
// an executive summary.
type ReportGeneration struct {
	llm *llm.Client
}

// NewReportGeneration creates the report_generation tool. client may be nil.
func NewReportGeneration(client *llm.Client) *ReportGeneration {
	return &ReportGeneration{llm: client}
}

func (t *ReportGeneration) Name() string { return "report_generation" }

func (t *ReportGeneration) Description() string {
	return "Generates research reports in markdown, HTML or JSON"
}

func (t *ReportGeneration) Schema() tool.Schema {
	return tool.Schema{
		{Name: "title", Type: "string", Description: "Report title", Required: true},
		{Name: "content", Type: "object", Description: "Report content sections", Required: true},
		{Name: "format", Type: "string", Description: "Output format", Default: "markdown",
			Enum: []interface{}{"markdown", "html", "json"}},
		{Name: "template", Type: "string", Description: "Report template", Default: "standard"},
	}
}

func (t *ReportGeneration) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	title, _ := params["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("title must be a non-empty string")
	}
	content, ok := params["content"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("content must be an object")
	}
	format := stringParam(params, "format", "markdown")
	template := stringParam(params, "template", "standard")

	now := time.Now().UTC()

	var rendered interface{}
	switch format {
	case "markdown":
		rendered = renderMarkdown(title, content, now)
	case "html":
		rendered = renderHTML(title, content, now)
	case "json":
		rendered = map[string]interface{}{
			"title":        title,
			"generated_at": now.Format(time.RFC3339),
			"template":     template,
			"content":      content,
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	result := map[string]interface{}{
		"title":        title,
		"format":       format,
		"template":     template,
		"content":      rendered,
		"generated_at": now.Format(time.RFC3339),
	}

	if t.llm != nil {
		summary, err := t.executiveSummary(ctx, title, content)
		if err != nil {
			// The report itself is still usable without the model summary.
			log.Warn().Err(err).Str("title", title).Msg("Executive summary generation failed")
		} else {
			result["executive_summary"] = summary
		}
	}

	return result, nil
}

func (t *ReportGeneration) executiveSummary(ctx context.Context, title string, content map[string]interface{}) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Write a concise executive summary (max 150 words) for a report titled %q with this content:\n%s", title, string(raw))
	return t.llm.Complete(ctx, "You are a research analyst summarizing reports.", prompt)
}

func renderMarkdown(title string, content map[string]interface{}, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Generated**: %s\n\n", now.Format("2006-01-02 15:04:05"))

	if summary, ok := content["summary"].(string); ok {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "%s\n\n", summary)
	}
	if findings := toStrings(content["findings"]); len(findings) > 0 {
		b.WriteString("## Key Findings\n\n")
		for i, finding := range findings {
			fmt.Fprintf(&b, "%d. %s\n", i+1, finding)
		}
		b.WriteString("\n")
	}
	if data, ok := content["data"]; ok {
		b.WriteString("## Data\n\n")
		raw, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintf(&b, "```json\n%s\n```\n\n", string(raw))
	}
	if conclusion, ok := content["conclusion"].(string); ok {
		b.WriteString("## Conclusion\n\n")
		fmt.Fprintf(&b, "%s\n\n", conclusion)
	}
	if recs := toStrings(content["recommendations"]); len(recs) > 0 {
		b.WriteString("## Recommendations\n\n")
		for i, rec := range recs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}
	return b.String()
}

func renderHTML(title string, content map[string]interface{}, now time.Time) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"UTF-8\">\n<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<p><strong>Generated</strong>: %s</p>\n", now.Format("2006-01-02 15:04:05"))

	if summary, ok := content["summary"].(string); ok {
		fmt.Fprintf(&b, "<h2>Summary</h2>\n<div class=\"summary\">%s</div>\n", html.EscapeString(summary))
	}
	if findings := toStrings(content["findings"]); len(findings) > 0 {
		b.WriteString("<h2>Key Findings</h2>\n<ul>\n")
		for _, finding := range findings {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(finding))
		}
		b.WriteString("</ul>\n")
	}
	if data, ok := content["data"]; ok {
		raw, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintf(&b, "<h2>Data</h2>\n<pre>%s</pre>\n", html.EscapeString(string(raw)))
	}
	if conclusion, ok := content["conclusion"].(string); ok {
		fmt.Fprintf(&b, "<h2>Conclusion</h2>\n<div class=\"conclusion\">%s</div>\n", html.EscapeString(conclusion))
	}
	if recs := toStrings(content["recommendations"]); len(recs) > 0 {
		b.WriteString("<h2>Recommendations</h2>\n<ul>\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(rec))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func toStrings(v interface{}) []string {
	out := []string{}
	switch items := v.(type) {
	case []string:
		out = append(out, items...)
	case []interface{}:
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
