// Package tools contains the concrete tools served by the registry: web
// search, data analysis, report generation, competitor analysis and trend
// analysis. Each tool is an independent type sharing only the tool.Tool
// contract.
package tools

import (
	"fmt"

	"github.com/coco-ai/tool-service/internal/llm"
	"github.com/coco-ai/tool-service/pkg/tool"
)

// Options configures tool construction.
type Options struct {
	SerperAPIKey string
	LLM          *llm.Client
}

// RegisterAll registers the standard tool set in its canonical order. Any
// registration failure is returned immediately; the caller treats it as
// fatal to startup.
func RegisterAll(registry *tool.Registry, opts Options) error {
	all := []tool.Tool{
		NewWebSearch(opts.SerperAPIKey),
		NewDataAnalysis(),
		NewReportGeneration(opts.LLM),
		NewCompetitorAnalysis(opts.LLM),
		NewTrendAnalysis(opts.LLM),
	}

	for _, t := range all {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", t.Name(), err)
		}
	}
	return nil
}
