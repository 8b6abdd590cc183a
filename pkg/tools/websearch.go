package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coco-ai/tool-service/pkg/tool"
)

const serperBaseURL = "https://google.serper.dev"

// WebSearch performs web searches through the Serper API. Without an API key
// it returns deterministic mock results so the service stays usable in
// development.
type WebSearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewWebSearch creates the web_search tool.
func NewWebSearch(apiKey string) *WebSearch {
	return &WebSearch{
		apiKey:  apiKey,
		baseURL: serperBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (t *WebSearch) Name() string { return "web_search" }

func (t *WebSearch) Description() string {
	return "Performs a web search and returns ranked results"
}

func (t *WebSearch) Schema() tool.Schema {
	return tool.Schema{
		{Name: "query", Type: "string", Description: "Search query", Required: true},
		{Name: "num_results", Type: "integer", Description: "Number of results to return", Default: 10},
		{Name: "search_type", Type: "string", Description: "Kind of search to run", Default: "web",
			Enum: []interface{}{"web", "news", "academic"}},
	}
}

func (t *WebSearch) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query must be a non-empty string")
	}
	numResults := intParam(params, "num_results", 10)
	searchType := stringParam(params, "search_type", "web")

	var (
		results []map[string]interface{}
		err     error
	)
	if t.apiKey != "" {
		results, err = t.search(ctx, query, numResults, searchType)
		if err != nil {
			log.Error().Err(err).Str("query", query).Msg("Web search failed")
			return nil, err
		}
	} else {
		results = mockSearchResults(query, numResults)
	}

	return map[string]interface{}{
		"query":       query,
		"search_type": searchType,
		"num_results": len(results),
		"results":     results,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (t *WebSearch) search(ctx context.Context, query string, numResults int, searchType string) ([]map[string]interface{}, error) {
	endpoint := map[string]string{
		"web":      "/search",
		"news":     "/news",
		"academic": "/scholar",
	}[searchType]
	if endpoint == "" {
		endpoint = "/search"
	}

	body, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": numResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned %d: %s", resp.StatusCode, string(data))
	}

	var payload struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Source  string `json:"source"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]map[string]interface{}, 0, len(payload.Organic))
	for _, r := range payload.Organic {
		if len(results) >= numResults {
			break
		}
		results = append(results, map[string]interface{}{
			"title":   r.Title,
			"url":     r.Link,
			"snippet": r.Snippet,
			"source":  r.Source,
		})
	}
	return results, nil
}

func mockSearchResults(query string, numResults int) []map[string]interface{} {
	mock := []map[string]interface{}{
		{
			"title":   fmt.Sprintf("Result 1 - %s", query),
			"url":     "https://example.com/result1",
			"snippet": fmt.Sprintf("First mock result about %s", query),
			"source":  "example.com",
		},
		{
			"title":   fmt.Sprintf("Result 2 - %s", query),
			"url":     "https://example.com/result2",
			"snippet": fmt.Sprintf("Second mock result about %s", query),
			"source":  "example.com",
		},
	}
	if numResults <= 0 {
		return []map[string]interface{}{}
	}
	if numResults < len(mock) {
		return mock[:numResults]
	}
	return mock
}
