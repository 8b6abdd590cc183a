package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/coco-ai/tool-service/internal/history"
	"github.com/coco-ai/tool-service/pkg/tool"
)

// toolSummary is the introspection view of one tool in list responses.
type toolSummary struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
	Status      string                 `json:"status"`
}

// executeRequest is the POST /tools/{name}/execute body. The tool name comes
// from the URL; a tool_name in the body is ignored.
type executeRequest struct {
	Parameters map[string]interface{} `json:"parameters"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "tool-service is running",
		"version": s.options.Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"version":         s.options.Version,
		"uptime":          time.Since(s.startTime).Seconds(),
		"available_tools": s.registry.Names(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	descriptors := s.registry.List()

	tools := make([]toolSummary, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, toolSummary{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema.Doc(),
			Status:      "available",
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": tools,
		"count": len(tools),
	})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	t, ok := s.registry.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Tool not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        t.Name(),
		"description": t.Description(),
		"parameters":  t.Schema().Doc(),
		"json_schema": t.Schema().JSONSchemaDoc(),
		"status":      "available",
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req executeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), name, req.Parameters)
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Tool not found"})
			return
		}
		s.logger.Error().Err(err).Str("tool", name).Msg("Dispatch failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal Server Error"})
		return
	}

	// Failures are reported inside the envelope, not via the status code.
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	requests, err := decodeBatchBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	results := s.dispatcher.DispatchBatch(r.Context(), requests)

	if s.metrics != nil {
		s.metrics.RecordBatch(results)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Execution history is disabled"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := s.historyStore.Recent(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read execution history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal Server Error"})
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"executions": records,
		"count":      len(records),
	})
}

// decodeBody parses a JSON request body. An empty body is accepted and leaves
// the destination zero-valued.
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// decodeBatchBody accepts either a bare array of requests or an object with a
// "requests" field.
func decodeBatchBody(r *http.Request) ([]tool.Request, error) {
	defer r.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	var requests []tool.Request
	if err := json.Unmarshal(raw, &requests); err == nil {
		return requests, nil
	}

	var wrapped struct {
		Requests []tool.Request `json:"requests"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Requests != nil {
		return wrapped.Requests, nil
	}

	return nil, errors.New("body must be an array of tool requests")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
