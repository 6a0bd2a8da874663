package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kordite/switchboard/internal/classify"
	"github.com/kordite/switchboard/internal/config"
	"github.com/kordite/switchboard/internal/constraint"
	"github.com/kordite/switchboard/internal/errors"
	"github.com/kordite/switchboard/internal/route"
	"github.com/kordite/switchboard/internal/signature"
	"github.com/kordite/switchboard/internal/store"
	"github.com/kordite/switchboard/internal/taxonomy"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	router     *route.Router
	classifier *classify.Classifier
	tax        *taxonomy.Taxonomy
	cfg        *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(router *route.Router, classifier *classify.Classifier, tax *taxonomy.Taxonomy, cfg *config.Config) *Handlers {
	return &Handlers{router: router, classifier: classifier, tax: tax, cfg: cfg}
}

// Request types for each tool

// ClassifyRequest represents the arguments for query_classify.
type ClassifyRequest struct {
	Query string `json:"query"`
}

// ExpansionsRequest represents the arguments for query_expansions.
type ExpansionsRequest struct {
	Query string `json:"query"`
}

// HistoryRequest represents the arguments for session_history.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// CacheLookupRequest represents the arguments for cache_lookup.
type CacheLookupRequest struct {
	Query string `json:"query"`
}

// Handler implementations

// HandleClassify handles the query_classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.router.Classify(ctx, input.Query)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExpansions handles the query_expansions tool call. It evaluates the
// query without persisting anything: no cache write, no history entry.
func (h *Handlers) HandleExpansions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExpansionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	normalized := signature.Normalize(input.Query)
	result := h.classifier.Classify(normalized)

	return successResult(map[string]any{
		"query":                input.Query,
		"normalized":           normalized,
		"suggested_expansions": result.SuggestedExpansions,
		"confidence":           result.Confidence,
		"state":                result.State,
	})
}

// HandleArchetypes handles the query_archetypes tool call.
func (h *Handlers) HandleArchetypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type archetype struct {
		ID         string   `json:"id"`
		Query      string   `json:"query"`
		Systems    []string `json:"systems,omitempty"`
		Domains    []string `json:"domains,omitempty"`
		BEClusters []string `json:"be_clusters,omitempty"`
		SEClusters []string `json:"se_clusters,omitempty"`
	}
	out := make([]archetype, 0, len(h.tax.Archetypes))
	for _, a := range h.tax.Archetypes {
		out = append(out, archetype{
			ID:         a.ID,
			Query:      a.Query,
			Systems:    a.Systems,
			Domains:    a.Domains,
			BEClusters: a.BEClusters,
			SEClusters: a.SEClusters,
		})
	}
	return successResult(map[string]any{"archetypes": out})
}

// HandleResolve handles the constraint_resolve tool call. The raw arguments
// object is handed to the resolver as-is: it already matches the wrapped
// input shape, and the resolver owns all shape handling.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := constraint.Resolve(raw)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the session_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	entries, err := h.router.History(ctx, input.Limit)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	if entries == nil {
		entries = make([]store.HistoryEntry, 0)
	}

	return successResult(map[string]any{"entries": entries})
}

// HandleTransitions handles the session_transitions tool call.
func (h *Handlers) HandleTransitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transitions, err := h.router.Transitions(ctx)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	if transitions == nil {
		transitions = make([]store.Transition, 0)
	}

	return successResult(map[string]any{"transitions": transitions})
}

// HandleCacheLookup handles the cache_lookup tool call.
func (h *Handlers) HandleCacheLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CacheLookupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sig, entry, err := h.router.CacheLookup(ctx, input.Query)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	if entry == nil {
		return errorResult(errors.NewNotFound(sig)), nil
	}

	return successResult(map[string]any{
		"signature": sig,
		"hit":       true,
		"entry":     entry,
	})
}

// HandleCacheStats handles the cache_stats tool call.
func (h *Handlers) HandleCacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.router.CacheStats(ctx)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}

	return successResult(stats)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sbErr, ok := err.(*errors.SwitchboardError); ok {
		errorObj := map[string]any{
			"code":    sbErr.Code,
			"message": sbErr.Message,
			"status":  sbErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if sbErr.Code != errors.ErrInternal && sbErr.Details != nil {
			errorObj["details"] = sbErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
