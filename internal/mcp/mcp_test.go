package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/kordite/switchboard/internal/classify"
	"github.com/kordite/switchboard/internal/config"
	"github.com/kordite/switchboard/internal/errors"
	"github.com/kordite/switchboard/internal/route"
	"github.com/kordite/switchboard/internal/store"
	"github.com/kordite/switchboard/internal/taxonomy"
)

// testHandlers wires a full handler stack over an in-memory store.
func testHandlers(t *testing.T) *Handlers {
	t.Helper()
	cfg := config.DefaultConfig()
	tax := taxonomy.Builtin()
	classifier := classify.New(tax, cfg.InclusionThreshold,
		classify.Policy{FastPath: cfg.FastPathThreshold, Fallback: cfg.FallbackThreshold})
	router := route.New(classifier, store.NewMemory(), cfg, zap.NewNop())
	return NewHandlers(router, classifier, tax, cfg)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultPayload unmarshals the text content of a tool result.
func resultPayload(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v\n%s", err, text.Text)
	}
	return payload
}

func TestHandleClassify(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleClassify(context.Background(), makeRequest(map[string]any{
		"query": "design a login system",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	payload := resultPayload(t, res)
	if payload["confidence"].(float64) != 1.0 {
		t.Errorf("confidence = %v, want 1.0", payload["confidence"])
	}
	if payload["state"].(string) != "accepted" {
		t.Errorf("state = %v", payload["state"])
	}
	if payload["needs_llm_verification"].(bool) {
		t.Error("archetype match should not need verification")
	}
}

func TestHandleClassifyRejectsOversizedQuery(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleClassify(context.Background(), makeRequest(map[string]any{
		"query": strings.Repeat("a", h.cfg.MaxQueryChars+1),
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	payload := resultPayload(t, res)
	errObj := payload["error"].(map[string]any)
	if errObj["code"].(string) != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %v", errObj["code"])
	}
}

func TestHandleExpansionsIsReadOnly(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleExpansions(context.Background(), makeRequest(map[string]any{
		"query": "event driven design",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	payload := resultPayload(t, res)
	expansions := payload["suggested_expansions"].([]any)
	if len(expansions) == 0 {
		t.Error("expected expansion suggestions for a near-miss query")
	}

	// No history side effects.
	hres, err := h.HandleHistory(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	hpayload := resultPayload(t, hres)
	if entries := hpayload["entries"].([]any); len(entries) != 0 {
		t.Errorf("expansions leaked into history: %v", entries)
	}
}

func TestHandleResolve(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleResolve(context.Background(), makeRequest(map[string]any{
		"constraints": []any{
			map[string]any{"id": "c1", "source": "DB", "target": "consistency", "value": "strong"},
			map[string]any{"id": "c2", "source": "BE", "target": "consistency", "value": "eventual"},
		},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	payload := resultPayload(t, res)
	conflicts := payload["conflicts"].([]any)
	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %v", conflicts)
	}
	rec := conflicts[0].(map[string]any)
	if rec["resolution"].(string) != "resolved-priority" || rec["resolved_value"].(string) != "strong" {
		t.Errorf("arbitration wrong: %v", rec)
	}
	resolved := payload["resolved_set"].([]any)
	if len(resolved) != 1 {
		t.Errorf("resolved_set = %v", resolved)
	}
}

func TestHandleResolveUnparsableInput(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleResolve(context.Background(), makeRequest(map[string]any{
		"constraints": "not a list",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	payload := resultPayload(t, res)
	errObj := payload["error"].(map[string]any)
	if errObj["code"].(string) != string(errors.ErrUnparsableInput) {
		t.Errorf("code = %v", errObj["code"])
	}
	// Error results carry no conflicts/resolved_set fields.
	if _, ok := payload["conflicts"]; ok {
		t.Error("error payload should not contain conflicts")
	}
}

func TestHandleHistoryAndTransitions(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()

	for _, q := range []string{"backend api service", "security vulnerability audit"} {
		if _, err := h.HandleClassify(ctx, makeRequest(map[string]any{"query": q})); err != nil {
			t.Fatalf("classify %q: %v", q, err)
		}
	}

	hres, err := h.HandleHistory(ctx, makeRequest(map[string]any{"limit": 1}))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	entries := resultPayload(t, hres)["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %v", entries)
	}
	newest := entries[0].(map[string]any)
	if newest["query"].(string) != "security vulnerability audit" {
		t.Errorf("newest = %v", newest["query"])
	}

	tres, err := h.HandleTransitions(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("transitions: %v", err)
	}
	transitions := resultPayload(t, tres)["transitions"].([]any)
	if len(transitions) != 1 {
		t.Fatalf("transitions = %v", transitions)
	}
}

func TestHandleCacheLookupAndStats(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()

	miss, err := h.HandleCacheLookup(ctx, makeRequest(map[string]any{"query": "design a login system"}))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !miss.IsError {
		t.Fatal("expected NOT_FOUND before classification")
	}
	errObj := resultPayload(t, miss)["error"].(map[string]any)
	if errObj["code"].(string) != string(errors.ErrNotFound) {
		t.Errorf("code = %v", errObj["code"])
	}

	if _, err := h.HandleClassify(ctx, makeRequest(map[string]any{"query": "design a login system"})); err != nil {
		t.Fatalf("classify: %v", err)
	}

	hit, err := h.HandleCacheLookup(ctx, makeRequest(map[string]any{"query": "Design A Login System"}))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !resultPayload(t, hit)["hit"].(bool) {
		t.Fatal("expected cache hit after classification")
	}

	sres, err := h.HandleCacheStats(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	stats := resultPayload(t, sres)
	if stats["pattern_count"].(float64) != 1 {
		t.Errorf("pattern_count = %v", stats["pattern_count"])
	}
}

func TestDisabledToolsAndTypes(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"query_classify", "bogus_tool"}); len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown tools = %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"cache", "capsule"}); len(unknown) != 1 || unknown[0] != "capsule" {
		t.Errorf("unknown types = %v", unknown)
	}

	tools := ExpandTypesToTools([]string{"session"})
	want := map[string]bool{"session_history": true, "session_transitions": true}
	if len(tools) != len(want) {
		t.Fatalf("session tools = %v", tools)
	}
	for _, name := range tools {
		if !want[name] {
			t.Errorf("unexpected tool %q", name)
		}
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	h := testHandlers(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"cache_stats"}

	s := NewServer(h, cfg, "test")
	if s == nil {
		t.Fatal("nil server")
	}
}
