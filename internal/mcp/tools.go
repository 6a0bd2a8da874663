package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Descriptions are what an MCP client's model sees when
// deciding which tool to call, so they state behavior, not implementation.

var classifyToolDef = mcp.NewTool("query_classify",
	mcp.WithDescription("Classify a free-text engineering query into systems, knowledge domains, and clusters. Returns confidence, escalation state, and whether LLM verification is needed. Repeated queries are served from the pattern cache."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The free-text query to classify."),
	),
)

var expansionsToolDef = mcp.NewTool("query_expansions",
	mcp.WithDescription("Suggest keywords that would strengthen a vague query. Read-only: does not touch the cache or session history."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The query to analyze for near-miss signals."),
	),
)

var archetypesToolDef = mcp.NewTool("query_archetypes",
	mcp.WithDescription("List the canonical example queries that short-circuit classification to full confidence."),
)

var resolveToolDef = mcp.NewTool("constraint_resolve",
	mcp.WithDescription("Detect and arbitrate conflicts among design constraints from multiple domains. Returns the resolved constraint set plus a conflict audit trail; unresolved conflicts are reported, never silently decided."),
	mcp.WithArray("constraints",
		mcp.Required(),
		mcp.Description("Constraint objects: {id?, source, target, value, priority_hint?}."),
		mcp.Items(map[string]any{"type": "object"}),
	),
)

var historyToolDef = mcp.NewTool("session_history",
	mcp.WithDescription("Return recent classification history, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum entries to return. 0 or omitted returns all."),
	),
)

var transitionsToolDef = mcp.NewTool("session_transitions",
	mcp.WithDescription("Return the domain-to-domain transition table, most frequent first."),
)

var cacheLookupToolDef = mcp.NewTool("cache_lookup",
	mcp.WithDescription("Look up a query's pattern-cache entry without classifying it. Read-only: no hit counting, no history."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The query whose signature to look up."),
	),
)

var cacheStatsToolDef = mcp.NewTool("cache_stats",
	mcp.WithDescription("Report pattern cache, history, and transition table statistics."),
)
