package classify

// Classifier provenance values for Result.Classifier.
const (
	// ClassifierFastPath marks results produced by the keyword/cache route.
	ClassifierFastPath = "fast-path"
	// ClassifierLLM marks results produced by an external LLM verification
	// pass. The core never emits this itself; it appears when a verified
	// result is written back into the cache or history by the caller.
	ClassifierLLM = "llm"
)

// Result is a single classification outcome. Created fresh per query;
// only the progressive booster mutates it afterwards (prior_boost, and the
// confidence/verification fields it is allowed to raise).
type Result struct {
	Systems    []string `json:"systems"`
	Domains    []string `json:"domains"`
	BEClusters []string `json:"be_clusters"`
	SEClusters []string `json:"se_clusters"`

	// Confidence is 1.0 only for cache hits and exact archetype matches;
	// otherwise it is a function of keyword coverage.
	Confidence float64 `json:"confidence"`

	Pattern              string   `json:"pattern,omitempty"`
	Classifier           string   `json:"classifier"`
	NeedsLLMVerification bool     `json:"needs_llm_verification"`
	ArchetypeMatched     []string `json:"archetype_matched"`
	PriorBoost           float64  `json:"prior_boost"`
	SuggestedExpansions  []string `json:"suggested_expansions"`

	// State is the escalation outcome: accepted, provisional, or
	// unclassified.
	State State `json:"state"`

	// CacheHit distinguishes "confidence 1.0 because the pattern cache
	// served it" from an archetype match, so validators can discount the
	// artificial certainty.
	CacheHit bool `json:"cache_hit,omitempty"`
}

// emptyResult returns a zero-evidence result: empty sets, confidence 0,
// verification required.
func emptyResult() *Result {
	return &Result{
		Systems:              make([]string, 0),
		Domains:              make([]string, 0),
		BEClusters:           make([]string, 0),
		SEClusters:           make([]string, 0),
		Classifier:           ClassifierFastPath,
		NeedsLLMVerification: true,
		ArchetypeMatched:     make([]string, 0),
		SuggestedExpansions:  make([]string, 0),
		State:                StateUnclassified,
	}
}
