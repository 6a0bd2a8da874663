package classify

import (
	"reflect"
	"testing"

	"github.com/kordite/switchboard/internal/signature"
	"github.com/kordite/switchboard/internal/taxonomy"
)

func testClassifier() *Classifier {
	return New(taxonomy.Builtin(), 0.35, Policy{FastPath: 0.85, Fallback: 0.4})
}

func TestClassify_ArchetypeShortCircuit(t *testing.T) {
	c := testClassifier()

	res := c.Classify(signature.Normalize("Design a LOGIN system"))

	if res.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 for archetype match", res.Confidence)
	}
	if !contains(res.Systems, "authentication") {
		t.Errorf("Systems = %v, want authentication included", res.Systems)
	}
	if res.NeedsLLMVerification {
		t.Error("archetype match must not require verification")
	}
	if len(res.ArchetypeMatched) != 1 || res.ArchetypeMatched[0] != "login-system-design" {
		t.Errorf("ArchetypeMatched = %v, want [login-system-design]", res.ArchetypeMatched)
	}
	if res.Pattern != "login-system-design" {
		t.Errorf("Pattern = %q, want login-system-design", res.Pattern)
	}
	if res.State != StateAccepted {
		t.Errorf("State = %s, want accepted", res.State)
	}
}

func TestClassify_ArchetypeTokenSetMatch(t *testing.T) {
	c := testClassifier()

	// Same words, different order: near-exact still short-circuits.
	res := c.Classify("a login system design")
	if res.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 for token-set archetype match", res.Confidence)
	}
}

func TestClassify_ZeroEvidence(t *testing.T) {
	c := testClassifier()

	res := c.Classify("purple monkey dishwasher quux")

	if len(res.Systems) != 0 || len(res.Domains) != 0 || len(res.BEClusters) != 0 || len(res.SEClusters) != 0 {
		t.Errorf("expected empty result sets, got %+v", res)
	}
	if res.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", res.Confidence)
	}
	if !res.NeedsLLMVerification {
		t.Error("zero-evidence result must set needs_llm_verification")
	}
	if res.State != StateUnclassified {
		t.Errorf("State = %s, want unclassified", res.State)
	}
	if res.Systems == nil || res.Domains == nil {
		t.Error("result sets must be empty slices, never nil")
	}
}

func TestClassify_EmptyQuery(t *testing.T) {
	c := testClassifier()

	res := c.Classify("")
	if res.Confidence != 0 || !res.NeedsLLMVerification {
		t.Errorf("empty query must be zero-evidence, got confidence=%v", res.Confidence)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := testClassifier()

	a := c.Classify("how do i secure the payment api against injection")
	b := c.Classify("how do i secure the payment api against injection")

	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated classification differs:\n%+v\n%+v", a, b)
	}
}

func TestClassify_ConfidenceIsMaxNotSum(t *testing.T) {
	c := testClassifier()

	// "database" scores data-engineering and persistence at 0.45 each and
	// "cache" scores caching at 0.5. The aggregate must be the max (0.5),
	// not any accumulation of the three.
	res := c.Classify("database cache")

	if res.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5 (max over included, not sum)", res.Confidence)
	}
	if !contains(res.BEClusters, "caching") || !contains(res.BEClusters, "persistence") {
		t.Errorf("BEClusters = %v, want caching and persistence", res.BEClusters)
	}
	if !contains(res.Domains, "data-engineering") {
		t.Errorf("Domains = %v, want data-engineering", res.Domains)
	}
}

func TestClassify_InclusionThreshold(t *testing.T) {
	c := testClassifier()

	// "event" alone gives messaging 0.6/2.0 = 0.3, below the 0.35 bar:
	// excluded from the sets but surfaced through suggested expansions.
	res := c.Classify("event driven design")

	if contains(res.BEClusters, "messaging") {
		t.Errorf("BEClusters = %v, messaging should be below inclusion", res.BEClusters)
	}
	want := []string{"dead letter", "kafka"}
	if !reflect.DeepEqual(res.SuggestedExpansions, want) {
		t.Errorf("SuggestedExpansions = %v, want %v", res.SuggestedExpansions, want)
	}
}

func TestEvaluate_TieBreakOrder(t *testing.T) {
	tax := &taxonomy.Taxonomy{
		Candidates: []taxonomy.Candidate{
			{
				ID: "zeta", Kind: taxonomy.KindSystem, Expected: 2.0,
				Keywords: []taxonomy.Keyword{{Phrase: "widget", Weight: 1.0}},
			},
			{
				ID: "alpha", Kind: taxonomy.KindDomain, Expected: 2.0,
				Keywords: []taxonomy.Keyword{{Phrase: "widget", Weight: 1.0}},
			},
			{
				ID: "mid", Kind: taxonomy.KindDomain, Expected: 2.0,
				Keywords: []taxonomy.Keyword{{Phrase: "widget", Weight: 0.5}, {Phrase: "gadget", Weight: 0.5}},
			},
		},
	}
	c := New(tax, 0.35, Policy{FastPath: 0.85, Fallback: 0.4})

	// All three tie on score 0.5; mid has two distinct matches and wins.
	// alpha/zeta still tie and fall back to lexicographic order.
	_, scored := c.Evaluate("widget gadget")

	if len(scored) != 3 {
		t.Fatalf("scored = %d candidates, want 3", len(scored))
	}
	if scored[0].ID != "mid" {
		t.Errorf("rank 0 = %s, want mid (more distinct matches)", scored[0].ID)
	}
	if scored[1].ID != "alpha" || scored[2].ID != "zeta" {
		t.Errorf("ranks 1,2 = %s,%s, want alpha,zeta (lexicographic)", scored[1].ID, scored[2].ID)
	}
}

func TestClassify_SaturationStaysBelowFullConfidence(t *testing.T) {
	c := testClassifier()

	// Stacking keywords past the denominator clamps at the keyword ceiling,
	// never at 1.0: full confidence always carries a cache or archetype
	// provenance marker, and this result has neither.
	res := c.Classify("security vulnerability encryption injection xss csrf")
	if res.Confidence != MaxKeywordConfidence {
		t.Errorf("Confidence = %v, want %v", res.Confidence, MaxKeywordConfidence)
	}
	if res.Confidence >= 1.0 {
		t.Error("keyword coverage must not reach full confidence")
	}
	if res.CacheHit || len(res.ArchetypeMatched) != 0 || res.Pattern != "" {
		t.Errorf("saturation carried a provenance marker: %+v", res)
	}
	if res.State != StateAccepted {
		t.Errorf("State = %s, want accepted", res.State)
	}
}

func TestPrimaryDomain(t *testing.T) {
	c := testClassifier()

	res, scored := c.Evaluate("database schema migration and sql consistency")
	if got := PrimaryDomain(res, scored); got != "data-engineering" {
		t.Errorf("PrimaryDomain = %q, want data-engineering", got)
	}

	// Without a score list (archetype/cache path) the first sorted domain wins.
	arch := c.Classify("design a login system")
	if got := PrimaryDomain(arch, nil); got != "backend-engineering" {
		t.Errorf("PrimaryDomain = %q, want backend-engineering", got)
	}

	if got := PrimaryDomain(emptyResult(), nil); got != "" {
		t.Errorf("PrimaryDomain of empty result = %q, want \"\"", got)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
