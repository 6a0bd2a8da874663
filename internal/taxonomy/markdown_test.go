package taxonomy

import (
	"strings"
	"testing"
)

const overlayDoc = `# Domain: ml-engineering

## Keywords

- training (0.9)
- inference
- feature store (0.8)

## Archetypes

- how do I serve a model in production

# System: authentication

## Keywords

- passkey (0.9)
`

func TestMergeOverlay_NewCandidate(t *testing.T) {
	tax := Builtin()
	if err := tax.MergeOverlay([]byte(overlayDoc)); err != nil {
		t.Fatalf("MergeOverlay failed: %v", err)
	}

	c := tax.Find("ml-engineering")
	if c == nil {
		t.Fatal("overlay candidate ml-engineering not registered")
	}
	if c.Kind != KindDomain {
		t.Errorf("Kind = %s, want %s", c.Kind, KindDomain)
	}
	if len(c.Keywords) != 3 {
		t.Fatalf("keywords = %d, want 3", len(c.Keywords))
	}

	byPhrase := map[string]float64{}
	for _, kw := range c.Keywords {
		byPhrase[kw.Phrase] = kw.Weight
	}
	if byPhrase["training"] != 0.9 {
		t.Errorf("training weight = %v, want 0.9", byPhrase["training"])
	}
	if byPhrase["inference"] != 1.0 {
		t.Errorf("inference weight = %v, want default 1.0", byPhrase["inference"])
	}
	if byPhrase["feature store"] != 0.8 {
		t.Errorf("feature store weight = %v, want 0.8", byPhrase["feature store"])
	}
}

func TestMergeOverlay_ExtendsExistingCandidate(t *testing.T) {
	tax := Builtin()
	before := len(tax.Find("authentication").Keywords)

	if err := tax.MergeOverlay([]byte(overlayDoc)); err != nil {
		t.Fatalf("MergeOverlay failed: %v", err)
	}

	c := tax.Find("authentication")
	if len(c.Keywords) != before+1 {
		t.Errorf("keywords = %d, want %d", len(c.Keywords), before+1)
	}
}

func TestMergeOverlay_Archetype(t *testing.T) {
	tax := Builtin()
	if err := tax.MergeOverlay([]byte(overlayDoc)); err != nil {
		t.Fatalf("MergeOverlay failed: %v", err)
	}

	var found bool
	for _, a := range tax.Archetypes {
		if a.Query == "how do i serve a model in production" {
			found = true
			if len(a.Domains) != 1 || a.Domains[0] != "ml-engineering" {
				t.Errorf("archetype domains = %v, want [ml-engineering]", a.Domains)
			}
		}
	}
	if !found {
		t.Error("overlay archetype not registered (query should be normalized)")
	}
}

func TestMergeOverlay_Idempotent(t *testing.T) {
	tax := Builtin()
	if err := tax.MergeOverlay([]byte(overlayDoc)); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	candidates, archetypes := len(tax.Candidates), len(tax.Archetypes)

	if err := tax.MergeOverlay([]byte(overlayDoc)); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if len(tax.Candidates) != candidates {
		t.Errorf("re-merge grew candidates: %d -> %d", candidates, len(tax.Candidates))
	}
	if len(tax.Archetypes) != archetypes {
		t.Errorf("re-merge grew archetypes: %d -> %d", archetypes, len(tax.Archetypes))
	}
	if kws := tax.Find("ml-engineering").Keywords; len(kws) != 3 {
		t.Errorf("re-merge duplicated keywords: %d, want 3", len(kws))
	}
}

func TestMergeOverlay_BadHeading(t *testing.T) {
	tax := Builtin()

	if err := tax.MergeOverlay([]byte("# Nonsense Heading\n\n## Keywords\n\n- x\n")); err == nil {
		t.Error("heading without kind prefix should error")
	}
	if err := tax.MergeOverlay([]byte("# Widget: thing\n")); err == nil {
		t.Error("unknown kind prefix should error")
	}
	if err := tax.MergeOverlay([]byte("# System: authentication\n\nconflicting kind below\n\n# Domain: authentication\n")); err == nil ||
		!strings.Contains(err.Error(), "already registered") {
		t.Errorf("kind conflict should error, got %v", err)
	}
}

func TestMergeOverlay_ListOutsideCandidateIgnored(t *testing.T) {
	tax := Builtin()
	before := len(tax.Candidates)
	if err := tax.MergeOverlay([]byte("- stray item\n- another\n")); err != nil {
		t.Fatalf("MergeOverlay failed: %v", err)
	}
	if len(tax.Candidates) != before {
		t.Error("stray lists must not create candidates")
	}
}
