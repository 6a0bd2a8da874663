package taxonomy

import (
	"sort"
	"testing"
)

func TestBuiltin_KnownIDs(t *testing.T) {
	tax := Builtin()

	for _, id := range []string{"authentication", "backend-engineering", "caching", "se-deployment"} {
		if tax.Find(id) == nil {
			t.Errorf("builtin taxonomy missing candidate %q", id)
		}
	}
	if tax.Find("no-such-candidate") != nil {
		t.Error("Find should return nil for unknown ids")
	}
}

func TestBuiltin_SortedAndFresh(t *testing.T) {
	tax := Builtin()

	if !sort.SliceIsSorted(tax.Candidates, func(i, j int) bool {
		return tax.Candidates[i].ID < tax.Candidates[j].ID
	}) {
		t.Error("candidates must be sorted by id for reproducible scoring")
	}

	// Mutating one copy must not leak into another.
	tax.Find("authentication").Keywords = nil
	if len(Builtin().Find("authentication").Keywords) == 0 {
		t.Error("Builtin must return a fresh copy each call")
	}
}

func TestBuiltin_ArchetypesNormalized(t *testing.T) {
	tax := Builtin()
	for _, a := range tax.Archetypes {
		if a.Query == "" {
			t.Errorf("archetype %s has empty query", a.ID)
		}
		if a.Query != lower(a.Query) {
			t.Errorf("archetype %s query not normalized: %q", a.ID, a.Query)
		}
	}
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestBuiltin_PositiveWeights(t *testing.T) {
	for _, c := range Builtin().Candidates {
		if c.Expected <= 0 {
			t.Errorf("candidate %s has non-positive expected denominator", c.ID)
		}
		for _, kw := range c.Keywords {
			if kw.Weight <= 0 || kw.Weight > 1.0 {
				t.Errorf("candidate %s keyword %q weight %v out of (0,1]", c.ID, kw.Phrase, kw.Weight)
			}
		}
	}
}
