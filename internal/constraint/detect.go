package constraint

import (
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
)

// semanticRule declares two related targets and the value poles that
// contradict each other across them. Values are matched by substring so
// "synchronous_replication" satisfies the "synchronous" pole.
type semanticRule struct {
	targetA string
	targetB string
	polesA  []string
	polesB  []string
}

// topicAdjacency is the fixed table of related-target contradictions. Each
// entry encodes a known tension between design attributes; a pair of
// constraints triggers the rule only when both sides sit on opposing poles.
var topicAdjacency = []semanticRule{
	// Strong consistency and high availability pull against each other.
	{
		targetA: "consistency", polesA: []string{"strong", "linearizable", "serializable"},
		targetB: "availability", polesB: []string{"high", "always_on", "five_nines"},
	},
	// Synchronous durability work is incompatible with a hard low-latency bar.
	{
		targetA: "durability", polesA: []string{"synchronous", "fsync", "multi_region"},
		targetB: "latency", polesB: []string{"low", "sub_millisecond", "realtime", "real_time"},
	},
	// Server-held sessions contradict a stateless token strategy.
	{
		targetA: "session_storage", polesA: []string{"server_side", "sticky"},
		targetB: "auth_strategy", polesB: []string{"stateless", "jwt"},
	},
	// Aggressive caching contradicts a real-time freshness demand.
	{
		targetA: "caching", polesA: []string{"aggressive", "long_ttl"},
		targetB: "freshness", polesB: []string{"real_time", "realtime", "no_stale"},
	},
}

// DetectConflicts finds structural and semantic conflicts in a normalized
// constraint list. Output order is deterministic: structural records sorted
// by target, then semantic records sorted by participant ids. A constraint
// with no conflicting partner appears in no record at all.
func DetectConflicts(list []Constraint) []ConflictRecord {
	var records []ConflictRecord

	// Structural: same target, more than one distinct value.
	byTarget := make(map[string][]Constraint)
	for _, c := range list {
		byTarget[c.Target] = append(byTarget[c.Target], c)
	}
	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, t := range targets {
		group := byTarget[t]
		if len(group) < 2 || !hasDistinctValues(group) {
			continue
		}
		ids := make([]string, 0, len(group))
		for _, c := range group {
			ids = append(ids, c.ID)
		}
		sort.Strings(ids)
		records = append(records, ConflictRecord{
			ID:            ulid.Make().String(),
			ConstraintIDs: ids,
			Type:          ConflictStructural,
		})
	}

	// Semantic: related targets on opposing value poles.
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if list[i].Target == list[j].Target {
				continue // structural territory
			}
			if !semanticContradiction(list[i], list[j]) {
				continue
			}
			ids := []string{list[i].ID, list[j].ID}
			sort.Strings(ids)
			records = append(records, ConflictRecord{
				ID:            ulid.Make().String(),
				ConstraintIDs: ids,
				Type:          ConflictSemantic,
			})
		}
	}

	return records
}

func hasDistinctValues(group []Constraint) bool {
	for _, c := range group[1:] {
		if c.Value != group[0].Value {
			return true
		}
	}
	return false
}

func semanticContradiction(a, b Constraint) bool {
	for _, rule := range topicAdjacency {
		if a.Target == rule.targetA && b.Target == rule.targetB {
			if matchesPole(a.Value, rule.polesA) && matchesPole(b.Value, rule.polesB) {
				return true
			}
		}
		if b.Target == rule.targetA && a.Target == rule.targetB {
			if matchesPole(b.Value, rule.polesA) && matchesPole(a.Value, rule.polesB) {
				return true
			}
		}
	}
	return false
}

func matchesPole(value string, poles []string) bool {
	for _, p := range poles {
		if strings.Contains(value, p) {
			return true
		}
	}
	return false
}
