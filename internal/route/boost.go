package route

import "github.com/kordite/switchboard/internal/store"

// boostFor computes the progressive continuity boost. history is newest
// first; the streak counts consecutive entries whose classification includes
// domain and stops at the first that does not. The boost is additive,
// increment per streak entry, capped at limit. It never introduces new
// candidates into a result, only raises confidence in ones already found.
func boostFor(history []store.HistoryEntry, domain string, increment, limit float64) float64 {
	if domain == "" || increment <= 0 || limit <= 0 {
		return 0
	}
	streak := 0
	for _, e := range history {
		if !hasDomain(e.Classification.Domains, domain) {
			break
		}
		streak++
	}
	boost := float64(streak) * increment
	if boost > limit {
		boost = limit
	}
	return boost
}

func hasDomain(domains []string, domain string) bool {
	for _, d := range domains {
		if d == domain {
			return true
		}
	}
	return false
}
