package classify

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/kordite/switchboard/internal/taxonomy"
)

var errEmptyPhrase = errors.New("empty phrase")

// MaxKeywordConfidence caps confidence derived from keyword coverage, with
// or without a session boost. Full confidence is reserved for pattern-cache
// hits and exact archetype matches, so a 1.0 always carries a provenance
// marker (cache_hit or archetype_matched) a consumer can discount.
const MaxKeywordConfidence = 0.99

// Expansion limits
const (
	maxExpansionCandidates = 3
	maxExpansionsPerMiss   = 2
	maxExpansions          = 6
)

// keywordMatcher is a compiled keyword signal.
type keywordMatcher struct {
	phrase string
	weight float64
	re     *regexp.Regexp
}

// candidateMatcher is a candidate with its compiled signals.
type candidateMatcher struct {
	id       string
	kind     taxonomy.Kind
	expected float64
	keywords []keywordMatcher
}

// Scored is one candidate's evaluation against a query. Score is the
// normalized coverage in [0,1]; Distinct counts distinct matched keywords
// (repeats of the same phrase do not count twice).
type Scored struct {
	ID        string
	Kind      taxonomy.Kind
	Score     float64
	Distinct  int
	Unmatched []taxonomy.Keyword
}

// Classifier scores queries against the taxonomy. Thread-safe: all patterns
// are compiled at construction time and never mutated.
type Classifier struct {
	inclusion  float64
	policy     Policy
	matchers   []candidateMatcher
	archetypes []taxonomy.Archetype
}

// New compiles a classifier from the taxonomy. inclusion is the categorical
// threshold a candidate's normalized score must clear to appear in the
// result sets.
func New(tax *taxonomy.Taxonomy, inclusion float64, policy Policy) *Classifier {
	c := &Classifier{
		inclusion:  inclusion,
		policy:     policy,
		archetypes: tax.Archetypes,
	}
	for _, cand := range tax.Candidates {
		m := candidateMatcher{
			id:       cand.ID,
			kind:     cand.Kind,
			expected: cand.Expected,
		}
		if m.expected <= 0 {
			m.expected = taxonomy.DefaultExpected
		}
		for _, kw := range cand.Keywords {
			re, err := compilePhrase(kw.Phrase)
			if err != nil {
				continue
			}
			m.keywords = append(m.keywords, keywordMatcher{
				phrase: kw.Phrase,
				weight: kw.Weight,
				re:     re,
			})
		}
		c.matchers = append(c.matchers, m)
	}
	return c
}

// compilePhrase builds a word-boundary pattern for a keyword or phrase.
// Words within a phrase may be separated by any whitespace in the query.
func compilePhrase(phrase string) (*regexp.Regexp, error) {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil, errEmptyPhrase
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(`\b` + strings.Join(quoted, `\s+`) + `\b`)
}

// Classify scores a normalized query and returns the classification result.
func (c *Classifier) Classify(normalized string) *Result {
	res, _ := c.Evaluate(normalized)
	return res
}

// Evaluate is Classify plus the per-candidate score list, ranked by the
// tie-break order (score desc, distinct matches desc, id asc). The score
// list is what downstream boosting uses to pick a primary domain.
func (c *Classifier) Evaluate(normalized string) (*Result, []Scored) {
	if normalized == "" {
		return emptyResult(), nil
	}

	if res := c.matchArchetype(normalized); res != nil {
		return res, nil
	}

	scored := c.score(normalized)

	res := emptyResult()
	res.SuggestedExpansions = suggestExpansions(scored, c.inclusion)

	for _, s := range scored {
		if s.Score < c.inclusion {
			continue
		}
		if s.Score > res.Confidence {
			// Overall confidence is the maximum over included candidates,
			// never a sum: many weak signals must not simulate one strong one.
			res.Confidence = s.Score
		}
		switch s.Kind {
		case taxonomy.KindSystem:
			res.Systems = append(res.Systems, s.ID)
		case taxonomy.KindDomain:
			res.Domains = append(res.Domains, s.ID)
		case taxonomy.KindBECluster:
			res.BEClusters = append(res.BEClusters, s.ID)
		case taxonomy.KindSECluster:
			res.SEClusters = append(res.SEClusters, s.ID)
		}
	}

	sort.Strings(res.Systems)
	sort.Strings(res.Domains)
	sort.Strings(res.BEClusters)
	sort.Strings(res.SEClusters)

	c.policy.Apply(res)
	return res, scored
}

// score evaluates every candidate and returns those with any signal at all,
// ranked deterministically.
func (c *Classifier) score(normalized string) []Scored {
	scored := make([]Scored, 0, len(c.matchers))
	for _, m := range c.matchers {
		s := Scored{ID: m.id, Kind: m.kind}
		raw := 0.0
		for _, kw := range m.keywords {
			if kw.re.MatchString(normalized) {
				raw += kw.weight
				s.Distinct++
			} else {
				s.Unmatched = append(s.Unmatched, taxonomy.Keyword{Phrase: kw.phrase, Weight: kw.weight})
			}
		}
		if s.Distinct == 0 {
			continue
		}
		s.Score = raw / m.expected
		if s.Score > MaxKeywordConfidence {
			s.Score = MaxKeywordConfidence
		}
		scored = append(scored, s)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Distinct != scored[j].Distinct {
			return scored[i].Distinct > scored[j].Distinct
		}
		return scored[i].ID < scored[j].ID
	})
	return scored
}

// matchArchetype checks the fixed archetype table. An exact normalized match
// or a token-set match (same words, any order) short-circuits to full
// confidence.
func (c *Classifier) matchArchetype(normalized string) *Result {
	for _, a := range c.archetypes {
		if normalized != a.Query && !tokenSetEqual(normalized, a.Query) {
			continue
		}
		res := emptyResult()
		res.Systems = append(res.Systems, a.Systems...)
		res.Domains = append(res.Domains, a.Domains...)
		res.BEClusters = append(res.BEClusters, a.BEClusters...)
		res.SEClusters = append(res.SEClusters, a.SEClusters...)
		sort.Strings(res.Systems)
		sort.Strings(res.Domains)
		sort.Strings(res.BEClusters)
		sort.Strings(res.SEClusters)
		res.Confidence = 1.0
		res.Pattern = a.ID
		res.ArchetypeMatched = append(res.ArchetypeMatched, a.ID)
		res.State = StateAccepted
		res.NeedsLLMVerification = false
		return res
	}
	return nil
}

// tokenSetEqual reports whether two normalized strings contain the same set
// of words, ignoring order and repetition.
func tokenSetEqual(a, b string) bool {
	setOf := func(s string) map[string]struct{} {
		set := make(map[string]struct{})
		for _, w := range strings.Fields(s) {
			set[w] = struct{}{}
		}
		return set
	}
	sa, sb := setOf(a), setOf(b)
	if len(sa) != len(sb) {
		return false
	}
	for w := range sa {
		if _, ok := sb[w]; !ok {
			return false
		}
	}
	return true
}

// suggestExpansions proposes keywords from near-miss candidates: those with
// some signal but below the inclusion threshold. Adding one of these terms
// to a reformulated query would pull the candidate into the result.
func suggestExpansions(scored []Scored, inclusion float64) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	misses := 0
	for _, s := range scored {
		if s.Score >= inclusion {
			continue
		}
		if misses >= maxExpansionCandidates {
			break
		}
		misses++

		unmatched := append([]taxonomy.Keyword(nil), s.Unmatched...)
		sort.Slice(unmatched, func(i, j int) bool {
			if unmatched[i].Weight != unmatched[j].Weight {
				return unmatched[i].Weight > unmatched[j].Weight
			}
			return unmatched[i].Phrase < unmatched[j].Phrase
		})
		for i, kw := range unmatched {
			if i >= maxExpansionsPerMiss || len(out) >= maxExpansions {
				break
			}
			if _, dup := seen[kw.Phrase]; dup {
				continue
			}
			seen[kw.Phrase] = struct{}{}
			out = append(out, kw.Phrase)
		}
	}
	return out
}

// PrimaryDomain picks the top-ranked included domain for a result, used for
// transition bookkeeping. Archetype and cache results carry no score list;
// for those the first (lexicographically smallest) domain is used.
func PrimaryDomain(res *Result, scored []Scored) string {
	if res == nil || len(res.Domains) == 0 {
		return ""
	}
	inResult := make(map[string]struct{}, len(res.Domains))
	for _, d := range res.Domains {
		inResult[d] = struct{}{}
	}
	for _, s := range scored {
		if s.Kind != taxonomy.KindDomain {
			continue
		}
		if _, ok := inResult[s.ID]; ok {
			return s.ID
		}
	}
	return res.Domains[0]
}
