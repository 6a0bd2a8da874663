package taxonomy

import "sort"

// Kind identifies which result set a candidate belongs to.
type Kind string

const (
	KindSystem    Kind = "system"
	KindDomain    Kind = "domain"
	KindBECluster Kind = "be_cluster"
	KindSECluster Kind = "se_cluster"
)

// Keyword is a single lexical signal with its scoring weight.
type Keyword struct {
	Phrase string
	Weight float64
}

// Candidate is one routable target: a system, a knowledge domain, or a
// backend/systems engineering cluster. Keywords are fixed, hand-authored
// signals; Expected is the weighted signal mass treated as full confidence
// for this candidate (the fixed normalization denominator).
type Candidate struct {
	ID       string
	Kind     Kind
	Keywords []Keyword
	Expected float64
}

// Archetype is a canonical example query. An exact or near-exact match
// short-circuits classification to confidence 1.0.
type Archetype struct {
	ID         string
	Query      string // stored normalized
	Systems    []string
	Domains    []string
	BEClusters []string
	SEClusters []string
}

// Taxonomy is the full routing table: all candidates plus the archetype set.
type Taxonomy struct {
	Candidates []Candidate
	Archetypes []Archetype
}

// DefaultExpected is the normalization denominator used when a candidate
// does not declare its own: two full-weight signals count as certainty.
const DefaultExpected = 2.0

// Builtin returns the built-in taxonomy. The returned value is a fresh copy;
// callers may merge overlays into it freely.
func Builtin() *Taxonomy {
	t := &Taxonomy{
		Candidates: builtinCandidates(),
		Archetypes: builtinArchetypes(),
	}
	t.sort()
	return t
}

// Find returns the candidate with the given id, or nil.
func (t *Taxonomy) Find(id string) *Candidate {
	for i := range t.Candidates {
		if t.Candidates[i].ID == id {
			return &t.Candidates[i]
		}
	}
	return nil
}

// sort orders candidates and archetypes by id so iteration order (and
// therefore scoring and tie-breaking) is reproducible regardless of how
// overlays were merged.
func (t *Taxonomy) sort() {
	sort.Slice(t.Candidates, func(i, j int) bool {
		return t.Candidates[i].ID < t.Candidates[j].ID
	})
	sort.Slice(t.Archetypes, func(i, j int) bool {
		return t.Archetypes[i].ID < t.Archetypes[j].ID
	})
}

func builtinCandidates() []Candidate {
	return []Candidate{
		// Systems
		{
			ID:   "authentication",
			Kind: KindSystem,
			Keywords: []Keyword{
				{"login", 1.0}, {"auth", 1.0}, {"authentication", 1.0},
				{"password", 0.9}, {"sign in", 0.9}, {"oauth", 0.9},
				{"credentials", 0.8}, {"jwt", 0.8}, {"sso", 0.8},
				{"mfa", 0.8}, {"2fa", 0.8}, {"logout", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "payments",
			Kind: KindSystem,
			Keywords: []Keyword{
				{"payment", 1.0}, {"checkout", 0.9}, {"billing", 0.9},
				{"invoice", 0.8}, {"refund", 0.8}, {"subscription", 0.7},
				{"stripe", 0.7}, {"chargeback", 0.8},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "search",
			Kind: KindSystem,
			Keywords: []Keyword{
				{"search", 1.0}, {"full-text", 0.9}, {"relevance", 0.8},
				{"ranking", 0.8}, {"autocomplete", 0.8}, {"elasticsearch", 0.8},
				{"search index", 0.9},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "notifications",
			Kind: KindSystem,
			Keywords: []Keyword{
				{"notification", 1.0}, {"email", 0.8}, {"webhook", 0.8},
				{"push", 0.7}, {"sms", 0.8}, {"digest", 0.6},
				{"fan out", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "storage",
			Kind: KindSystem,
			Keywords: []Keyword{
				{"object storage", 1.0}, {"blob", 0.9}, {"file upload", 0.9},
				{"upload", 0.8}, {"s3", 0.8}, {"cdn", 0.7},
			},
			Expected: DefaultExpected,
		},

		// Domains
		{
			ID:   "backend-engineering",
			Kind: KindDomain,
			Keywords: []Keyword{
				{"backend", 1.0}, {"api", 0.9}, {"endpoint", 0.9},
				{"rest", 0.8}, {"grpc", 0.8}, {"microservice", 0.8},
				{"handler", 0.7}, {"middleware", 0.7}, {"service", 0.6},
				{"server", 0.6},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "systems-engineering",
			Kind: KindDomain,
			Keywords: []Keyword{
				{"infrastructure", 1.0}, {"kubernetes", 0.9}, {"deploy", 0.9},
				{"scaling", 0.9}, {"observability", 0.9}, {"load balancer", 0.9},
				{"docker", 0.8}, {"latency", 0.8}, {"throughput", 0.8},
				{"monitoring", 0.8}, {"concurrency", 0.8},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "data-engineering",
			Kind: KindDomain,
			Keywords: []Keyword{
				{"schema", 0.9}, {"database", 0.9}, {"etl", 0.9},
				{"warehouse", 0.9}, {"shard", 0.9}, {"sql", 0.8},
				{"migration", 0.8}, {"pipeline", 0.8}, {"replication", 0.8},
				{"consistency", 0.8}, {"index", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "security-engineering",
			Kind: KindDomain,
			Keywords: []Keyword{
				{"security", 1.0}, {"vulnerability", 1.0}, {"encryption", 0.9},
				{"xss", 0.9}, {"csrf", 0.9}, {"injection", 0.9},
				{"secrets", 0.8}, {"tls", 0.8}, {"threat", 0.8},
				{"audit", 0.7},
			},
			Expected: DefaultExpected,
		},

		// Backend-engineering clusters
		{
			ID:   "api-design",
			Kind: KindBECluster,
			Keywords: []Keyword{
				{"api design", 1.0}, {"openapi", 0.9}, {"rest", 0.8},
				{"versioning", 0.8}, {"endpoint", 0.8}, {"pagination", 0.8},
				{"contract", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "persistence",
			Kind: KindBECluster,
			Keywords: []Keyword{
				{"database", 0.9}, {"schema", 0.8}, {"transaction", 0.8},
				{"migration", 0.8}, {"orm", 0.8}, {"sql", 0.8},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "caching",
			Kind: KindBECluster,
			Keywords: []Keyword{
				{"cache", 1.0}, {"cache stampede", 1.0}, {"redis", 0.9},
				{"invalidation", 0.9}, {"ttl", 0.8}, {"memoize", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "messaging",
			Kind: KindBECluster,
			Keywords: []Keyword{
				{"queue", 0.9}, {"kafka", 0.9}, {"dead letter", 0.9},
				{"message broker", 0.9}, {"pub sub", 0.8}, {"event", 0.6},
			},
			Expected: DefaultExpected,
		},

		// Systems-engineering clusters
		{
			ID:   "se-concurrency",
			Kind: KindSECluster,
			Keywords: []Keyword{
				{"concurrency", 1.0}, {"deadlock", 1.0}, {"race", 0.9},
				{"mutex", 0.9}, {"lock", 0.8}, {"atomic", 0.8},
				{"thread", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "se-deployment",
			Kind: KindSECluster,
			Keywords: []Keyword{
				{"deploy", 1.0}, {"blue green", 1.0}, {"canary", 0.9},
				{"rollout", 0.9}, {"rollback", 0.8}, {"zero downtime", 0.9},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "se-observability",
			Kind: KindSECluster,
			Keywords: []Keyword{
				{"metrics", 0.9}, {"tracing", 0.9}, {"slo", 0.9},
				{"logging", 0.8}, {"alert", 0.8}, {"health check", 0.8},
				{"dashboard", 0.7},
			},
			Expected: DefaultExpected,
		},
		{
			ID:   "se-networking",
			Kind: KindSECluster,
			Keywords: []Keyword{
				{"dns", 0.9}, {"tcp", 0.9}, {"load balancer", 0.9},
				{"proxy", 0.8}, {"firewall", 0.8}, {"routing", 0.7},
				{"http", 0.6},
			},
			Expected: DefaultExpected,
		},
	}
}

func builtinArchetypes() []Archetype {
	return []Archetype{
		{
			ID:         "login-system-design",
			Query:      "design a login system",
			Systems:    []string{"authentication"},
			Domains:    []string{"backend-engineering", "security-engineering"},
			BEClusters: []string{"api-design", "persistence"},
		},
		{
			ID:         "cache-invalidation",
			Query:      "how should i invalidate my cache",
			Domains:    []string{"backend-engineering"},
			BEClusters: []string{"caching"},
		},
		{
			ID:         "database-sharding",
			Query:      "how do i shard a database",
			Domains:    []string{"data-engineering"},
			BEClusters: []string{"persistence"},
		},
		{
			ID:         "zero-downtime-deploy",
			Query:      "how do i deploy with zero downtime",
			Domains:    []string{"systems-engineering"},
			SEClusters: []string{"se-deployment"},
		},
	}
}
