package store

import (
	"fmt"
	"time"

	"github.com/kordite/switchboard/internal/classify"
)

// ReservedTransitionsKey is the pattern-store key holding the transition
// table. It is not a valid signature (signatures are hex), so it can never
// collide with an ordinary cache entry.
const ReservedTransitionsKey = "__transitions__"

// PatternEntry is one pattern-cache record: the last classification served
// for a signature plus hit metadata.
type PatternEntry struct {
	Classification classify.Result `json:"classification"`
	// PrimaryDomain is the top-scoring included domain at classification
	// time, kept so a cache hit books the same transition a fresh
	// classification would (Classification's sets are alphabetized).
	PrimaryDomain string    `json:"primary_domain,omitempty"`
	LastUsed      time.Time `json:"last_used"`
	HitCount      int       `json:"hit_count"`
}

// HistoryEntry is one session-history record. Entries form a singly linked
// chain through PrevSignature, approximating the conversation's topic
// trajectory.
type HistoryEntry struct {
	Signature      string          `json:"signature"`
	Query          string          `json:"query"`
	Classification classify.Result `json:"classification"`
	// PrimaryDomain is the top-scoring included domain at classification
	// time. Result sets are alphabetized, so this cannot be recovered from
	// Classification after the fact.
	PrimaryDomain string    `json:"primary_domain,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	PrevSignature string    `json:"prev_signature,omitempty"`
}

// Transition is one (previous domain, current domain) pair with its count.
type Transition struct {
	Prev  string `json:"prev"`
	Curr  string `json:"curr"`
	Count int    `json:"count"`
}

// HotSignature pairs a signature with its cache hit count.
type HotSignature struct {
	Signature string `json:"signature"`
	HitCount  int    `json:"hit_count"`
}

// Stats summarizes store contents for observational tooling.
type Stats struct {
	PatternCount      int            `json:"pattern_count"`
	TotalHits         int            `json:"total_hits"`
	HistoryCount      int            `json:"history_count"`
	TransitionPairs   int            `json:"transition_pairs"`
	HottestSignatures []HotSignature `json:"hottest_signatures"`
}

// maxHotSignatures bounds the hottest-signature list in Stats.
const maxHotSignatures = 5

// Store is the persistence boundary for the pattern cache, session history,
// and transition table. Classification correctness never depends on seeing
// the latest state: a stale or missing entry only costs a cache miss, so
// implementations favor availability over strict consistency, and a corrupt
// backing file degrades to "treat as empty" rather than an error.
type Store interface {
	// LookupPattern returns the exact-match cache entry for a signature,
	// or (nil, nil) on a miss. No fuzzy matching.
	LookupPattern(sig string) (*PatternEntry, error)

	// StorePattern creates or replaces the cache entry for a signature,
	// preserving accumulated hit metadata on replace.
	StorePattern(sig string, e PatternEntry) error

	// TouchPattern bumps hit count and last-used time for a signature.
	// Touching a missing signature is a no-op.
	TouchPattern(sig string) error

	// AppendHistory appends one entry to the session history log.
	AppendHistory(e HistoryEntry) error

	// RecentHistory returns up to limit entries, newest first.
	RecentHistory(limit int) ([]HistoryEntry, error)

	// BumpTransition increments the counter for a domain transition.
	BumpTransition(prev, curr string) error

	// Transitions returns the transition table ordered by count descending,
	// then by (prev, curr) for determinism.
	Transitions() ([]Transition, error)

	// Stats reports store contents. Observational only.
	Stats() (Stats, error)

	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open constructs a store of the given backend rooted at baseDir.
// maxOpen/maxIdle tune the sqlite connection pool and are ignored by the
// other backends.
func Open(backend, baseDir string, maxOpen, maxIdle int) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(baseDir, maxOpen, maxIdle)
	case BackendFile:
		return OpenFile(baseDir)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
