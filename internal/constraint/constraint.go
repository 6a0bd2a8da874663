// Package constraint reconciles design constraints emitted by multiple
// specialist domains: it normalizes the input into one canonical shape,
// detects structural and semantic conflicts, arbitrates them against a fixed
// priority lattice, and assembles an auditable resolved set.
package constraint

// Constraint is one demand emitted by a source domain. Immutable once
// emitted: the resolver classifies relationships between constraints but
// never edits one.
type Constraint struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Value  string `json:"value"`

	// PriorityHint optionally names the constraint's category outright,
	// overriding the source-derived default.
	PriorityHint string `json:"priority_hint,omitempty"`
}

// ConflictType tags how a conflict was detected.
type ConflictType string

const (
	// ConflictStructural: two constraints on the identical target with
	// incompatible values.
	ConflictStructural ConflictType = "structural"
	// ConflictSemantic: two constraints on related-but-distinct targets
	// whose values are contradictory per a fixed domain rule.
	ConflictSemantic ConflictType = "semantic"
)

// Resolution is the arbitration outcome of a conflict.
type Resolution string

const (
	// ResolvedAuto: same category, same source. A true duplicate; either
	// value can be taken.
	ResolvedAuto Resolution = "resolved-auto"
	// ResolvedPriority: one participant dominated under the lattice.
	ResolvedPriority Resolution = "resolved-priority"
	// Unresolved: the lattice has no ordering for the participants. A
	// first-class outcome the caller must handle, never silently decided.
	Unresolved Resolution = "unresolved"
)

// ConflictRecord is one detected conflict plus its arbitration outcome.
// Created by the detector, completed by the arbiter.
//
// Invariant: Resolution == Unresolved implies ResolvedValue and WinnerID are
// empty.
type ConflictRecord struct {
	ID            string       `json:"id"`
	ConstraintIDs []string     `json:"constraint_ids"`
	Type          ConflictType `json:"type"`
	Resolution    Resolution   `json:"resolution"`
	ResolvedValue string       `json:"resolved_value,omitempty"`
	WinnerID      string       `json:"winner_id,omitempty"`
}

// Result is the resolver output: the surviving constraint set (at most one
// per distinct target) plus the full conflict audit trail, unresolved
// records included.
type Result struct {
	ResolvedSet []Constraint     `json:"resolved_set"`
	Conflicts   []ConflictRecord `json:"conflicts"`
}
