package constraint

import "sort"

// LatticeVersion identifies the priority ordering in effect. Bump when the
// category or source order changes so audit trails can name the rules that
// produced them.
const LatticeVersion = 1

// categoryOrder is the total order over constraint categories, highest
// priority first. Independent of which domain emitted the constraint.
var categoryOrder = []string{
	"security",
	"data-integrity",
	"correctness",
	"reliability",
	"performance",
	"ux",
	"maintainability",
	"cost",
	"convention",
}

// sourceOrder is the tie-break order over emitting-domain identity, applied
// only when two constraints land in the same category.
var sourceOrder = []string{"SEC", "DB", "SE", "BE", "QA", "FE", "DOC"}

// sourceCategory maps an emitting domain to its default category, used when
// a constraint carries no priority hint.
var sourceCategory = map[string]string{
	"SEC": "security",
	"DB":  "data-integrity",
	"QA":  "correctness",
	"SE":  "reliability",
	"BE":  "performance",
	"FE":  "ux",
	"DOC": "maintainability",
}

// categoryOf returns the category a constraint is arbitrated under: the
// explicit hint when present, otherwise the source default. Empty when
// neither applies.
func categoryOf(c Constraint) string {
	if c.PriorityHint != "" {
		return c.PriorityHint
	}
	return sourceCategory[c.Source]
}

func categoryRank(category string) (int, bool) {
	for i, c := range categoryOrder {
		if c == category {
			return i, true
		}
	}
	return 0, false
}

func sourceRank(source string) (int, bool) {
	for i, s := range sourceOrder {
		if s == source {
			return i, true
		}
	}
	return 0, false
}

// Arbitrate completes a ConflictRecord against the lattice. byID must cover
// every participant.
//
// Category priority decides first; domain identity breaks category ties; a
// same-category same-source pair is a true duplicate and resolves auto by
// taking the first value in id order. Participants outside the lattice
// (unknown category, or unknown source on a category tie) leave the record
// unresolved: that outcome is surfaced, never papered over.
func Arbitrate(rec *ConflictRecord, byID map[string]Constraint) {
	participants := make([]Constraint, 0, len(rec.ConstraintIDs))
	for _, id := range rec.ConstraintIDs {
		c, ok := byID[id]
		if !ok {
			rec.Resolution = Unresolved
			return
		}
		participants = append(participants, c)
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })

	// Rank every participant by category; any unknown category means the
	// lattice has no ordering rule for this record.
	best := -1
	var winners []Constraint
	for _, c := range participants {
		rank, ok := categoryRank(categoryOf(c))
		if !ok {
			rec.Resolution = Unresolved
			return
		}
		switch {
		case best == -1 || rank < best:
			best = rank
			winners = []Constraint{c}
		case rank == best:
			winners = append(winners, c)
		}
	}

	if len(winners) == 1 {
		rec.Resolution = ResolvedPriority
		rec.WinnerID = winners[0].ID
		rec.ResolvedValue = winners[0].Value
		return
	}

	// Category tie: fall back to domain identity.
	best = -1
	var top []Constraint
	for _, c := range winners {
		rank, ok := sourceRank(c.Source)
		if !ok {
			rec.Resolution = Unresolved
			return
		}
		switch {
		case best == -1 || rank < best:
			best = rank
			top = []Constraint{c}
		case rank == best:
			top = append(top, c)
		}
	}

	if len(top) == 1 {
		rec.Resolution = ResolvedPriority
		rec.WinnerID = top[0].ID
		rec.ResolvedValue = top[0].Value
		return
	}

	// Same category, same source: a duplicate. Take the first by id.
	rec.Resolution = ResolvedAuto
	rec.WinnerID = top[0].ID
	rec.ResolvedValue = top[0].Value
}
