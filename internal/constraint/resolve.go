package constraint

import "sort"

// Resolve runs the full pipeline on raw constraint input: parse, normalize,
// detect, arbitrate, assemble. The only hard failures are input
// malformation; conflicts, including unresolved ones, are normal outcomes
// carried in the Result.
func Resolve(raw []byte) (*Result, error) {
	parsed, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	list, err := Normalize(parsed)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Constraint, len(list))
	for _, c := range list {
		byID[c.ID] = c
	}

	records := DetectConflicts(list)
	if records == nil {
		records = []ConflictRecord{}
	}
	for i := range records {
		Arbitrate(&records[i], byID)
	}

	return &Result{
		ResolvedSet: assemble(list, records),
		Conflicts:   records,
	}, nil
}

// assemble builds the resolved set: at most one constraint per distinct
// target. Conflict losers are dropped, and every participant of an
// unresolved conflict is excluded outright so the caller sees "unresolved"
// explicitly rather than receiving a silently picked value.
func assemble(list []Constraint, records []ConflictRecord) []Constraint {
	excluded := make(map[string]bool)
	for _, rec := range records {
		for _, id := range rec.ConstraintIDs {
			if rec.Resolution == Unresolved || id != rec.WinnerID {
				excluded[id] = true
			}
		}
	}
	// A constraint may win one conflict and lose another; losing anywhere,
	// or touching an unresolved record, keeps it out.

	byTarget := make(map[string][]Constraint)
	for _, c := range list {
		if excluded[c.ID] {
			continue
		}
		byTarget[c.Target] = append(byTarget[c.Target], c)
	}

	resolved := make([]Constraint, 0, len(byTarget))
	for _, group := range byTarget {
		// Survivors of the same target are duplicates or the conflict
		// winner; take the first in id order for determinism.
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		resolved = append(resolved, group[0])
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Target < resolved[j].Target })
	return resolved
}
