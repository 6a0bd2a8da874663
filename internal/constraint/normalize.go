package constraint

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kordite/switchboard/internal/errors"
)

// wrapped is the envelope form of constraint input.
type wrapped struct {
	Constraints []Constraint `json:"constraints"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Parse accepts constraint input in either accepted shape: a bare JSON array
// of constraints, or an object wrapping the array under "constraints".
// Anything else is unparsable. A wrapper whose field is missing or null
// parses to an empty list, never nil: downstream code must be able to take
// the length safely.
func Parse(raw []byte) ([]Constraint, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, errors.NewUnparsableInput(fmt.Errorf("empty constraint input"))
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []Constraint
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errors.NewUnparsableInput(err)
		}
		if list == nil {
			list = []Constraint{}
		}
		return list, nil
	}

	var w wrapped
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.NewUnparsableInput(err)
	}
	if w.Constraints == nil {
		return []Constraint{}, nil
	}
	return w.Constraints, nil
}

// Normalize produces the canonical constraint list: targets and hints
// lower-cased with whitespace runs collapsed to underscores, sources
// upper-cased, missing ids assigned. Idempotent: normalizing an already
// normalized list changes nothing. A constraint without a target or value
// is an invalid request.
func Normalize(list []Constraint) ([]Constraint, error) {
	out := make([]Constraint, 0, len(list))
	for i, c := range list {
		c.Target = canonicalToken(c.Target)
		c.Value = canonicalToken(c.Value)
		c.Source = strings.ToUpper(strings.TrimSpace(c.Source))
		c.PriorityHint = canonicalToken(c.PriorityHint)
		c.ID = strings.TrimSpace(c.ID)

		if c.Target == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("constraint %d has no target", i))
		}
		if c.Value == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("constraint %d has no value", i))
		}
		if c.ID == "" {
			c.ID = ulid.Make().String()
		}
		out = append(out, c)
	}
	return out, nil
}

// canonicalToken lower-cases a field and collapses whitespace runs to single
// underscores, so "Strong  Consistency" and "strong_consistency" compare
// equal.
func canonicalToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRun.ReplaceAllString(s, "_")
}
