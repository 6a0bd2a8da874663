package classify

// State is the escalation outcome of a classification.
//
// The state machine is {Unclassified} -> (confidence >= fallback) ->
// {Provisional} -> (confidence >= fastpath) -> {Accepted}. Accepted and
// Provisional are both returned states; Unclassified is the only
// terminal-failure state, though its result sets are still returned so the
// caller can see what little evidence there was.
type State string

const (
	StateAccepted     State = "accepted"
	StateProvisional  State = "provisional"
	StateUnclassified State = "unclassified"
)

// Policy holds the two load-bearing confidence thresholds.
//
// FastPath is the acceptance bar: at or above it the result is used without
// further verification. Fallback is the floor at which a heavier
// LLM-assisted verification pass is worth invoking rather than declaring
// total failure. They serve different purposes and are configured
// independently.
type Policy struct {
	FastPath float64
	Fallback float64
}

// Decide maps a confidence value to the escalation state and the
// needs_llm_verification flag. Pure function: no side effects.
func (p Policy) Decide(confidence float64) (State, bool) {
	switch {
	case confidence >= p.FastPath:
		return StateAccepted, false
	case confidence >= p.Fallback:
		return StateProvisional, true
	default:
		return StateUnclassified, true
	}
}

// Apply stamps the decision onto a result.
func (p Policy) Apply(r *Result) {
	r.State, r.NeedsLLMVerification = p.Decide(r.Confidence)
}
