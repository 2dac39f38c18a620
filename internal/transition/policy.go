// Package transition holds the verification status graph.
package transition

import "github.com/ppiankov/truescope/internal/model"

// allowed is the complete set of legal edges. Terminal statuses have no entry.
var allowed = map[model.Status][]model.Status{
	model.StatusUnverified: {model.StatusUnderReview},
	model.StatusUnderReview: {
		model.StatusVerifiedTrue,
		model.StatusMisleading,
		model.StatusFalse,
	},
}

// IsAllowed reports whether a claim may move from one status to another.
// Self-edges are never in the table, so no-op transitions are rejected.
func IsAllowed(from, to model.Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns a *model.TransitionError when the edge is not legal
func Check(from, to model.Status) error {
	if !IsAllowed(from, to) {
		return &model.TransitionError{From: from, To: to}
	}
	return nil
}

// Next lists the statuses reachable from s in one step
func Next(s model.Status) []model.Status {
	out := make([]model.Status, len(allowed[s]))
	copy(out, allowed[s])
	return out
}

// IsTerminal reports whether s has no outgoing edges
func IsTerminal(s model.Status) bool {
	return s.Valid() && len(allowed[s]) == 0
}
