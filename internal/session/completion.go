package session

import "github.com/dil-foundation/lms-web-app-sub004/internal/scoring"

// Decision is the completion verdict for one evaluation outcome.
type Decision struct {
	// Accepted marks a genuine scored attempt that advances progress.
	Accepted bool
	// Completed moves the session to the completed phase.
	Completed bool
	// Explicit reports that the scoring service decided completion.
	Explicit bool
}

// Decide applies the completion rule. An explicit service signal is trusted
// as-is. Without one, only an accepted attempt completes, and only when the
// exercise is single-attempt or the item is the last one with every other
// item already done.
func Decide(outcome scoring.Outcome, index int, completed []bool, singleAttempt bool) Decision {
	if outcome.Err != nil || outcome.Feedback == nil {
		return Decision{}
	}
	accepted := outcome.Feedback.Accepted()
	if outcome.Completion != nil && !outcome.Feedback.SoftFailure {
		return Decision{Accepted: accepted, Completed: outcome.Completion.Completed, Explicit: true}
	}
	return Decision{
		Accepted:  accepted,
		Completed: accepted && (singleAttempt || lastRemaining(index, completed)),
	}
}

// lastRemaining reports whether index is the final item and all others are done.
func lastRemaining(index int, completed []bool) bool {
	if index < len(completed)-1 {
		return false
	}
	for j, done := range completed {
		if j != index && !done {
			return false
		}
	}
	return true
}
