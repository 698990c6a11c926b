package domain

import "time"

// CallState is the slice of a lead's state the outcome processor reads.
type CallState struct {
	Status         LeadStatus
	CallAttempts   int
	Enrolled       bool
	FirstAttemptAt *time.Time
}

// CallResult is the computed next state after logging a call outcome.
// The repository persists it with a conditional update; the counter
// increment is re-expressed server-side there, so CallAttempts here is
// the expected value, not the authority.
type CallResult struct {
	Status         LeadStatus
	CallAttempts   int
	Outcome        CallOutcome
	Contacted      bool
	ContactedAt    time.Time
	FirstAttemptAt time.Time
	LastAttemptAt  time.Time
	BecamePerso    bool
	LostReason     string
	LostAt         *time.Time
}

// ProcessCallOutcome computes the lead state that follows logging a call
// outcome. It is a pure function: no I/O, no clock reads.
//
// Attempt numbering is post-increment: the first call ever logged on a lead
// with zero attempts is "tentativo 1".
//
// Returns ErrTerminalLead when the lead is PERSO or enrolled; terminal leads
// only re-enter the pipeline through a claim.
func ProcessCallOutcome(state CallState, outcome CallOutcome, now time.Time) (CallResult, error) {
	if state.Status == StatusPerso || state.Enrolled {
		return CallResult{}, ErrTerminalLead
	}
	if state.Status == StatusIscritto {
		return CallResult{}, ErrTerminalLead
	}

	nextAttempts := state.CallAttempts + 1

	firstAttempt := now
	if state.FirstAttemptAt != nil {
		firstAttempt = *state.FirstAttemptAt
	}

	result := CallResult{
		Status:         state.Status,
		CallAttempts:   nextAttempts,
		Outcome:        outcome,
		Contacted:      true,
		ContactedAt:    firstAttempt,
		FirstAttemptAt: firstAttempt,
		LastAttemptAt:  now,
	}

	switch {
	case outcome == OutcomeNegativo:
		// A hard no loses the lead immediately, regardless of attempts.
		result.Status = StatusPerso
		result.BecamePerso = true
		result.LostReason = LostReasonNegative
		lostAt := now
		result.LostAt = &lostAt

	case (outcome == OutcomeNonRisponde || outcome == OutcomeRichiamare) && nextAttempts >= MaxCallAttempts:
		result.Status = StatusPerso
		result.BecamePerso = true
		result.LostReason = LostReasonMaxAttempts
		lostAt := now
		result.LostAt = &lostAt

	default:
		// POSITIVO, or a retryable outcome under the attempt cap.
		// POSITIVO never forces PERSO, not even at the cap.
		if state.Status == StatusNuovo {
			result.Status = StatusContattato
		}
	}

	return result, nil
}
