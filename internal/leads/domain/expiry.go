package domain

import "time"

// InactivityWindow is how long a non-terminal lead may sit without a new
// contact attempt before it is considered lost.
const InactivityWindow = 15 * 24 * time.Hour

// ExpiryState is the slice of a lead's state the expiry rule reads.
type ExpiryState struct {
	Status        LeadStatus
	Enrolled      bool
	LastAttemptAt *time.Time
}

// IsExpired reports whether the inactivity rule applies to the lead at the
// given instant: non-terminal, at least one attempt logged, and more than
// the inactivity window elapsed since the last attempt.
func IsExpired(state ExpiryState, now time.Time) bool {
	if IsTerminal(state.Status, state.Enrolled) {
		return false
	}
	if state.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*state.LastAttemptAt) > InactivityWindow
}

// EffectiveStatus returns the status the rest of the system must treat the
// lead as having. The inactivity rule is authoritative over the stored
// status: a stale CONTATTATO lead is reported as PERSO even before the
// sweeper persists the transition. Every read path goes through this
// function so views and mutations cannot diverge.
func EffectiveStatus(state ExpiryState, now time.Time) LeadStatus {
	if IsExpired(state, now) {
		return StatusPerso
	}
	return state.Status
}
