// Package domain provides core business rules for the leads bounded context.
package domain

import "errors"

// LeadStatus is the pipeline status of a lead.
type LeadStatus string

const (
	StatusNuovo        LeadStatus = "NUOVO"
	StatusContattato   LeadStatus = "CONTATTATO"
	StatusInTrattativa LeadStatus = "IN_TRATTATIVA"
	StatusIscritto     LeadStatus = "ISCRITTO"
	StatusPerso        LeadStatus = "PERSO"
)

// CallOutcome is the result code of a single contact attempt.
type CallOutcome string

const (
	OutcomePositivo    CallOutcome = "POSITIVO"
	OutcomeRichiamare  CallOutcome = "RICHIAMARE"
	OutcomeNegativo    CallOutcome = "NEGATIVO"
	OutcomeNonRisponde CallOutcome = "NON_RISPONDE"
)

const (
	// MaxCallAttempts is the cap on contact attempts; reaching it with a
	// non-positive outcome forces the lead into PERSO.
	MaxCallAttempts = 8

	LostReasonNegative    = "Esito negativo"
	LostReasonMaxAttempts = "8 tentativi raggiunti"
	LostReasonInactivity  = "Inattività 15 giorni"
)

// ErrTerminalLead is returned when a mutation is attempted on a lead in a
// terminal state (PERSO or enrolled/ISCRITTO).
var ErrTerminalLead = errors.New("lead is in a terminal state")

var knownStatuses = map[LeadStatus]struct{}{
	StatusNuovo:        {},
	StatusContattato:   {},
	StatusInTrattativa: {},
	StatusIscritto:     {},
	StatusPerso:        {},
}

var knownOutcomes = map[CallOutcome]struct{}{
	OutcomePositivo:    {},
	OutcomeRichiamare:  {},
	OutcomeNegativo:    {},
	OutcomeNonRisponde: {},
}

// IsKnownStatus reports whether the status is one of the pipeline statuses.
func IsKnownStatus(status LeadStatus) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsKnownOutcome reports whether the outcome is a valid call result code.
func IsKnownOutcome(outcome CallOutcome) bool {
	_, ok := knownOutcomes[outcome]
	return ok
}

// IsTerminal returns true when a lead in the given state accepts no further
// call outcomes. Enrollment is checked separately from status so that a lead
// with an inconsistent stored pair (enrolled but not yet ISCRITTO) is still
// locked.
func IsTerminal(status LeadStatus, enrolled bool) bool {
	return status == StatusPerso || status == StatusIscritto || enrolled
}

// CanStartNegotiation reports whether a lead may move into IN_TRATTATIVA.
// Only contacted, non-terminal leads qualify; IN_TRATTATIVA itself is a no-op.
func CanStartNegotiation(status LeadStatus, enrolled bool) bool {
	if IsTerminal(status, enrolled) {
		return false
	}
	return status == StatusContattato
}

// CanEnroll reports whether a lead may be marked ISCRITTO.
func CanEnroll(status LeadStatus, enrolled bool) bool {
	return !IsTerminal(status, enrolled)
}
