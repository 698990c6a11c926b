// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"corsi_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	TenantID   uuid.UUID  `json:"tenantId"`
	CourseID   uuid.UUID  `json:"courseId"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Campaign   string     `json:"campaign,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadAssigned is published when a lead changes owner.
type LeadAssigned struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	TenantID      uuid.UUID  `json:"tenantId"`
	PreviousOwner *uuid.UUID `json:"previousOwner,omitempty"`
	NewOwner      *uuid.UUID `json:"newOwner,omitempty"`
	AssignedByID  uuid.UUID  `json:"assignedById"`
	LeadName      string     `json:"leadName"`
}

func (e LeadAssigned) EventName() string { return "leads.assigned" }

// CallOutcomeLogged is published after every successfully persisted call
// outcome, including the one that pushed the lead into PERSO.
type CallOutcomeLogged struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	TenantID     uuid.UUID `json:"tenantId"`
	ActorID      uuid.UUID `json:"actorId"`
	Outcome      string    `json:"outcome"`
	Attempt      int       `json:"attempt"`
	Status       string    `json:"status"`
	BecamePerso  bool      `json:"becamePerso"`
	AttemptsLeft int       `json:"attemptsLeft"`
}

func (e CallOutcomeLogged) EventName() string { return "leads.call_outcome.logged" }

// LeadLost is published when a lead transitions to PERSO, whatever the
// reason (hard no, attempt cap, inactivity sweep).
type LeadLost struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	TenantID   uuid.UUID  `json:"tenantId"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	Reason     string     `json:"reason"`
}

func (e LeadLost) EventName() string { return "leads.lost" }

// LeadEnrolled is published when a lead becomes ISCRITTO.
type LeadEnrolled struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	CourseID uuid.UUID `json:"courseId"`
	ActorID  uuid.UUID `json:"actorId"`
}

func (e LeadEnrolled) EventName() string { return "leads.enrolled" }

// LeadClaimed is published when a commercial wins the claim on a PERSO
// lead. PreviousOwner is notified so the handoff is visible.
type LeadClaimed struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	TenantID      uuid.UUID  `json:"tenantId"`
	ClaimedBy     uuid.UUID  `json:"claimedBy"`
	PreviousOwner *uuid.UUID `json:"previousOwner,omitempty"`
	LeadName      string     `json:"leadName"`
}

func (e LeadClaimed) EventName() string { return "leads.claimed" }

// LeadsMerged is published after a successful duplicate merge.
type LeadsMerged struct {
	BaseEvent
	PrimaryID uuid.UUID   `json:"primaryId"`
	MergedIDs []uuid.UUID `json:"mergedIds"`
	TenantID  uuid.UUID   `json:"tenantId"`
	ActorID   uuid.UUID   `json:"actorId"`
}

func (e LeadsMerged) EventName() string { return "leads.merged" }
