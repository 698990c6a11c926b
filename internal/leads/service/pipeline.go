package service

import (
	"context"

	"corsi_crm_backend/internal/events"
	"corsi_crm_backend/internal/leads/domain"
	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/internal/leads/transport"
	"corsi_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// LogCallOutcome records one contact attempt and advances the pipeline.
//
// The flow is read-compute-write: read the lead, run the pure transition
// on what was read, then persist with the attempt counter as the optimistic
// version. A concurrent writer makes the conditional update match nothing,
// which surfaces as a conflict instead of a double-counted attempt.
func (s *Service) LogCallOutcome(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID, req transport.LogCallOutcomeRequest) (transport.CallOutcomeResponse, error) {
	outcome := domain.CallOutcome(req.Outcome)
	if !domain.IsKnownOutcome(outcome) {
		return transport.CallOutcomeResponse{}, apperr.Validation("unknown call outcome")
	}

	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.CallOutcomeResponse{}, mapRepoError(err)
	}

	now := s.now()

	// The inactivity rule is authoritative: a lead that expired but has not
	// been swept yet is already PERSO and rejects new outcomes.
	effective := domain.EffectiveStatus(domain.ExpiryState{
		Status:        domain.LeadStatus(lead.Status),
		Enrolled:      lead.Enrolled,
		LastAttemptAt: lead.LastAttemptAt,
	}, now)

	result, err := domain.ProcessCallOutcome(domain.CallState{
		Status:         effective,
		CallAttempts:   lead.CallAttempts,
		Enrolled:       lead.Enrolled,
		FirstAttemptAt: lead.FirstAttemptAt,
	}, outcome, now)
	if err != nil {
		return transport.CallOutcomeResponse{}, mapRepoError(err)
	}

	updated, err := s.repo.ApplyCallOutcome(ctx, repository.ApplyOutcomeParams{
		LeadID:           id,
		TenantID:         tenantID,
		ExpectedAttempts: lead.CallAttempts,
		Result:           result,
	})
	if err != nil {
		return transport.CallOutcomeResponse{}, mapRepoError(err)
	}

	meta := map[string]any{
		"outcome": string(outcome),
		"attempt": result.CallAttempts,
	}
	if req.Note != "" {
		meta["note"] = req.Note
	}
	if result.BecamePerso {
		meta["lostReason"] = result.LostReason
	}
	s.recordActivity(ctx, updated, &actorID, activityCallLogged, "Esito chiamata registrato", meta)

	s.log.LeadTransition(id.String(), lead.Status, updated.Status, string(outcome))

	s.bus.Publish(ctx, events.CallOutcomeLogged{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       updated.ID,
		TenantID:     updated.TenantID,
		ActorID:      actorID,
		Outcome:      string(outcome),
		Attempt:      result.CallAttempts,
		Status:       updated.Status,
		BecamePerso:  result.BecamePerso,
		AttemptsLeft: domain.MaxCallAttempts - result.CallAttempts,
	})

	if result.BecamePerso {
		s.bus.Publish(ctx, events.LeadLost{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     updated.ID,
			TenantID:   updated.TenantID,
			AssignedTo: updated.AssignedTo,
			Reason:     result.LostReason,
		})
	}

	return transport.CallOutcomeResponse{
		Lead:        s.toResponse(updated),
		Attempt:     result.CallAttempts,
		BecamePerso: result.BecamePerso,
	}, nil
}

// StartNegotiation moves a CONTATTATO lead into IN_TRATTATIVA.
func (s *Service) StartNegotiation(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	effective := domain.EffectiveStatus(domain.ExpiryState{
		Status:        domain.LeadStatus(lead.Status),
		Enrolled:      lead.Enrolled,
		LastAttemptAt: lead.LastAttemptAt,
	}, s.now())
	if !domain.CanStartNegotiation(effective, lead.Enrolled) {
		return transport.LeadResponse{}, apperr.Conflict("only contacted leads can enter negotiation")
	}

	updated, err := s.repo.StartNegotiation(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	s.recordActivity(ctx, updated, &actorID, activityNegotiation, "Trattativa avviata", nil)
	s.log.LeadTransition(id.String(), lead.Status, updated.Status, "negotiation")

	return s.toResponse(updated), nil
}

// Enroll marks the lead ISCRITTO, the happy end of the pipeline.
func (s *Service) Enroll(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	effective := domain.EffectiveStatus(domain.ExpiryState{
		Status:        domain.LeadStatus(lead.Status),
		Enrolled:      lead.Enrolled,
		LastAttemptAt: lead.LastAttemptAt,
	}, s.now())
	if !domain.CanEnroll(effective, lead.Enrolled) {
		return transport.LeadResponse{}, apperr.Conflict("lead is in a terminal state")
	}

	updated, err := s.repo.Enroll(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	s.recordActivity(ctx, updated, &actorID, activityEnrolled, "Lead iscritto al corso", nil)
	s.log.LeadTransition(id.String(), lead.Status, updated.Status, "enrolled")

	s.bus.Publish(ctx, events.LeadEnrolled{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		TenantID:  updated.TenantID,
		CourseID:  updated.CourseID,
		ActorID:   actorID,
	})

	return s.toResponse(updated), nil
}

// Claim hands a PERSO lead to a new commercial and restarts its attempt
// cycle. The repository decides the race; whoever gets the row first wins
// and everyone else receives a conflict.
func (s *Service) Claim(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, claimedBy uuid.UUID) (transport.LeadResponse, error) {
	// Best-effort read of the previous owner for the handoff notification.
	// The claim itself does not depend on this value being current.
	var previousOwner *uuid.UUID
	if before, err := s.repo.GetByID(ctx, id, tenantID); err == nil {
		previousOwner = before.AssignedTo
	}

	lead, err := s.repo.Claim(ctx, id, tenantID, claimedBy)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	s.recordActivity(ctx, lead, &claimedBy, activityClaimed, "Lead perso rivendicato", map[string]any{
		"previousOwner": uuidPtrString(previousOwner),
	})
	s.log.LeadTransition(id.String(), string(domain.StatusPerso), lead.Status, "claim")

	s.bus.Publish(ctx, events.LeadClaimed{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		TenantID:      lead.TenantID,
		ClaimedBy:     claimedBy,
		PreviousOwner: previousOwner,
		LeadName:      lead.FirstName + " " + lead.LastName,
	})

	return s.toResponse(lead), nil
}
