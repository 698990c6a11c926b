package service

import (
	"corsi_crm_backend/internal/leads/domain"
	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/internal/leads/transport"
)

// toResponse maps a stored lead to its API shape. The inactivity rule is
// applied here, so a stale lead reads as PERSO with its loss fields filled
// in even before the sweeper has persisted the transition.
func (s *Service) toResponse(lead repository.Lead) transport.LeadResponse {
	now := s.now()

	status := domain.EffectiveStatus(domain.ExpiryState{
		Status:        domain.LeadStatus(lead.Status),
		Enrolled:      lead.Enrolled,
		LastAttemptAt: lead.LastAttemptAt,
	}, now)

	resp := transport.LeadResponse{
		ID:             lead.ID,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Phone:          lead.Phone,
		Email:          lead.Email,
		CourseID:       lead.CourseID,
		Campaign:       lead.Campaign,
		Status:         string(status),
		Contacted:      lead.Contacted,
		ContactedAt:    lead.ContactedAt,
		CallOutcome:    lead.CallOutcome,
		CallAttempts:   lead.CallAttempts,
		FirstAttemptAt: lead.FirstAttemptAt,
		LastAttemptAt:  lead.LastAttemptAt,
		Enrolled:       lead.Enrolled,
		EnrolledAt:     lead.EnrolledAt,
		IsTarget:       lead.IsTarget,
		AssignedTo:     lead.AssignedTo,
		LostReason:     lead.LostReason,
		LostAt:         lead.LostAt,
		Notes:          lead.Notes,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}

	if status == domain.StatusPerso && lead.LostReason == nil {
		reason := domain.LostReasonInactivity
		resp.LostReason = &reason
	}

	if left := domain.MaxCallAttempts - lead.CallAttempts; left > 0 && status != domain.StatusPerso && !lead.Enrolled {
		resp.AttemptsLeft = left
	}

	return resp
}
