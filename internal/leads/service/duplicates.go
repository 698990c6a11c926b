package service

import (
	"context"

	"corsi_crm_backend/internal/events"
	"corsi_crm_backend/internal/leads/domain"
	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/internal/leads/transport"

	"github.com/google/uuid"
)

// Duplicates runs duplicate detection over the tenant's live leads.
// The report is advisory: nothing is mutated, and the service recomputes
// group membership from scratch inside Merge before touching anything.
func (s *Service) Duplicates(ctx context.Context, tenantID uuid.UUID) ([]transport.DuplicateGroupResponse, error) {
	equivalence, err := s.courses.Equivalence(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.ListDuplicateCandidates(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	groups := domain.DetectDuplicates(candidates, equivalence)

	responses := make([]transport.DuplicateGroupResponse, 0, len(groups))
	for _, group := range groups {
		members := make([]transport.DuplicateMemberResponse, 0, len(group.Members))
		for _, member := range group.Members {
			members = append(members, transport.DuplicateMemberResponse{
				ID:        member.ID,
				Name:      member.Name,
				Enrolled:  member.Enrolled,
				CreatedAt: member.CreatedAt,
			})
		}
		responses = append(responses, transport.DuplicateGroupResponse{
			NormalizedName:     group.NormalizedName,
			CourseKey:          group.CourseKey,
			Severity:           string(group.Severity),
			RecommendedPrimary: group.RecommendedPrimary,
			Members:            members,
		})
	}

	return responses, nil
}

// Merge folds the requested duplicates into the primary. The repository
// validates the set again under row locks, so a stale duplicate report
// cannot merge leads that stopped being duplicates in the meantime.
func (s *Service) Merge(ctx context.Context, tenantID uuid.UUID, actorID uuid.UUID, req transport.MergeLeadsRequest) (transport.LeadResponse, error) {
	equivalence, err := s.courses.Equivalence(ctx, tenantID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.Merge(ctx, repository.MergeParams{
		TenantID:     tenantID,
		PrimaryID:    req.PrimaryID,
		DuplicateIDs: req.DuplicateIDs,
		Equivalence:  equivalence,
	})
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	mergedIDs := make([]string, 0, len(req.DuplicateIDs))
	for _, id := range req.DuplicateIDs {
		mergedIDs = append(mergedIDs, id.String())
	}
	s.recordActivity(ctx, lead, &actorID, activityMerged, "Duplicati uniti", map[string]any{
		"mergedIds": mergedIDs,
	})

	s.bus.Publish(ctx, events.LeadsMerged{
		BaseEvent: events.NewBaseEvent(),
		PrimaryID: lead.ID,
		MergedIDs: req.DuplicateIDs,
		TenantID:  tenantID,
		ActorID:   actorID,
	})

	return s.toResponse(lead), nil
}
