// Package service holds the lead lifecycle orchestration: CRUD, the call
// outcome pipeline, claiming, duplicate detection, and merging. Business
// rules live in domain; persistence and race guards live in repository;
// this package wires them together, maps errors, and publishes events.
package service

import (
	"context"
	"errors"
	"time"

	"corsi_crm_backend/internal/events"
	"corsi_crm_backend/internal/leads/domain"
	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/internal/leads/transport"
	"corsi_crm_backend/platform/apperr"
	"corsi_crm_backend/platform/logger"
	"corsi_crm_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 25

	activityCreated     = "created"
	activityUpdated     = "updated"
	activityAssigned    = "assigned"
	activityTargeted    = "target_changed"
	activityCallLogged  = "call_logged"
	activityNegotiation = "negotiation_started"
	activityEnrolled    = "enrolled"
	activityClaimed     = "claimed"
	activityMerged      = "merged"
)

// Repository is the consumer-driven composite of everything the lead
// service needs from persistence.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.PipelineWriter
	repository.Claimer
	repository.Merger
	repository.ActivityStore
	repository.DuplicateSource
}

// EquivalenceProvider resolves the tenant's course equivalence table.
// Implemented by the courses module.
type EquivalenceProvider interface {
	Equivalence(ctx context.Context, tenantID uuid.UUID) (domain.CourseEquivalence, error)
}

type Service struct {
	repo    Repository
	courses EquivalenceProvider
	bus     events.Bus
	log     *logger.Logger
	now     func() time.Time
}

func New(repo Repository, courses EquivalenceProvider, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
		bus:     bus,
		log:     log,
		now:     time.Now,
	}
}

// Create registers a new lead in NUOVO.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, actorID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		TenantID:   tenantID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      phone.NormalizeE164(req.Phone),
		CourseID:   req.CourseID,
		IsTarget:   req.IsTarget,
		AssignedTo: req.AssignedTo,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}
	if req.Campaign != "" {
		params.Campaign = &req.Campaign
	}
	if req.Notes != "" {
		params.Notes = &req.Notes
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.recordActivity(ctx, lead, &actorID, activityCreated, "Lead creato", nil)

	event := events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		CourseID:   lead.CourseID,
		AssignedTo: lead.AssignedTo,
		Name:       lead.FirstName + " " + lead.LastName,
		Phone:      lead.Phone,
	}
	if lead.Campaign != nil {
		event.Campaign = *lead.Campaign
	}
	s.bus.Publish(ctx, event)

	return s.toResponse(lead), nil
}

// GetByID returns a single lead with the inactivity rule applied.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}
	return s.toResponse(lead), nil
}

// List returns a filtered page of leads.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListLeadsRequest) (transport.ListLeadsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	leads, total, err := s.repo.List(ctx, repository.ListParams{
		TenantID:   tenantID,
		Status:     req.Status,
		CourseID:   req.CourseID,
		AssignedTo: req.AssignedTo,
		IsTarget:   req.IsTarget,
		Campaign:   req.Campaign,
		Search:     req.Search,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		return transport.ListLeadsResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, s.toResponse(lead))
	}

	return transport.ListLeadsResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Update patches contact fields. Pipeline state never moves through here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	params := repository.UpdateLeadParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		CourseID:  req.CourseID,
		Campaign:  req.Campaign,
		Notes:     req.Notes,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	lead, err := s.repo.Update(ctx, id, tenantID, params)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	s.recordActivity(ctx, lead, &actorID, activityUpdated, "Dati anagrafici aggiornati", nil)
	return s.toResponse(lead), nil
}

// Assign sets or clears the owning commercial.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID, assignee *uuid.UUID) (transport.LeadResponse, error) {
	previous, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	lead, err := s.repo.Assign(ctx, id, tenantID, assignee)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	s.recordActivity(ctx, lead, &actorID, activityAssigned, "Lead assegnato", map[string]any{
		"previous": uuidPtrString(previous.AssignedTo),
		"new":      uuidPtrString(assignee),
	})

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		TenantID:      lead.TenantID,
		PreviousOwner: previous.AssignedTo,
		NewOwner:      assignee,
		AssignedByID:  actorID,
		LeadName:      lead.FirstName + " " + lead.LastName,
	})

	return s.toResponse(lead), nil
}

// SetTarget toggles the priority flag.
func (s *Service) SetTarget(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID, isTarget bool) (transport.LeadResponse, error) {
	lead, err := s.repo.SetTarget(ctx, id, tenantID, isTarget)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}
	s.recordActivity(ctx, lead, &actorID, activityTargeted, "Flag target aggiornato", map[string]any{
		"isTarget": isTarget,
	})
	return s.toResponse(lead), nil
}

// Delete soft-deletes a lead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, tenantID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Stats returns per-status counts with the total.
func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (transport.StatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx, tenantID, s.now())
	if err != nil {
		return transport.StatsResponse{}, err
	}

	total := 0
	for _, count := range counts.Counts {
		total += count
	}

	return transport.StatsResponse{
		Counts:       counts.Counts,
		Total:        total,
		ExpiringSoon: counts.ExpiringSoon,
	}, nil
}

// Activity returns a lead's timeline.
func (s *Service) Activity(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, limit int) ([]transport.ActivityResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return nil, mapRepoError(err)
	}

	entries, err := s.repo.ListActivity(ctx, leadID, tenantID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, transport.ActivityResponse{
			ID:        entry.ID,
			LeadID:    entry.LeadID,
			ActorID:   entry.ActorID,
			Kind:      entry.Kind,
			Message:   entry.Message,
			Meta:      entry.Meta,
			CreatedAt: entry.CreatedAt,
		})
	}
	return responses, nil
}

// recordActivity appends a timeline entry. Timeline writes are best-effort;
// a failed audit row must not fail the operation it describes.
func (s *Service) recordActivity(ctx context.Context, lead repository.Lead, actorID *uuid.UUID, kind, message string, meta map[string]any) {
	err := s.repo.AddActivity(ctx, repository.AddActivityParams{
		TenantID: lead.TenantID,
		LeadID:   lead.ID,
		ActorID:  actorID,
		Kind:     kind,
		Message:  message,
		Meta:     meta,
	})
	if err != nil {
		s.log.Error("record lead activity failed", "error", err, "leadId", lead.ID, "kind", kind)
	}
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrStateConflict):
		return apperr.Conflict("lead state changed, reload and retry")
	case errors.Is(err, repository.ErrClaimConflict):
		return apperr.Conflict("lead already claimed")
	case errors.Is(err, repository.ErrMergeConflict):
		return apperr.Conflict("merge set changed, reload duplicates and retry")
	case errors.Is(err, repository.ErrInvalidMerge):
		return apperr.Validation(err.Error())
	case errors.Is(err, domain.ErrTerminalLead):
		return apperr.Conflict("lead is in a terminal state")
	default:
		return err
	}
}

func uuidPtrString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
