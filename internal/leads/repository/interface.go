package repository

import (
	"context"
	"time"

	"corsi_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID, now time.Time) (StatusCounts, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, params UpdateLeadParams) (Lead, error)
	Assign(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, assignee *uuid.UUID) (Lead, error)
	SetTarget(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, isTarget bool) (Lead, error)
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

// PipelineWriter moves leads through the guarded pipeline transitions.
// Every method is a conditional update; callers must treat ErrStateConflict
// as "the lead moved underneath you", not as an error to retry blindly.
type PipelineWriter interface {
	ApplyCallOutcome(ctx context.Context, params ApplyOutcomeParams) (Lead, error)
	StartNegotiation(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error)
	Enroll(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error)
}

// Claimer reassigns lost leads through the race-safe claim update.
type Claimer interface {
	Claim(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, claimedBy uuid.UUID) (Lead, error)
}

// Merger folds duplicate leads into a primary inside one transaction.
type Merger interface {
	Merge(ctx context.Context, params MergeParams) (Lead, error)
}

// Sweeper persists the inactivity rule in batch.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// ActivityStore records and reads the per-lead audit timeline.
type ActivityStore interface {
	AddActivity(ctx context.Context, params AddActivityParams) error
	ListActivity(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, limit int) ([]Activity, error)
}

// DuplicateSource feeds the duplicate detector.
type DuplicateSource interface {
	ListDuplicateCandidates(ctx context.Context, tenantID uuid.UUID) ([]domain.DuplicateCandidate, error)
}
