package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lead does not exist (or is soft-deleted).
	ErrNotFound = errors.New("lead not found")
	// ErrStateConflict is returned when a conditional update matched no rows:
	// the lead moved to an ineligible state (or a newer version) between the
	// caller's read and the write.
	ErrStateConflict = errors.New("lead state changed concurrently")
	// ErrClaimConflict is returned when a claim lost the race: the lead is no
	// longer PERSO, typically because another commercial claimed it first.
	ErrClaimConflict = errors.New("lead already claimed")
	// ErrMergeConflict is returned when a merge member disappeared mid-merge.
	ErrMergeConflict = errors.New("merge member no longer exists")
	// ErrInvalidMerge is returned when the requested ids do not form a valid
	// merge set. This is a caller bug, not a race.
	ErrInvalidMerge = errors.New("invalid merge set")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks database reachability for health endpoints.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type Lead struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	FirstName      string
	LastName       string
	Phone          string
	Email          *string
	CourseID       uuid.UUID
	Campaign       *string
	Status         string
	Contacted      bool
	ContactedAt    *time.Time
	CallOutcome    *string
	CallAttempts   int
	FirstAttemptAt *time.Time
	LastAttemptAt  *time.Time
	Enrolled       bool
	EnrolledAt     *time.Time
	IsTarget       bool
	AssignedTo     *uuid.UUID
	LostReason     *string
	LostAt         *time.Time
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const leadColumns = `id, tenant_id, first_name, last_name, phone, email, course_id, campaign,
	status, contacted, contacted_at, call_outcome, call_attempts, first_attempt_at, last_attempt_at,
	enrolled, enrolled_at, is_target, assigned_to, lost_reason, lost_at, notes, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Phone, &lead.Email,
		&lead.CourseID, &lead.Campaign, &lead.Status, &lead.Contacted, &lead.ContactedAt,
		&lead.CallOutcome, &lead.CallAttempts, &lead.FirstAttemptAt, &lead.LastAttemptAt,
		&lead.Enrolled, &lead.EnrolledAt, &lead.IsTarget, &lead.AssignedTo,
		&lead.LostReason, &lead.LostAt, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type CreateLeadParams struct {
	TenantID   uuid.UUID
	FirstName  string
	LastName   string
	Phone      string
	Email      *string
	CourseID   uuid.UUID
	Campaign   *string
	IsTarget   bool
	AssignedTo *uuid.UUID
	Notes      *string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (tenant_id, first_name, last_name, phone, email, course_id, campaign, is_target, assigned_to, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		params.TenantID, params.FirstName, params.LastName, params.Phone, params.Email,
		params.CourseID, params.Campaign, params.IsTarget, params.AssignedTo, params.Notes,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`, id, tenantID))
}

type UpdateLeadParams struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Email     *string
	CourseID  *uuid.UUID
	Campaign  *string
	Notes     *string
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// Update patches contact fields only. Pipeline state (status, counters,
// enrollment, loss markers) is never writable through this path; those move
// through the outcome, claim, enroll, and sweep operations.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.FirstName != nil, "first_name", derefString(params.FirstName)},
		{params.LastName != nil, "last_name", derefString(params.LastName)},
		{params.Phone != nil, "phone", derefString(params.Phone)},
		{params.Email != nil, "email", params.Email},
		{params.CourseID != nil, "course_id", params.CourseID},
		{params.Campaign != nil, "campaign", params.Campaign},
		{params.Notes != nil, "notes", params.Notes},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id, tenantID)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id, tenantID)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d AND tenant_id = $%d AND deleted_at IS NULL
		RETURNING `+leadColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1)

	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

// Assign sets or clears the owning commercial.
func (r *Repository) Assign(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, assignee *uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET assigned_to = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, tenantID, assignee,
	))
}

// SetTarget toggles the priority flag; it is independent of pipeline status.
func (r *Repository) SetTarget(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, isTarget bool) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET is_target = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, tenantID, isTarget,
	))
}

// StartNegotiation moves a CONTATTATO lead into IN_TRATTATIVA. The status
// guard in the WHERE clause makes the transition race-safe; zero affected
// rows means the lead was not eligible anymore.
func (r *Repository) StartNegotiation(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = 'IN_TRATTATIVA', updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL AND status = 'CONTATTATO'
		RETURNING `+leadColumns,
		id, tenantID,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrStateConflict
	}
	return lead, err
}

// Enroll marks the lead ISCRITTO. Guarded the same way as StartNegotiation:
// terminal or already-enrolled leads match no rows.
func (r *Repository) Enroll(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = 'ISCRITTO', enrolled = true,
			enrolled_at = COALESCE(enrolled_at, now()), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
			AND status NOT IN ('ISCRITTO', 'PERSO') AND enrolled = false
		RETURNING `+leadColumns,
		id, tenantID,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrStateConflict
	}
	return lead, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`, id, tenantID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
