package repository

import (
	"context"
	"errors"
	"time"

	"corsi_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ApplyOutcomeParams carries the computed next state of a call-outcome log.
// ExpectedAttempts is the counter value the caller read; it acts as the
// optimistic version for the conditional update.
type ApplyOutcomeParams struct {
	LeadID           uuid.UUID
	TenantID         uuid.UUID
	ExpectedAttempts int
	Result           domain.CallResult
}

// ApplyCallOutcome persists a call outcome with a single conditional UPDATE.
//
// The WHERE clause guards both the terminal lock (status/enrolled) and the
// attempt counter: the increment is expressed server-side and only applies
// when the counter still holds the value the caller based its computation
// on. Two concurrent logs on the same lead therefore cannot both succeed
// with the same base counter; the loser gets ErrStateConflict.
func (r *Repository) ApplyCallOutcome(ctx context.Context, params ApplyOutcomeParams) (Lead, error) {
	result := params.Result

	var lostReason *string
	if result.LostReason != "" {
		lostReason = &result.LostReason
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			status = $3,
			call_outcome = $4,
			call_attempts = call_attempts + 1,
			contacted = true,
			contacted_at = COALESCE(contacted_at, $5),
			first_attempt_at = COALESCE(first_attempt_at, $5),
			last_attempt_at = $5,
			lost_reason = $6,
			lost_at = $7,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
			AND status NOT IN ('PERSO', 'ISCRITTO')
			AND enrolled = false
			AND call_attempts = $8
		RETURNING `+leadColumns,
		params.LeadID, params.TenantID,
		string(result.Status), string(result.Outcome), result.LastAttemptAt,
		lostReason, result.LostAt,
		params.ExpectedAttempts,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrStateConflict
	}
	return lead, err
}

// SweepExpired transitions every stale lead to PERSO in one statement and
// returns how many rows were swept. The predicate mirrors
// domain.IsExpired so the persisted transition and the read-time effective
// status can never disagree.
func (r *Repository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			status = 'PERSO',
			lost_reason = $2,
			lost_at = $1,
			updated_at = now()
		WHERE deleted_at IS NULL
			AND status NOT IN ('PERSO', 'ISCRITTO')
			AND enrolled = false
			AND last_attempt_at IS NOT NULL
			AND last_attempt_at < $1::timestamptz - interval '15 days'
	`, now, domain.LostReasonInactivity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// ListDuplicateCandidates projects every live lead of a tenant into the
// shape the duplicate detector consumes. A slightly stale snapshot is fine;
// detection is advisory and read-only.
func (r *Repository) ListDuplicateCandidates(ctx context.Context, tenantID uuid.UUID) ([]domain.DuplicateCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name || ' ' || last_name, course_id, enrolled, created_at
		FROM leads
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]domain.DuplicateCandidate, 0)
	for rows.Next() {
		var candidate domain.DuplicateCandidate
		var courseID uuid.UUID
		if err := rows.Scan(&candidate.ID, &candidate.Name, &courseID, &candidate.Enrolled, &candidate.CreatedAt); err != nil {
			return nil, err
		}
		candidate.CourseKey = courseID.String()
		candidates = append(candidates, candidate)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return candidates, nil
}
