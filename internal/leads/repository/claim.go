package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Claim reassigns a PERSO lead to a new commercial and resets its attempt
// cycle. The whole decision lives in the WHERE clause: the update only
// matches while the lead is still lost, so of two simultaneous claimants
// exactly one can win. The loser sees zero affected rows and gets
// ErrClaimConflict; there is no separate read-then-write window.
//
// A lead whose inactivity window elapsed but which the sweeper has not
// visited yet already reads as PERSO, so the predicate accepts that case
// too; otherwise a claim on a visibly lost lead would spuriously conflict.
func (r *Repository) Claim(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, claimedBy uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			assigned_to = $3,
			status = 'CONTATTATO',
			call_attempts = 0,
			call_outcome = NULL,
			first_attempt_at = NULL,
			last_attempt_at = NULL,
			lost_reason = NULL,
			lost_at = NULL,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
			AND enrolled = false
			AND (
				status = 'PERSO'
				OR (status <> 'ISCRITTO'
					AND last_attempt_at IS NOT NULL
					AND last_attempt_at < now() - interval '15 days')
			)
		RETURNING `+leadColumns,
		id, tenantID, claimedBy,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrClaimConflict
	}
	return lead, err
}
