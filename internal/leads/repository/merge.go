package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"corsi_crm_backend/internal/leads/domain"
)

type MergeParams struct {
	TenantID     uuid.UUID
	PrimaryID    uuid.UUID
	DuplicateIDs []uuid.UUID
	// Equivalence decides whether two course ids name the same offering.
	// Members of a merge set must agree on normalized name and canonical
	// course, otherwise the set is rejected.
	Equivalence domain.CourseEquivalence
}

// Merge folds duplicate leads into a primary and removes them. Everything
// happens inside one transaction with every member row locked FOR UPDATE,
// so concurrent outcome logging, claiming, or a second merge on the same
// rows serializes behind us instead of interleaving. Either the primary
// ends up with the reconciled fields and the duplicates are gone, or
// nothing changed at all.
func (r *Repository) Merge(ctx context.Context, params MergeParams) (Lead, error) {
	if len(params.DuplicateIDs) == 0 {
		return Lead{}, fmt.Errorf("%w: no duplicates given", ErrInvalidMerge)
	}
	seen := map[uuid.UUID]struct{}{params.PrimaryID: {}}
	for _, id := range params.DuplicateIDs {
		if _, dup := seen[id]; dup {
			return Lead{}, fmt.Errorf("%w: repeated id %s", ErrInvalidMerge, id)
		}
		seen[id] = struct{}{}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	members, err := lockMergeMembers(ctx, tx, params.TenantID, append([]uuid.UUID{params.PrimaryID}, params.DuplicateIDs...))
	if err != nil {
		return Lead{}, err
	}

	primary, ok := members[params.PrimaryID]
	if !ok {
		return Lead{}, fmt.Errorf("%w: primary %s", ErrMergeConflict, params.PrimaryID)
	}
	duplicates := make([]Lead, 0, len(params.DuplicateIDs))
	for _, id := range params.DuplicateIDs {
		member, ok := members[id]
		if !ok {
			return Lead{}, fmt.Errorf("%w: duplicate %s", ErrMergeConflict, id)
		}
		duplicates = append(duplicates, member)
	}

	if err := validateMergeSet(primary, duplicates, params.Equivalence); err != nil {
		return Lead{}, err
	}

	merged := reconcileMerge(primary, duplicates)

	for _, table := range []string{"lead_activity", "lead_tasks", "in_app_notifications"} {
		if _, err := tx.Exec(ctx,
			`UPDATE `+table+` SET lead_id = $1 WHERE lead_id = ANY($2)`,
			params.PrimaryID, params.DuplicateIDs,
		); err != nil {
			return Lead{}, fmt.Errorf("repoint %s: %w", table, err)
		}
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM leads WHERE tenant_id = $1 AND id = ANY($2)`,
		params.TenantID, params.DuplicateIDs,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("delete duplicates: %w", err)
	}
	if int(tag.RowsAffected()) != len(params.DuplicateIDs) {
		return Lead{}, ErrMergeConflict
	}

	result, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads SET
			enrolled = $3,
			enrolled_at = $4,
			status = $5,
			call_attempts = $6,
			contacted = $7,
			contacted_at = $8,
			first_attempt_at = $9,
			last_attempt_at = $10,
			email = $11,
			campaign = $12,
			notes = $13,
			lost_reason = $14,
			lost_at = $15,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		params.PrimaryID, params.TenantID,
		merged.Enrolled, merged.EnrolledAt, merged.Status, merged.CallAttempts,
		merged.Contacted, merged.ContactedAt, merged.FirstAttemptAt, merged.LastAttemptAt,
		merged.Email, merged.Campaign, merged.Notes, merged.LostReason, merged.LostAt,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrMergeConflict
	}
	if err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, fmt.Errorf("commit merge tx: %w", err)
	}
	return result, nil
}

// lockMergeMembers loads every member under FOR UPDATE. The ids are locked
// in a single statement, which orders acquisition by the scan and keeps two
// overlapping merges from deadlocking on each other.
func lockMergeMembers(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Lead, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND id = ANY($2) AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("lock merge members: %w", err)
	}
	defer rows.Close()

	members := make(map[uuid.UUID]Lead, len(ids))
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		members[lead.ID] = lead
	}
	return members, rows.Err()
}

// validateMergeSet checks that the members actually look like the same
// person on the same offering. Mismatched sets are caller bugs, not races.
func validateMergeSet(primary Lead, duplicates []Lead, equivalence domain.CourseEquivalence) error {
	name := domain.NormalizeName(primary.FirstName + " " + primary.LastName)
	course := equivalence.Canonical(primary.CourseID.String())
	for _, dup := range duplicates {
		if domain.NormalizeName(dup.FirstName+" "+dup.LastName) != name {
			return fmt.Errorf("%w: %s is not the same person", ErrInvalidMerge, dup.ID)
		}
		if equivalence.Canonical(dup.CourseID.String()) != course {
			return fmt.Errorf("%w: %s is for a different course", ErrInvalidMerge, dup.ID)
		}
	}
	return nil
}

// reconcileMerge folds duplicate fields into the primary. Enrollment never
// gets lost: enrolled is the OR of the set, enrolled_at the earliest among
// enrolled members, and an enrolled result is ISCRITTO regardless of what
// status the primary carried. Attempt history keeps the widest span.
func reconcileMerge(primary Lead, duplicates []Lead) Lead {
	merged := primary
	var notes []string
	if primary.Notes != nil && *primary.Notes != "" {
		notes = append(notes, *primary.Notes)
	}

	for _, dup := range duplicates {
		if dup.Enrolled {
			merged.Enrolled = true
			merged.EnrolledAt = earliestTime(merged.EnrolledAt, dup.EnrolledAt)
		}
		if dup.CallAttempts > merged.CallAttempts {
			merged.CallAttempts = dup.CallAttempts
		}
		if dup.Contacted {
			merged.Contacted = true
			merged.ContactedAt = earliestTime(merged.ContactedAt, dup.ContactedAt)
		}
		merged.FirstAttemptAt = earliestTime(merged.FirstAttemptAt, dup.FirstAttemptAt)
		merged.LastAttemptAt = latestTime(merged.LastAttemptAt, dup.LastAttemptAt)
		if merged.Email == nil && dup.Email != nil {
			merged.Email = dup.Email
		}
		if merged.Campaign == nil && dup.Campaign != nil {
			merged.Campaign = dup.Campaign
		}
		if dup.Notes != nil && *dup.Notes != "" {
			notes = append(notes, fmt.Sprintf("[unito da %s %s] %s", dup.FirstName, dup.LastName, *dup.Notes))
		}
	}

	if merged.Enrolled {
		merged.Status = string(domain.StatusIscritto)
		merged.LostReason = nil
		merged.LostAt = nil
	}
	if len(notes) > 0 {
		joined := strings.Join(notes, "\n")
		merged.Notes = &joined
	}
	return merged
}

func earliestTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Before(*a) {
		return b
	}
	return a
}

func latestTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}
