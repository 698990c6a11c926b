package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Activity struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	LeadID    uuid.UUID
	ActorID   *uuid.UUID
	Kind      string
	Message   string
	Meta      map[string]any
	CreatedAt time.Time
}

type AddActivityParams struct {
	TenantID uuid.UUID
	LeadID   uuid.UUID
	ActorID  *uuid.UUID
	Kind     string
	Message  string
	Meta     map[string]any
}

// AddActivity appends a timeline entry. Meta is stored as jsonb so entries
// can carry structured context (outcome, attempt number, merge sources)
// without schema churn.
func (r *Repository) AddActivity(ctx context.Context, params AddActivityParams) error {
	meta := params.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activity (tenant_id, lead_id, actor_id, kind, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, params.TenantID, params.LeadID, params.ActorID, params.Kind, params.Message, meta)
	if err != nil {
		return fmt.Errorf("insert lead activity: %w", err)
	}
	return nil
}

// ListActivity returns a lead's timeline, newest first.
func (r *Repository) ListActivity(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, lead_id, actor_id, kind, message, meta, created_at
		FROM lead_activity
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, leadID, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lead activity: %w", err)
	}
	defer rows.Close()

	entries := make([]Activity, 0)
	for rows.Next() {
		var entry Activity
		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.LeadID, &entry.ActorID,
			&entry.Kind, &entry.Message, &entry.Meta, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
