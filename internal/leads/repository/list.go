package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ListParams struct {
	TenantID   uuid.UUID
	Status     *string
	CourseID   *uuid.UUID
	AssignedTo *uuid.UUID
	IsTarget   *bool
	Campaign   *string
	Search     string
	Offset     int
	Limit      int
	SortBy     string
	SortOrder  string
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn := mapLeadSortColumn(params.SortBy)
	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	// Tenant ID is always the first filter (mandatory for tenant isolation)
	whereClauses := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{params.TenantID}
	argIdx := 2

	addEquals := func(column string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Status != nil {
		addEquals("status", *params.Status)
	}
	if params.CourseID != nil {
		addEquals("course_id", *params.CourseID)
	}
	if params.AssignedTo != nil {
		addEquals("assigned_to", *params.AssignedTo)
	}
	if params.IsTarget != nil {
		addEquals("is_target", *params.IsTarget)
	}
	if params.Campaign != nil {
		addEquals("campaign", *params.Campaign)
	}
	if params.Search != "" {
		searchPattern := "%" + params.Search + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, searchPattern)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "firstName":
		return "first_name"
	case "lastName":
		return "last_name"
	case "status":
		return "status"
	case "callAttempts":
		return "call_attempts"
	case "lastAttemptAt":
		return "last_attempt_at"
	default:
		return "created_at"
	}
}

// StatusCounts is the per-status breakdown used by the dashboard endpoints.
type StatusCounts struct {
	Counts       map[string]int
	ExpiringSoon int
}

// CountByStatus returns per-status lead counts plus the number of leads
// entering the last three days of their inactivity window.
func (r *Repository) CountByStatus(ctx context.Context, tenantID uuid.UUID, now time.Time) (StatusCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY status
	`, tenantID)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, err
		}
		counts[status] = count
	}
	if rows.Err() != nil {
		return StatusCounts{}, rows.Err()
	}

	var expiring int
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM leads
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND status NOT IN ('ISCRITTO', 'PERSO') AND enrolled = false
			AND last_attempt_at IS NOT NULL
			AND last_attempt_at < $2::timestamptz - interval '12 days'
	`, tenantID, now).Scan(&expiring)
	if err != nil {
		return StatusCounts{}, err
	}

	return StatusCounts{Counts: counts, ExpiringSoon: expiring}, nil
}
