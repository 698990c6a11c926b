// Package courses holds the course offering catalog: the courses a tenant
// sells and the alias pairs that declare two offerings equivalent for
// duplicate detection. The context has no HTTP surface; it exists to serve
// the leads pipeline.
package courses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("course not found")

type Course struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// AliasPair declares that leads for Alias belong to the same offering as
// leads for Canonical.
type AliasPair struct {
	AliasCourseID     uuid.UUID
	CanonicalCourseID uuid.UUID
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (Course, error) {
	var course Course
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, active, created_at
		FROM courses WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&course.ID, &course.TenantID, &course.Name, &course.Active, &course.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	return course, err
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]Course, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, active, created_at
		FROM courses WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := make([]Course, 0)
	for rows.Next() {
		var course Course
		if err := rows.Scan(&course.ID, &course.TenantID, &course.Name, &course.Active, &course.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

// ListAliasPairs loads the tenant's course equivalence declarations.
func (r *Repository) ListAliasPairs(ctx context.Context, tenantID uuid.UUID) ([]AliasPair, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT alias_course_id, canonical_course_id
		FROM course_aliases WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list course aliases: %w", err)
	}
	defer rows.Close()

	pairs := make([]AliasPair, 0)
	for rows.Next() {
		var pair AliasPair
		if err := rows.Scan(&pair.AliasCourseID, &pair.CanonicalCourseID); err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}
