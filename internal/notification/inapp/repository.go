package inapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corsi_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	errUserIDRequired = "userId is required"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	Category  string     `json:"category"`
	IsRead    bool       `json:"isRead"`
	CreatedAt time.Time  `json:"createdAt"`
}

type CreateParams struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Title    string
	Content  string
	LeadID   *uuid.UUID
	Category string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if p.TenantID == uuid.Nil || p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation("tenantId and userId are required").WithOp(opCreate)
	}
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required").WithOp(opCreate)
	}

	category := p.Category
	if category == "" {
		category = "info"
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO in_app_notifications (tenant_id, user_id, title, content, lead_id, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, title, content, lead_id, category, is_read, created_at
	`, p.TenantID, p.UserID, p.Title, p.Content, p.LeadID, category).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Content, &n.LeadID, &n.Category, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Notification{}, apperr.Validation("invalid tenantId or userId").WithOp(opCreate)
		}
		return Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}

	return n, nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, content, lead_id, category, is_read, created_at
		FROM in_app_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.LeadID, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notification failed: %v", err)).WithOp(opList)
		}
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1 AND is_read = false
	`, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread failed: %v", err)).WithOp(opCountUnread)
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.Validation(errUserIDRequired).WithOp(opMarkRead)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications SET is_read = true
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark read failed: %v", err)).WithOp(opMarkRead)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.Validation(errUserIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications SET is_read = true
		WHERE user_id = $1 AND is_read = false
	`, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all read failed: %v", err)).WithOp(opMarkAllRead)
	}
	return nil
}
