package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errUserUnknown = errors.New("user not found")

// Recipient is the minimal user projection needed to address a notification.
type Recipient struct {
	Email    string
	FullName string
}

// RecipientResolver turns a user id into a deliverable address.
type RecipientResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (Recipient, error)
}

// userDirectory resolves recipients from the users table. User lifecycle is
// managed outside this service; we only read.
type userDirectory struct {
	pool *pgxpool.Pool
}

func newUserDirectory(pool *pgxpool.Pool) *userDirectory {
	return &userDirectory{pool: pool}
}

func (d *userDirectory) Resolve(ctx context.Context, userID uuid.UUID) (Recipient, error) {
	var recipient Recipient
	err := d.pool.QueryRow(ctx, `
		SELECT email, full_name FROM users WHERE id = $1
	`, userID).Scan(&recipient.Email, &recipient.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, errUserUnknown
	}
	return recipient, err
}
