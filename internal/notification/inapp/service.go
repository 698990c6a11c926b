package inapp

import (
	"context"

	"corsi_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

type SendParams struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Title    string
	Content  string
	LeadID   *uuid.UUID
	Category string // "info", "success", "warning", "error"
}

// Send persists the notification for the user's bell icon.
func (s *Service) Send(ctx context.Context, p SendParams) error {
	if p.Category == "" {
		p.Category = "info"
	}

	_, err := s.repo.Create(ctx, CreateParams{
		TenantID: p.TenantID,
		UserID:   p.UserID,
		Title:    p.Title,
		Content:  p.Content,
		LeadID:   p.LeadID,
		Category: p.Category,
	})
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", p.UserID)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
