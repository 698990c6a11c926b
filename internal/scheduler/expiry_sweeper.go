package scheduler

import (
	"context"
	"time"

	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSweepInterval = time.Hour

// ExpirySweeper periodically triggers the inactivity sweep. With a queue
// client configured it enqueues the sweep as a task so exactly one worker
// runs it; without one it sweeps directly in-process.
type ExpirySweeper struct {
	repo     *repository.Repository
	client   *Client
	log      *logger.Logger
	interval time.Duration
}

func NewExpirySweeper(pool *pgxpool.Pool, client *Client, log *logger.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{
		repo:     repository.New(pool),
		client:   client,
		log:      log,
		interval: interval,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}

	s.trigger(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *ExpirySweeper) trigger(ctx context.Context) {
	now := time.Now()

	if s.client != nil {
		err := s.client.EnqueueExpirySweep(ctx, LeadExpirySweepPayload{RequestedAt: now})
		if err == nil {
			return
		}
		s.log.Warn("enqueue expiry sweep failed, sweeping in-process", "error", err)
	}

	swept, err := s.repo.SweepExpired(ctx, now)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err)
		return
	}
	s.log.SweepResult(int(swept), float64(time.Since(now).Milliseconds()))
}
