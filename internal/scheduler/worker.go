package scheduler

import (
	"context"
	"fmt"
	"time"

	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   *repository.Repository
	log    *logger.Logger
}

func NewWorker(cfg Config, pool *pgxpool.Pool, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		log:    log,
	}

	mux.HandleFunc(TaskLeadExpirySweep, w.handleLeadExpirySweep)

	return w, nil
}

func (w *Worker) handleLeadExpirySweep(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseLeadExpirySweepPayload(task); err != nil {
		return err
	}

	start := time.Now()
	swept, err := w.repo.SweepExpired(ctx, start)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}

	w.log.SweepResult(int(swept), float64(time.Since(start).Milliseconds()))
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
