package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corsi_crm_backend/internal/config"
	"corsi_crm_backend/internal/scheduler"
	"corsi_crm_backend/platform/db"
	"corsi_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting expiry sweeper", "env", cfg.Env, "interval", cfg.SweepInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// The distributed queue is optional: without Redis the sweeper still
	// runs the sweep in-process on every tick.
	var client *scheduler.Client
	var worker *scheduler.Worker
	if cfg.GetRedisURL() != "" {
		client, err = scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to create task client", "error", err)
			panic("failed to create task client: " + err.Error())
		}
		defer client.Close()

		worker, err = scheduler.NewWorker(cfg, pool, log)
		if err != nil {
			log.Error("failed to create task worker", "error", err)
			panic("failed to create task worker: " + err.Error())
		}
		log.Info("task queue enabled", "queue", cfg.GetAsynqQueueName())
	} else {
		log.Warn("REDIS_URL not set; running sweeps in-process")
	}

	sweeper := scheduler.NewExpirySweeper(pool, client, log, cfg.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	_ = g.Wait()
	log.Info("sweeper shut down cleanly")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
