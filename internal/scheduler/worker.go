package scheduler

import (
	"context"
	"fmt"
	"time"

	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ExpiryCoordinator is the slice of the claim coordinator the worker needs.
// The coordinator state is in-memory, so the worker runs in the same
// process as the HTTP server.
type ExpiryCoordinator interface {
	Expire(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) int
}

type Worker struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	coord         ExpiryCoordinator
	log           *logger.Logger
	sweepInterval time.Duration
}

func NewWorker(cfg config.SchedulerConfig, coord ExpiryCoordinator, log *logger.Logger) (*Worker, error) {
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

	sweepInterval := cfg.GetSweepInterval()
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:        server,
		mux:           mux,
		coord:         coord,
		log:           log,
		sweepInterval: sweepInterval,
	}

	mux.HandleFunc(TaskClaimExpire, w.handleClaimExpire)

	return w, nil
}

func (w *Worker) handleClaimExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseClaimExpirePayload(task)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		return err
	}

	// A request claimed, cancelled or unknown by now is fine; the task is
	// only a deadline, not a command.
	if _, err := w.coord.Expire(ctx, requestID, time.Now()); err != nil {
		w.log.Debug("deferred expiry skipped", "requestId", requestID, "reason", err)
	}
	return nil
}

// Run serves tasks and sweeps on an interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.coord.SweepExpired(ctx, time.Now())
			}
		}
	}()

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
