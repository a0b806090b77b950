package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueClosureAlerts = "jobs:closure_alerts"

	maxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueClosureAlert pushes a discrepancy-alert notification job.
func (d *Dispatcher) EnqueueClosureAlert(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueClosureAlerts, "closure_alert", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers maps queues to their processors, wired at the composition root.
type Handlers struct {
	ClosureAlert *ClosureAlertWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	queues := []string{QueueClosureAlerts}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	switch job.Type {
	case "closure_alert":
		if handlers.ClosureAlert == nil {
			log.Warn().Msg("closure_alert job received but no handler wired")
			return
		}
		err := withRetry(ctx, maxAttempts, func(attempt int) error {
			return handlers.ClosureAlert.Process(ctx, job.Payload)
		})
		if err != nil {
			SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), maxAttempts)
		}
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type")
	}
}

// withRetry runs fn up to attempts times with exponential backoff (1s, 2s, …).
func withRetry(ctx context.Context, attempts int, fn func(attempt int) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		backoff := time.Duration(1<<(i-1)) * time.Second
		log.Warn().Err(err).Int("attempt", i).Dur("backoff", backoff).Msg("job attempt failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
