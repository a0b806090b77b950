package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQEntry records a job that exhausted its retries, with enough context to
// replay it manually.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Error    string          `json:"error"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

// SendToDLQ parks a permanently failed job on the queue's dead-letter list.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, errMsg string, attempts int) {
	entry := DLQEntry{
		Queue:    queue,
		Type:     jobType,
		Payload:  payload,
		Error:    errMsg,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to marshal DLQ entry")
		return
	}
	dlqKey := queue + ":dlq"
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq", dlqKey).Msg("failed to push to DLQ")
		return
	}
	log.Warn().
		Str("dlq", dlqKey).
		Str("type", jobType).
		Int("attempts", attempts).
		Str("error", errMsg).
		Msg("job sent to dead-letter queue")
}

// DLQLength reports how many jobs are parked on a queue's dead-letter list.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, queue+":dlq").Result()
}
