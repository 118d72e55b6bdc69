package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tutorhub/tutorhub/internal/jobs"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// ExpirySweepJob moves expired tokens to the inactive state. Validation
// already rejects expired tokens on read; the sweep keeps the active set
// small so value lookups stay on the partial index.
type ExpirySweepJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewExpirySweepJob wires dependencies for the sweep handler.
func NewExpirySweepJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpirySweepJob {
	return &ExpirySweepJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes expiry sweep tasks.
func (j *ExpirySweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("expiry sweep: handler not configured")
	}
	var payload ExpirySweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = 1000
	}

	tracker := j.metrics().Track(TaskTokenExpirySweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("batch_size", payload.BatchSize))
	logger.Info("starting token expiry sweep")

	if j.Pool == nil {
		resultErr = errors.New("expiry sweep: pool not configured")
		return resultErr
	}

	start := j.now()
	swept := 0
	for {
		tag, err := j.Pool.Exec(ctx, `
			UPDATE widget_tokens
			SET status = 'inactive', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM widget_tokens
				WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= NOW()
				LIMIT $1
			)`,
			payload.BatchSize,
		)
		if err != nil {
			resultErr = err
			logger.Error("sweep batch", slog.Any("error", err))
			return resultErr
		}
		n := int(tag.RowsAffected())
		swept += n
		if n < payload.BatchSize {
			break
		}
	}

	j.metrics().AddDeactivated("expired", swept)

	// Old idempotency keys ride along with the hourly sweep.
	if err := shared.NewIdempotencyStore(j.Pool).Cleanup(ctx, 48*time.Hour); err != nil {
		logger.Warn("cleanup idempotency keys", slog.Any("error", err))
	}

	logger.Info("completed token expiry sweep",
		slog.Int("swept", swept),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ExpirySweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTokenExpirySweep))
	}
	return slog.Default().With(slog.String("job", TaskTokenExpirySweep))
}

func (j *ExpirySweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ExpirySweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
