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
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// UsageReportJob rolls widget token usage up into daily per-resource rows
// so dashboards do not have to aggregate the hot table.
type UsageReportJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewUsageReportJob wires dependencies for the usage report handler.
func NewUsageReportJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *UsageReportJob {
	return &UsageReportJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes usage report tasks.
func (j *UsageReportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("usage report: handler not configured")
	}
	var payload UsageReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowHours <= 0 {
		payload.WindowHours = 24
	}

	tracker := j.metrics().Track(TaskTokenUsageReport)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("window_hours", payload.WindowHours))
	logger.Info("starting token usage report")

	if j.Pool == nil {
		resultErr = errors.New("usage report: pool not configured")
		return resultErr
	}

	now := j.now()
	since := now.Add(-time.Duration(payload.WindowHours) * time.Hour)

	tag, err := j.Pool.Exec(ctx, `
		INSERT INTO token_usage_daily (day, resource_kind, resource_id, validations, tokens_seen)
		SELECT $1::date, resource_kind, resource_id, SUM(usage_count), COUNT(*)
		FROM widget_tokens
		WHERE last_used_at >= $2
		GROUP BY resource_kind, resource_id
		ON CONFLICT (day, resource_kind, resource_id)
		DO UPDATE SET validations = EXCLUDED.validations, tokens_seen = EXCLUDED.tokens_seen`,
		now, since,
	)
	if err != nil {
		resultErr = err
		logger.Error("aggregate usage", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed token usage report",
		slog.Int64("resources", tag.RowsAffected()),
		slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *UsageReportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTokenUsageReport))
	}
	return slog.Default().With(slog.String("job", TaskTokenUsageReport))
}

func (j *UsageReportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *UsageReportJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
