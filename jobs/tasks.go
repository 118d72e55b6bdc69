package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTokenUsageReport aggregates widget token usage into daily rollups.
	TaskTokenUsageReport = "tokens:usage_report"
	// TaskTokenExpirySweep deactivates tokens whose lifetime has elapsed.
	TaskTokenExpirySweep = "tokens:expiry_sweep"
)

// UsageReportPayload parameterises a usage report run.
type UsageReportPayload struct {
	// WindowHours bounds how far back the report looks. Zero means 24 hours.
	WindowHours int `json:"window_hours"`
}

// NewUsageReportTask constructs the usage report task.
func NewUsageReportTask(windowHours int) (*asynq.Task, error) {
	data, err := json.Marshal(UsageReportPayload{WindowHours: windowHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenUsageReport, data), nil
}

// ExpirySweepPayload parameterises an expiry sweep run.
type ExpirySweepPayload struct {
	// BatchSize caps how many tokens one run deactivates. Zero means 1000.
	BatchSize int `json:"batch_size"`
}

// NewExpirySweepTask constructs the expiry sweep task.
func NewExpirySweepTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(ExpirySweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenExpirySweep, data), nil
}
