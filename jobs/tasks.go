package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRemitoMarkPrinted tells the upstream a remito was printed.
	TaskRemitoMarkPrinted = "remito:mark_printed"
	// TaskReportsWarmup fills the reports cache for a date range.
	TaskReportsWarmup = "reports:warmup"

	// ReportsWarmupCron runs the warmup every 15 minutes.
	ReportsWarmupCron = "*/15 * * * *"

	remitoMaxRetry = 3
)

// RemitoPrintedPayload identifies the remito and the operator token to act with.
type RemitoPrintedPayload struct {
	RemitoID string `json:"remitoId"`
	Token    string `json:"token"`
}

// ReportsWarmupPayload selects the range to warm. Empty means the current month.
type ReportsWarmupPayload struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Token string `json:"token,omitempty"`
}

// NewRemitoPrintedTask constructs the print-mark task.
func NewRemitoPrintedTask(payload RemitoPrintedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRemitoMarkPrinted, data, asynq.MaxRetry(remitoMaxRetry), asynq.Queue(QueueDefault)), nil
}

// NewReportsWarmupTask constructs the warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data, asynq.MaxRetry(1), asynq.Queue(QueueDefault)), nil
}
