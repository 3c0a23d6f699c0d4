package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/ringmotos/ringpos/internal/apiclient"
	jobmetrics "github.com/ringmotos/ringpos/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RemitoPrinter marks a remito as printed upstream.
type RemitoPrinter interface {
	MarkRemitoPrinted(ctx context.Context, remitoID string) error
}

// RemitoPrintedJob handles TaskRemitoMarkPrinted.
type RemitoPrintedJob struct {
	Printer RemitoPrinter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRemitoPrintedJob wires dependencies for the print-mark handler.
func NewRemitoPrintedJob(printer RemitoPrinter, logger *slog.Logger, metrics *jobmetrics.Metrics) *RemitoPrintedJob {
	return &RemitoPrintedJob{Printer: printer, Logger: logger, Metrics: metrics}
}

// Handle posts the print mark. Client errors are not retried.
func (j *RemitoPrintedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Printer == nil {
		return errors.New("remito printed: handler not configured")
	}
	var payload RemitoPrintedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RemitoID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRemitoMarkPrinted)
	logger := j.logger().With(slog.String("remito_id", payload.RemitoID))

	err := j.Printer.MarkRemitoPrinted(apiclient.WithToken(ctx, payload.Token), payload.RemitoID)
	if err != nil {
		logger.Warn("mark remito printed", slog.Any("error", err))
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
			return tracker.End(fmt.Errorf("%w: %v", asynq.SkipRetry, err))
		}
		return tracker.End(err)
	}
	j.metrics().RemitoPrinted()
	logger.Info("remito marked as printed")
	return tracker.End(nil)
}

func (j *RemitoPrintedJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RemitoPrintedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// RemitoNotifier queues print marks instead of calling the upstream inline.
type RemitoNotifier struct {
	client *Client
}

// NewRemitoNotifier builds a RemitoNotifier.
func NewRemitoNotifier(client *Client) *RemitoNotifier {
	return &RemitoNotifier{client: client}
}

// NotifyPrinted enqueues the mark with the caller's bearer token.
func (n *RemitoNotifier) NotifyPrinted(ctx context.Context, remitoID string) error {
	_, err := n.client.EnqueueRemitoPrinted(ctx, RemitoPrintedPayload{
		RemitoID: remitoID,
		Token:    apiclient.TokenFrom(ctx),
	})
	return err
}
