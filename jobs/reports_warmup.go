package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ringmotos/ringpos/internal/apiclient"
	jobmetrics "github.com/ringmotos/ringpos/internal/jobs"
	"github.com/ringmotos/ringpos/internal/reports"
)

// DashboardLoader loads and caches the reports dashboard.
type DashboardLoader interface {
	Dashboard(ctx context.Context, r reports.Range) (*reports.Dashboard, error)
}

// ReportsWarmupJob pre-populates the reports cache.
type ReportsWarmupJob struct {
	Reports DashboardLoader
	Token   string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler. token is the
// service token used when the payload carries none.
func NewReportsWarmupJob(loader DashboardLoader, token string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: loader,
		Token:   token,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle processes reports warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	rng, err := reports.ParseRange(payload.From, payload.To)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if rng.Empty() {
		rng = reports.CurrentMonth(j.now())
	}
	token := payload.Token
	if token == "" {
		token = j.Token
	}
	logger := j.logger().With(slog.String("from", rng.From), slog.String("to", rng.To))
	if token == "" {
		logger.Warn("reports warmup skipped: no api token configured")
		return nil
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	dash, err := j.Reports.Dashboard(apiclient.WithToken(ctx, token), rng)
	if err != nil {
		logger.Error("reports warmup", slog.Any("error", err))
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return tracker.End(fmt.Errorf("%w: %v", asynq.SkipRetry, err))
		}
		return tracker.End(err)
	}
	logger.Info("reports warmed", slog.Int("clients", len(dash.ByClient)), slog.Int("users", len(dash.ByUser)))
	return tracker.End(nil)
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
