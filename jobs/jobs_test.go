package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/apiclient"
	jobmetrics "github.com/ringmotos/ringpos/internal/jobs"
	"github.com/ringmotos/ringpos/internal/reports"
)

type fakePrinter struct {
	err    error
	token  string
	remito string
}

func (f *fakePrinter) MarkRemitoPrinted(ctx context.Context, remitoID string) error {
	f.token = apiclient.TokenFrom(ctx)
	f.remito = remitoID
	return f.err
}

type fakeLoader struct {
	got   reports.Range
	token string
	err   error
}

func (f *fakeLoader) Dashboard(ctx context.Context, r reports.Range) (*reports.Dashboard, error) {
	f.got = r
	f.token = apiclient.TokenFrom(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &reports.Dashboard{Range: r}, nil
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestRemitoTaskOptions(t *testing.T) {
	task, err := NewRemitoPrintedTask(RemitoPrintedPayload{RemitoID: "r-1", Token: "tok"})
	require.NoError(t, err)
	require.Equal(t, TaskRemitoMarkPrinted, task.Type())
	var payload RemitoPrintedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "r-1", payload.RemitoID)
}

func TestRemitoPrintedJobUsesPayloadToken(t *testing.T) {
	printer := &fakePrinter{}
	job := NewRemitoPrintedJob(printer, nil, testMetrics())
	task, _ := NewRemitoPrintedTask(RemitoPrintedPayload{RemitoID: "r-9", Token: "operator-token"})

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, "r-9", printer.remito)
	require.Equal(t, "operator-token", printer.token)
}

func TestRemitoPrintedJobSkipsRetryOnClientErrors(t *testing.T) {
	printer := &fakePrinter{err: &apiclient.Error{Method: http.MethodPost, Path: "/remitos/r-1/printed", Status: http.StatusNotFound}}
	job := NewRemitoPrintedJob(printer, nil, testMetrics())
	task, _ := NewRemitoPrintedTask(RemitoPrintedPayload{RemitoID: "r-1"})

	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	printer.err = errors.New("connection reset")
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestRemitoPrintedJobRejectsBadPayload(t *testing.T) {
	job := NewRemitoPrintedJob(&fakePrinter{}, nil, testMetrics())
	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskRemitoMarkPrinted, []byte(`{}`))), asynq.SkipRetry)
	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskRemitoMarkPrinted, []byte(`nope`))), asynq.SkipRetry)
}

func TestReportsWarmupDefaultsToCurrentMonth(t *testing.T) {
	loader := &fakeLoader{}
	job := NewReportsWarmupJob(loader, "service-token", nil, testMetrics())
	job.clock = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil)))
	require.Equal(t, reports.Range{From: "2026-10-01", To: "2026-10-15"}, loader.got)
	require.Equal(t, "service-token", loader.token)

	task, _ := NewReportsWarmupTask(ReportsWarmupPayload{From: "2026-09-01", To: "2026-09-30", Token: "user-token"})
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, "2026-09-01", loader.got.From)
	require.Equal(t, "user-token", loader.token)
}

func TestReportsWarmupWithoutTokenIsSkipped(t *testing.T) {
	loader := &fakeLoader{}
	job := NewReportsWarmupJob(loader, "", nil, testMetrics())
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil)))
	require.Empty(t, loader.got.From)
}

func TestReportsWarmupBadRangeSkipsRetry(t *testing.T) {
	job := NewReportsWarmupJob(&fakeLoader{}, "tok", nil, testMetrics())
	task, _ := NewReportsWarmupTask(ReportsWarmupPayload{From: "2026-09-30", To: "2026-09-01"})
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	res := httptest.NewRecorder()
	h.health(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"archived":0,"processedToday":0,"failedToday":0}`, res.Body.String())
}
