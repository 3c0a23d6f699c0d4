package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/ringmotos/ringpos/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// JobsOptions holds the shared flags of the jobs subcommands.
type JobsOptions struct {
	From   string
	To     string
	Token  string
	Stdout io.Writer
	Stderr io.Writer
}

func (o *JobsOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// StatsCommand prints the default queue summary.
func (c *JobsCLI) StatsCommand(ctx context.Context, opts JobsOptions) int {
	opts.defaults()
	if c == nil || c.inspector == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs stats: inspector not configured")
		return 1
	}
	stats, err := jobs.Inspect(c.inspector)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d retry=%d archived=%d processed_today=%d failed_today=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Retry, stats.Archived, stats.Processed, stats.Failed)
	return 0
}

// WarmupCommand enqueues a reports warmup.
func (c *JobsCLI) WarmupCommand(ctx context.Context, opts JobsOptions) int {
	opts.defaults()
	info, err := c.TriggerWarmup(ctx, jobs.ReportsWarmupPayload{From: opts.From, To: opts.To, Token: opts.Token})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs warmup: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

// TriggerWarmup enqueues a warmup with the given payload.
func (c *JobsCLI) TriggerWarmup(ctx context.Context, payload jobs.ReportsWarmupPayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueReportsWarmup(ctx, payload)
}
