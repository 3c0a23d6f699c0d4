package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ringmotos/ringpos/cmd/posctl/cli"
	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/cashdrawer"
	"github.com/ringmotos/ringpos/internal/platform/cache"
	"github.com/ringmotos/ringpos/internal/reports"
)

type ctlConfig struct {
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	APIBaseURL      string        `envconfig:"API_BASE_URL" default:"https://ringmotos.onrender.com"`
	APITimeout      time.Duration `envconfig:"API_TIMEOUT" default:"20s"`
	APIToken        string        `envconfig:"WORKER_API_TOKEN"`
	ReportsCacheTTL time.Duration `envconfig:"REPORTS_CACHE_TTL" default:"5m"`
}

const usage = `usage: posctl <command> [flags]

commands:
  report        print the sales dashboard for --from/--to
  cash status   show the open register of --terminal
  cash open     open a register with --amount
  cash close    close the register of --terminal
  jobs stats    print background queue counters
  jobs warmup   enqueue a reports cache warmup
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	_ = godotenv.Load()
	var cfg ctlConfig
	if err := envconfig.Process("", &cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "posctl: config: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	switch args[0] {
	case "report":
		return runReport(ctx, cfg, logger, args[1:], stdout, stderr)
	case "cash":
		return runCash(ctx, cfg, logger, args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, cfg, args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
}

func runReport(ctx context.Context, cfg ctlConfig, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	from := fs.String("from", "", "start date YYYY-MM-DD")
	to := fs.String("to", "", "end date YYYY-MM-DD")
	token := fs.String("token", cfg.APIToken, "upstream bearer token")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *token == "" {
		_, _ = fmt.Fprintln(stderr, "report: --token or WORKER_API_TOKEN is required")
		return 1
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "report: connect redis: %v\n", err)
		return 1
	}
	defer redisClient.Close()

	api := apiclient.New(apiclient.Options{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: logger})
	service := reports.NewService(api, reports.NewCache(redisClient, cfg.ReportsCacheTTL), logger)
	return cli.ReportCommand(apiclient.WithToken(ctx, *token), service, cli.ReportOptions{
		From: *from, To: *to, JSONOutput: *asJSON, Stdout: stdout, Stderr: stderr,
	})
}

func runCash(ctx context.Context, cfg ctlConfig, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	fs := flag.NewFlagSet("cash "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	terminal := fs.String("terminal", "main", "terminal id")
	amount := fs.String("amount", "0", "opening float")
	name := fs.String("name", "", "register name")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cash: connect redis: %v\n", err)
		return 1
	}
	defer redisClient.Close()

	drawer := cashdrawer.NewService(redisClient, nil, logger)
	opts := cli.CashOptions{Terminal: *terminal, Amount: *amount, Name: *name, Stdout: stdout, Stderr: stderr}
	switch args[0] {
	case "status":
		return cli.CashStatusCommand(ctx, drawer, opts)
	case "open":
		return cli.CashOpenCommand(ctx, drawer, opts)
	case "close":
		return cli.CashCloseCommand(ctx, drawer, opts)
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
}

func runJobs(ctx context.Context, cfg ctlConfig, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	fs := flag.NewFlagSet("jobs "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	from := fs.String("from", "", "warmup start date YYYY-MM-DD")
	to := fs.String("to", "", "warmup end date YYYY-MM-DD")
	token := fs.String("token", "", "upstream bearer token stored in the task")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()

	opts := cli.JobsOptions{From: *from, To: *to, Token: *token, Stdout: stdout, Stderr: stderr}
	switch args[0] {
	case "stats":
		return jobsCLI.StatsCommand(ctx, opts)
	case "warmup":
		return jobsCLI.WarmupCommand(ctx, opts)
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
}
