package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/costwash/cmd/costwash/cli"
	"github.com/odyssey-erp/costwash/internal/app"
	jobmetrics "github.com/odyssey-erp/costwash/internal/jobs"
	"github.com/odyssey-erp/costwash/internal/observability"
	"github.com/odyssey-erp/costwash/internal/platform/cache"
	"github.com/odyssey-erp/costwash/internal/platform/db"
	washhttp "github.com/odyssey-erp/costwash/internal/wash/http"
	"github.com/odyssey-erp/costwash/jobs"
)

const usage = `usage: costwash [serve]
       costwash wash-trigger [-event ship] [-sync] <fulfillment id>
       costwash jobs-inspect [-json]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "wash-trigger":
		os.Exit(washTrigger(ctx, cfg, logger, args))
	case "jobs-inspect":
		os.Exit(jobsInspect(ctx, cfg, args))
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping, continuing without record lock", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	var locker *redis.Client
	if err == nil {
		locker = redisClient
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	components := app.NewWashComponents(cfg, pool, locker, logger, jobMetrics)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		WashHandler: washhttp.NewHandler(washhttp.Config{
			Runner:    components.Service,
			Enqueuer:  jobClient,
			Logger:    logger,
			RateLimit: cfg.Wash.RateLimit,
		}),
		JobHandler: jobs.NewHandler(inspector, logger),
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func washTrigger(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("wash-trigger", flag.ContinueOnError)
	eventType := fs.String("event", "ship", "event type recorded on the task")
	sync := fs.Bool("sync", false, "run the wash in this process instead of enqueueing it")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts := cli.TriggerOptions{RecordID: fs.Arg(0), EventType: *eventType, Sync: *sync}

	if *sync {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
		if err != nil {
			fmt.Fprintf(os.Stderr, "wash-trigger: %v\n", err)
			return 1
		}
		defer pool.Close()
		components := app.NewWashComponents(cfg, pool, nil, logger, nil)
		return cli.NewJobsCLI(nil, nil, components.Service).TriggerCommand(ctx, opts)
	}

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wash-trigger: %v\n", err)
		return 1
	}
	defer client.Close()
	return cli.NewJobsCLI(client, nil, nil).TriggerCommand(ctx, opts)
}

func jobsInspect(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs-inspect", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print stats as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer inspector.Close()
	return cli.NewJobsCLI(nil, inspector, nil).InspectCommand(ctx, cli.InspectOptions{JSONOutput: *jsonOutput})
}
