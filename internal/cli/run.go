package cli

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/collector"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/infra/cache"
	"github.com/miniflow/miniflow/engine/infra/httpserver"
	"github.com/miniflow/miniflow/engine/infra/monitoring"
	"github.com/miniflow/miniflow/engine/infra/repo"
	"github.com/miniflow/miniflow/engine/ratelimit"
	"github.com/miniflow/miniflow/engine/reference"
	"github.com/miniflow/miniflow/engine/scheduler"
	"github.com/miniflow/miniflow/engine/worker"
	"github.com/miniflow/miniflow/pkg/config"
	"github.com/miniflow/miniflow/pkg/logger"
)

// ratelimitKeyPrefix isolates C5's counter keyspace from other Redis users
// sharing the same instance.
const ratelimitKeyPrefix = "miniflow:ratelimit"

// newRunCmd returns the `run` command: the long-lived process that serves
// the trigger-intake HTTP surface while driving the scheduler (C9) and
// collector (C10) loops against the configured database and, if Redis is
// configured, a distributed lock/notification cache.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Miniflow execution core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newProcessLogger(cmd)
			ctx := logger.ContextWithLogger(cmd.Context(), log)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx = config.ContextWithConfig(ctx, cfg)

			repos, cleanupRepos, err := repo.NewRepos(ctx, cfg)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer cleanupRepos()

			c, cleanupCache, err := cache.SetupCache(ctx)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer cleanupCache()

			mon, err := monitoring.Setup(ctx, cfg.Monitoring)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if serr := mon.Shutdown(shutdownCtx); serr != nil {
					log.With("error", serr).Warn("failed to shut down monitoring service")
				}
			}()

			rateStore, cleanupRateStore, err := newRateLimitStore(cfg)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer cleanupRateStore()
			accountant := ratelimit.NewAccountant(rateStore)
			thresholds := ratelimit.Thresholds{
				PerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
				PerHour:   cfg.RateLimit.DefaultRequestsPerHour,
				PerDay:    cfg.RateLimit.DefaultRequestsPerDay,
			}
			apiKeys := apikey.NewService(apikey.DefaultHashParams())

			resolver := reference.NewResolver(repos.Executions, repos.Reference, repos.Reference, repos.DatabaseReference, repos.Reference)

			interpreter, _ := cmd.Flags().GetString("python")
			runner := worker.NewPyRunner(interpreter)
			queueSize, _ := cmd.Flags().GetInt("queue-size")
			adapter := worker.NewAdapter(runner, worker.DefaultRetryConfig(), queueSize)

			schedulerCfg := scheduler.DefaultConfig()
			schedulerCfg.BatchSize = cfg.Scheduler.BatchSize
			if cfg.Scheduler.MinInterval > 0 {
				schedulerCfg.MinInterval = cfg.Scheduler.MinInterval
			}
			if cfg.Scheduler.MaxInterval > 0 {
				schedulerCfg.MaxInterval = cfg.Scheduler.MaxInterval
			}
			schedLoop := scheduler.NewLoop(repos.Executions, resolver, adapter, schedulerCfg)

			finalizer := execution.NewFinalizer(repos.Executions)
			collectLoop := collector.NewLoop(repos.Executions, finalizer, adapter)
			var locks cache.LockManager
			if c != nil {
				collectLoop = collectLoop.WithNotifier(cache.NewExecutionNotifier(c.Notification))
				locks = c.LockManager
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go schedLoop.Run(runCtx)

			pollInterval := cfg.Scheduler.PollInterval
			if pollInterval <= 0 {
				pollInterval = 250 * time.Millisecond
			}
			go collectLoop.Run(runCtx, pollInterval)

			router := httpserver.NewRouter(httpserver.Deps{
				Triggers:       repos.Triggers,
				Workflows:      repos.Workflows,
				Workspaces:     repos.Workspaces,
				Executions:     repos.Executions,
				Planner:        execution.NewPlanner(repos.Executions, repos.Executions),
				Quota:          repos.Quota,
				Locks:          locks,
				KeyStore:       repos.APIKeys,
				APIKeys:        apiKeys,
				Accountant:     accountant,
				Thresholds:     thresholds,
				MetricsPath:    cfg.Monitoring.Path,
				MetricsHandler: mon.Handler(),
			})
			server := httpserver.NewServer(runCtx, cfg.Server, router)

			err = server.Run(runCtx)
			schedLoop.Stop()
			collectLoop.Stop()
			return err
		},
	}
	cmd.Flags().String("python", "python3", "python interpreter used to run dispatched scripts")
	cmd.Flags().Int("queue-size", 256, "in-process buffer size between dispatch and collection")
	return cmd
}

// newRateLimitStore builds C5's counter Store: a Redis-backed sliding window
// shared across every process when Redis is configured, or an in-process
// token-bucket approximation otherwise. The returned cleanup stops the
// in-process sweeper or closes the dedicated Redis client; always call it.
func newRateLimitStore(cfg *config.Config) (ratelimit.Store, func(), error) {
	if !cfg.Redis.Enabled() {
		store := ratelimit.NewInProcessStore(0, 0)
		return store, store.Stop, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store, err := ratelimit.NewRedisStore(client, ratelimitKeyPrefix)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ratelimit store: %w", err)
	}
	return store, func() { client.Close() }, nil
}
