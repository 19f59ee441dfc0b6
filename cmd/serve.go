package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/repovec/repovec/internal/notify"
	"github.com/repovec/repovec/internal/store"
	"github.com/repovec/repovec/internal/syncer"
)

var serveNotify string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon",
	Long: `Synchronize all tracked repositories on the configured cron schedule.
Repositories listed in the config file are registered on startup.
Interrupted syncs left behind by a crash are reset before each pass,
and failures are reported to the configured webhooks.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveNotify, "notify", "", "notification target: slack, discord, or both")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := initComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	notifier, err := createNotifier(cfg, serveNotify)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	staleAfter, err := cfg.Sync.StaleAfter()
	if err != nil {
		return fmt.Errorf("invalid stale_after: %w", err)
	}

	// Register config-listed repos that are not tracked yet.
	for _, fullName := range cfg.Repos {
		if _, err := c.Store.GetRepo(fullName); errors.Is(err, store.ErrNotFound) {
			if _, err := c.Store.CreateRepo(fullName); err != nil {
				return fmt.Errorf("tracking %s: %w", fullName, err)
			}
			logger.Info("tracking repo from config", "repo", fullName)
		}
	}

	if notifier != nil {
		go reportFailures(ctx, c, notifier)
	}

	if cfg.Sync.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.Sync.MetricsAddr, logger)
	}

	syncAll := func() {
		if reset, err := c.Store.ResetStale(time.Now().Add(-staleAfter), time.Now().UTC()); err != nil {
			logger.Error("resetting stale syncs", "error", err)
		} else if reset > 0 {
			logger.Warn("reset interrupted syncs", "count", reset)
		}

		repos, err := c.Store.ListRepos()
		if err != nil {
			logger.Error("listing repos", "error", err)
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Sync.Concurrency)
		for _, repo := range repos {
			repo := repo
			g.Go(func() error {
				_, err := c.Syncer.Sync(gctx, repo.FullName)
				if err != nil && !errors.Is(err, syncer.ErrSyncInFlight) {
					logger.Error("sync failed", "repo", repo.FullName, "error", err)
				}
				// Failures are recorded per repo; never abort the pass.
				return nil
			})
		}
		g.Wait()
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sync.Schedule, syncAll); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Sync.Schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("sync daemon started",
		"schedule", cfg.Sync.Schedule,
		"concurrency", cfg.Sync.Concurrency,
	)

	// One pass right away so newly added repos do not wait for the
	// first tick.
	syncAll()

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// reportFailures forwards failed sync events to the notifier.
func reportFailures(ctx context.Context, c *components, notifier notify.Notifier) {
	events := c.Broker.Subscribe(ctx)
	for evt := range events {
		if evt.Err == nil {
			continue
		}
		report := notify.Report{
			Repo:    evt.Repo,
			Mode:    string(evt.Mode),
			Error:   evt.Err.Error(),
			Elapsed: evt.Elapsed,
		}
		if err := notifier.Notify(ctx, report); err != nil {
			c.Logger.Error("failure notification", "repo", evt.Repo, "error", err)
		}
	}
}

// serveMetrics exposes the Prometheus endpoint until the context ends.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics endpoint", "error", err)
	}
}
