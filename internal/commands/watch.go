package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/appctx"
	"github.com/basecamp/prismctl/internal/config"
	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/repo"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var schedule, metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the library loaded and refreshed",
		Long: `Load albums, people, labels and the map, then refresh every loaded
repository on a cron schedule until interrupted.

Editing a config file reloads it: a new server or token drops the cached
data, anything else marks it stale and refreshes. With --metrics-addr the
fetch metrics are served for Prometheus at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}
			if schedule == "" {
				schedule = app.Config.Schedule
			}
			if metricsAddr == "" {
				metricsAddr = app.Config.MetricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, app, lib, schedule, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Refresh schedule in cron syntax (default from config, @every 5m)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func runWatch(ctx context.Context, app *appctx.App, lib *library.Library, schedule, metricsAddr string) error {
	w := &watcher{app: app, lib: lib, logger: app.Logger}

	logger := cronLogger{app.Logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(schedule, func() { w.refresh(ctx) }); err != nil {
		return output.ErrUsageHint("invalid schedule: "+err.Error(), "Use cron syntax, e.g. \"*/10 * * * *\" or \"@every 5m\"")
	}

	if metricsAddr != "" {
		srv := newMetricsServer(metricsAddr, app.Metrics)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.Logger.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		app.Logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
	}

	w.attach(ctx)
	c.Start()
	defer func() { <-c.Stop().Done() }()

	go func() {
		if err := config.Watch(ctx, app.Config.Files, func() { w.reload(ctx) }); err != nil {
			app.Logger.Warn().Err(err).Msg("config reload disabled")
		}
	}()

	app.Logger.Info().Str("schedule", schedule).Msg("watching library")
	<-ctx.Done()

	rows := statusRows(lib.Statuses())
	return app.OK(rows, output.WithSummary("Stopped watching "+plural(len(rows), "repo")))
}

// watcher keeps the tracked repositories loaded and logs their failures.
type watcher struct {
	app    *appctx.App
	lib    *library.Library
	logger zerolog.Logger

	mu     sync.Mutex
	detach context.CancelFunc // ends the log followers of the current connection
}

// attach follows the tracked repositories of the current connection and
// loads them.
func (w *watcher) attach(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detach != nil {
		w.detach()
	}
	ctx, w.detach = context.WithCancel(ctx)

	repos := track(w.lib)
	handles := make([]*repo.Handle, 0, len(repos))
	for _, r := range repos {
		go w.follow(ctx, r)
		handles = append(handles, r.UpdateIfNotFresh())
	}
	go func() {
		if err := repo.WaitAll(ctx, handles...); err != nil {
			if ctx.Err() == nil {
				w.logger.Warn().Err(err).Msg("initial load incomplete")
			}
			return
		}
		w.logger.Info().Int("repositories", len(repos)).Msg("library loaded")
	}()
}

func (w *watcher) follow(ctx context.Context, r repo.Repository) {
	errs := r.Errors()
	defer errs.Close()
	loading := r.Loading()
	defer loading.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs.C():
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Str("repository", r.Name()).Msg("fetch failed, keeping cached data")
		case l, ok := <-loading.C():
			if !ok {
				return
			}
			w.logger.Debug().Bool("loading", l).Str("repository", r.Name()).Msg("loading changed")
		}
	}
}

func (w *watcher) refresh(ctx context.Context) {
	start := time.Now()
	if err := w.lib.Refresh().Wait(ctx); err != nil {
		if ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("refresh incomplete")
		}
		return
	}
	w.logger.Info().Dur("took", time.Since(start)).Msg("refreshed")
}

func (w *watcher) reload(ctx context.Context) {
	cfg, err := config.Load(w.app.Dir, w.app.Overrides)
	if err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed, keeping previous settings")
		return
	}
	for _, warning := range cfg.Warnings {
		w.logger.Warn().Msg(warning)
	}
	reconnected, err := w.app.Reload(cfg)
	if err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed, keeping previous settings")
		return
	}
	if reconnected {
		w.logger.Info().Str("base_url", cfg.BaseURL).Msg("config changed, reconnected")
		w.attach(ctx)
		return
	}
	w.logger.Info().Msg("config changed, refreshing")
	w.refresh(ctx)
}

func newMetricsServer(addr string, metrics *repo.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// cronLogger routes scheduler logs through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
