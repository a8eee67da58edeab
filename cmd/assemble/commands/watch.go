package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/assemble/internal/assemble"
	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/metrics"
	"git.home.luguber.info/inful/assemble/internal/schedule"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Initial bool `default:"true" negatable:"" help:"Run every watched task once before watching"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, g, root, w.Initial)
}

// RunWatch serves watch triggers, schedules and the metrics listener until
// ctx is done.
func RunWatch(ctx context.Context, g *Global, root *CLI, initial bool) (err error) {
	env, err := loadEnvironment(ctx, g, root)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); err == nil {
			err = cerr
		}
	}()
	cfg := env.cfg
	if len(cfg.Watch) == 0 && len(cfg.Schedules) == 0 {
		return aerrors.ValidationFailed("watch", "assemblefile declares no watch triggers or schedules")
	}

	if initial {
		for _, wc := range cfg.Watch {
			if err := env.app.Run(assemble.WithTrigger(ctx, assemble.TriggerWatch), wc.Tasks...); err != nil {
				slog.Error("Initial run failed", logfields.Tasks(wc.Tasks), logfields.Error(err))
			}
		}
	}

	watchers, err := env.app.WatchAll(ctx, cfg.Watch)
	if err != nil {
		return aerrors.Wrap(err, aerrors.CategoryWatch, aerrors.SeverityFatal, "start watchers")
	}
	defer func() {
		for _, w := range watchers {
			_ = w.Close()
		}
		env.app.Wait()
	}()

	sched, err := schedule.NewScheduler(func(ctx context.Context, tasks []string) error {
		return env.app.Run(assemble.WithTrigger(ctx, assemble.TriggerSchedule), tasks...)
	})
	if err != nil {
		return err
	}
	if err := sched.Apply(cfg.Schedules); err != nil {
		return err
	}
	sched.Start(ctx)
	defer func() {
		if serr := sched.Stop(); serr != nil {
			slog.Warn("Failed to stop scheduler", logfields.Error(serr))
		}
	}()

	if env.registry != nil {
		srv := metricsServer(cfg.Metrics.Addr, env)
		go func() {
			slog.Info("Serving metrics", slog.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics listener failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("Watching, press Ctrl+C to stop", logfields.Count(len(watchers)), slog.Any("schedules", sched.Jobs()))
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping watch")
	return nil
}

func metricsServer(addr string, env *environment) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(env.registry))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
