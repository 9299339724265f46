package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/repute/internal/adapters/http/api"
	"github.com/okian/repute/internal/adapters/http/swagger"
	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/internal/config"
	"github.com/okian/repute/internal/scheduler"
	"github.com/okian/repute/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout          = 10 * time.Second
	writeTimeout         = 10 * time.Second
	idleTimeout          = 60 * time.Second
	readHeaderTimeout    = 5 * time.Second
	shutdownTimeout      = 30 * time.Second
	statsRefreshInterval = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	log := logger.Get()

	sched, err := newScheduler(a.cfg, a.svc)
	if err != nil {
		return err
	}
	sched.Start(ctx)

	go refreshStats(ctx, a.svc)

	mux := http.NewServeMux()
	api.NewServer(a.svc).Register(mux)
	swagger.Register(mux)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", a.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("%w: %v", api.ErrServe, err)
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(sErr))
	}
	if sErr := sched.Stop(shutdownCtx); sErr != nil {
		log.Error(ctx, "scheduler stop timed out", logger.Error(sErr))
	}

	log.Info(ctx, "server stopped")
	return err
}

// newScheduler registers every engine job on its configured cron spec.
// Intake also runs once at start so a fresh deployment picks up backlog.
func newScheduler(cfg *config.Config, svc *service.Service) (*scheduler.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(scheduler.WithLocation(loc), scheduler.WithLogger(logger.Named("scheduler")))

	jobs := []struct {
		name string
		spec string
	}{
		{service.JobVerify, cfg.VerifyCron},
		{service.JobIntake, cfg.IntakeCron},
		{service.JobDebate, cfg.DebateCron},
	}
	for _, j := range jobs {
		if err := sched.Add(j.name, j.spec, scheduledJob(svc, j.name)); err != nil {
			return nil, err
		}
	}
	sched.RunOnStart(service.JobIntake)
	return sched, nil
}

func scheduledJob(svc *service.Service, job string) scheduler.JobFunc {
	return func(ctx context.Context) error {
		_, err := svc.Run(ctx, job)
		switch {
		case errors.Is(err, service.ErrJobRunning):
			logger.Get().Info(ctx, "job still running; tick skipped", logger.String("job", job))
			return nil
		case errors.Is(err, service.ErrNoClassifier):
			logger.Get().Debug(ctx, "job disabled without classifier", logger.String("job", job))
			return nil
		}
		return err
	}
}

// refreshStats keeps the pending-promise gauge current between job runs.
func refreshStats(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(statsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.GetStats(ctx); err != nil {
				logger.Get().Warn(ctx, "stats refresh failed", logger.Error(err))
			}
		}
	}
}
