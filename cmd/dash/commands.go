package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gandash/dash/internal/api"
	"github.com/gandash/dash/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the notification scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run every notification check once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.scheduler.RunAllChecks(ctx)
			})
		},
	}
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Send today's summary now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.scheduler.SendDailySummary(ctx)
			})
		},
	}
}

func newArchiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Archive reminders whose date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.scheduler.ArchiveOldReminders(ctx)
			})
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runOnce(parent context.Context, job func(context.Context, *app) error) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return job(ctx, a)
}

func runServe(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	settings := a.settings()
	server := api.New(api.Deps{
		Tasks:     service.NewTaskService(a.tasks, a.people, a.discord, settings, a.clock, a.log),
		Reminders: service.NewReminderService(a.reminders, a.clock, a.log),
		Settings:  settings,
		People:    a.people,
		Checker:   a.scheduler,
		Wake:      a.scheduler.Notify,
	}, api.Options{
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		StaticDir:          a.cfg.StaticDir,
		Registry:           a.registry,
	}, a.log)

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.scheduler.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	a.log.Infow("Dash running", "port", a.cfg.Port, "store", a.cfg.StoreBackend)

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down...")
	case err = <-serverErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		a.log.Errorw("Server shutdown failed", "error", serr)
	}
	<-schedDone

	return err
}
