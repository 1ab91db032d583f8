package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/config"
	"github.com/gandash/dash/internal/database"
	"github.com/gandash/dash/internal/directory"
	"github.com/gandash/dash/internal/discord"
	"github.com/gandash/dash/internal/logger"
	"github.com/gandash/dash/internal/repository"
	"github.com/gandash/dash/internal/scheduler"
	"github.com/gandash/dash/internal/service"
	"github.com/gandash/dash/internal/store"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	registry  *prometheus.Registry
	clock     *clock.Clock
	people    *directory.Directory
	discord   *discord.Client
	tasks     *repository.TaskRepository
	reminders *repository.ReminderRepository
	scheduler *scheduler.Scheduler

	closers []func()
}

func newApp(ctx context.Context) (_ *app, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		clock: clock.NewFixed(cfg.UTCOffsetHours),
	}
	a.closers = append(a.closers, func() { _ = log.Sync() })
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if a.people, err = directory.Parse(cfg.People); err != nil {
		return nil, fmt.Errorf("PEOPLE: %w", err)
	}
	if len(a.people.All()) == 0 {
		log.Warn("No PEOPLE configured, notifications will not mention anyone")
	}

	records, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.tasks = repository.NewTaskRepository(records, a.clock.Location())
	a.reminders = repository.NewReminderRepository(records, a.clock.Location())

	if a.discord, err = discord.New(cfg.DiscordToken, cfg.DiscordChannelID, log); err != nil {
		return nil, err
	}

	opts := scheduler.Options{
		CheckInterval:     cfg.CheckInterval,
		InitialCheckDelay: cfg.InitialCheckDelay,
		SummaryAt:         cfg.DailySummaryTime,
		ArchiveAt:         cfg.ArchiveTime,
	}
	if a.registry != nil {
		opts.Registerer = a.registry
	}
	if a.scheduler, err = scheduler.New(a.tasks, a.reminders, a.people, a.discord, a.clock, log, opts); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.New(ctx, a.cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.log.Info("Connected to database")

		applied, err := db.Migrate(ctx)
		if err != nil {
			return nil, err
		}
		a.log.Infow("Database migrations completed", "applied", applied)
		return store.NewPostgres(db, store.TableTasks, store.TableReminders), nil

	case config.BackendMemory:
		a.log.Warn("Using the in-memory store, records are lost on exit")
		return store.NewMemory(store.TableTasks, store.TableReminders), nil

	default:
		n := store.NewNocoDB(a.cfg.NocoDBURL, a.cfg.NocoDBToken, a.cfg.NocoDBBaseID, a.cfg.NocoDBTimeout, a.log)
		// Tables are reloaded lazily on first use when the initial load fails.
		_ = n.Init(ctx)
		return n, nil
	}
}

func (a *app) settings() *service.SettingsService {
	return service.NewSettingsService(service.Settings{
		Timezone:          a.cfg.Timezone,
		DefaultRemindTime: a.cfg.DefaultRemindTime,
		DiscordChannelID:  a.cfg.DiscordChannelID,
	}, a.discord, a.log)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
