// Package scheduler polls the task table and keeps chat notifications in
// step with it: it announces due, upcoming and late tasks, turns ✅
// reactions into completions, removes finished messages, and runs the daily
// summary and reminder archive.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/directory"
	"github.com/gandash/dash/internal/logger"
	"github.com/gandash/dash/internal/repository"
)

// Messenger is the chat channel the scheduler talks to.
type Messenger interface {
	Send(ctx context.Context, content, mentionID string) (string, error)
	EditEmbed(ctx context.Context, messageID string, embed *discordgo.MessageEmbed) error
	Delete(ctx context.Context, messageID string) error
	AddReaction(ctx context.Context, messageID, emoji string) error
	Reactors(ctx context.Context, messageID, emoji string) ([]*discordgo.User, error)
}

type Options struct {
	CheckInterval     time.Duration
	InitialCheckDelay time.Duration
	// SummaryAt and ArchiveAt are local "HH:MM" times of day.
	SummaryAt string
	ArchiveAt string

	Ledger     *Ledger
	Registerer prometheus.Registerer
}

type timeOfDay struct {
	hour, minute int
}

type Scheduler struct {
	tasks     *repository.TaskRepository
	reminders *repository.ReminderRepository
	people    *directory.Directory
	messenger Messenger
	clock     *clock.Clock
	ledger    *Ledger
	metrics   *metrics
	log       *logger.Logger

	checkInterval     time.Duration
	initialCheckDelay time.Duration
	summaryAt         timeOfDay
	archiveAt         timeOfDay

	notifyCh chan struct{}
}

func New(
	tasks *repository.TaskRepository,
	reminders *repository.ReminderRepository,
	people *directory.Directory,
	messenger Messenger,
	clk *clock.Clock,
	log *logger.Logger,
	opts Options,
) (*Scheduler, error) {
	if opts.CheckInterval <= 0 {
		return nil, errors.New("check interval must be positive")
	}

	summaryHour, summaryMinute, err := clock.ParseHHMM(opts.SummaryAt)
	if err != nil {
		return nil, fmt.Errorf("daily summary time: %w", err)
	}
	archiveHour, archiveMinute, err := clock.ParseHHMM(opts.ArchiveAt)
	if err != nil {
		return nil, fmt.Errorf("archive time: %w", err)
	}

	ledger := opts.Ledger
	if ledger == nil {
		ledger = NewLedger()
	}

	return &Scheduler{
		tasks:             tasks,
		reminders:         reminders,
		people:            people,
		messenger:         messenger,
		clock:             clk,
		ledger:            ledger,
		metrics:           newMetrics(opts.Registerer),
		log:               log.WithComponent("scheduler"),
		checkInterval:     opts.CheckInterval,
		initialCheckDelay: opts.InitialCheckDelay,
		summaryAt:         timeOfDay{summaryHour, summaryMinute},
		archiveAt:         timeOfDay{archiveHour, archiveMinute},
		notifyCh:          make(chan struct{}, 1),
	}, nil
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs the periodic checks and the daily jobs until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Infow("Scheduler started",
		"interval", s.checkInterval,
		"utc_offset", s.clock.Location().String(),
	)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	initial := time.NewTimer(s.initialCheckDelay)
	defer initial.Stop()

	midnight := time.NewTimer(s.untilNext(timeOfDay{0, 0}))
	defer midnight.Stop()
	summary := time.NewTimer(s.untilNext(s.summaryAt))
	defer summary.Stop()
	archive := time.NewTimer(s.untilNext(s.archiveAt))
	defer archive.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-initial.C:
			s.runChecks(ctx)
		case <-ticker.C:
			s.runChecks(ctx)
		case <-s.notifyCh:
			s.log.Debug("Scheduler triggered manually")
			s.runChecks(ctx)
		case <-midnight.C:
			s.ledger.ResetAll()
			s.log.Info("Reset daily notification ledger")
			midnight.Reset(s.untilNext(timeOfDay{0, 0}))
		case <-summary.C:
			s.runJob(ctx, "daily_summary", s.SendDailySummary)
			summary.Reset(s.untilNext(s.summaryAt))
		case <-archive.C:
			s.runJob(ctx, "archive", s.ArchiveOldReminders)
			archive.Reset(s.untilNext(s.archiveAt))
		}
	}
}

func (s *Scheduler) untilNext(at timeOfDay) time.Duration {
	now := s.clock.Now()
	return s.clock.NextAt(now, at.hour, at.minute).Sub(now)
}

func (s *Scheduler) runChecks(ctx context.Context) {
	// Failures are already logged per routine.
	_ = s.RunAllChecks(ctx)
}

// RunAllChecks runs the five check routines in order. A failing routine
// does not stop the ones after it; their errors are joined.
func (s *Scheduler) RunAllChecks(ctx context.Context) error {
	checks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"due", s.checkDueTasks},
		{"advance_reminder", s.checkAdvanceReminders},
		{"late", s.checkLateTasks},
		{"reaction_completion", s.checkReactionCompletions},
		{"cleanup", s.cleanupOldMessages},
	}

	var errs []error
	for _, c := range checks {
		if err := s.runJob(ctx, c.name, c.run); err != nil {
			errs = append(errs, fmt.Errorf("%s check: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// runJob runs one routine, converting a panic into an error so a single
// bad record cannot take the process down.
func (s *Scheduler) runJob(ctx context.Context, name string, job func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			s.metrics.checkFailures.WithLabelValues(name).Inc()
			s.log.Errorw("Scheduler routine failed", "check", name, "error", err)
		}
	}()
	return job(ctx)
}
