package scheduler

import (
	"context"
	"fmt"

	"github.com/gandash/dash/internal/format"
	"github.com/gandash/dash/internal/models"
)

const kindSummary = "summary"

// SendDailySummary posts the morning digest: a header, one reactable
// message per overdue task and per task due today, then every reminder for
// today in a single block. Nothing is sent when there is nothing to report.
func (s *Scheduler) SendDailySummary(ctx context.Context) error {
	now := s.clock.Now()
	today := s.clock.Today(now)

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}
	reminders, err := s.reminders.ListActive(ctx)
	if err != nil {
		return err
	}

	var overdue, dueToday []*models.Task
	for _, task := range tasks {
		if task.IsCompleted() || !task.Due.IsSet() {
			continue
		}
		switch {
		case task.Due.Date == today:
			dueToday = append(dueToday, task)
		case task.Due.Date < today:
			overdue = append(overdue, task)
		}
	}

	var todays []*models.Reminder
	for _, r := range reminders {
		if r.DueDate == "" || r.DueDate == today {
			todays = append(todays, r)
		}
	}

	if len(overdue) == 0 && len(dueToday) == 0 && len(todays) == 0 {
		s.log.Info("No tasks or reminders for daily summary")
		return nil
	}

	headerID, err := s.messenger.Send(ctx, format.SummaryHeader(), "")
	if err != nil {
		return fmt.Errorf("send summary header: %w", err)
	}

	for _, task := range overdue {
		s.sendSummaryTask(ctx, task, format.OverdueLine(task))
	}
	for _, task := range dueToday {
		s.sendSummaryTask(ctx, task, format.TodayLine(task, s.clock.Location()))
	}

	if len(todays) > 0 {
		if _, err := s.messenger.Send(ctx, format.RemindersBlock(todays), ""); err != nil {
			return fmt.Errorf("send reminders block: %w", err)
		}
	}

	if headerID != "" {
		s.metrics.notificationsSent.WithLabelValues(kindSummary).Inc()
	}
	s.log.Infow("Daily summary sent",
		"overdue", len(overdue),
		"today", len(dueToday),
		"reminders", len(todays),
	)
	return nil
}

func (s *Scheduler) sendSummaryTask(ctx context.Context, task *models.Task, content string) {
	messageID, err := s.messenger.Send(ctx, content, "")
	if err != nil {
		s.log.Errorw("Failed to send summary line", "task_id", task.ID, "error", err)
		return
	}
	if messageID != "" {
		s.bind(ctx, task, messageID)
	}
}
