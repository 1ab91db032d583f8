package scheduler

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/discord"
	"github.com/gandash/dash/internal/format"
	"github.com/gandash/dash/internal/models"
)

const (
	// Date-only tasks are announced from this local hour on.
	dueHour = 9

	// Late notifications go out only inside [lateWindowStart, lateWindowEnd).
	lateWindowStart = 10
	lateWindowEnd   = 11
)

func (s *Scheduler) checkDueTasks(ctx context.Context) error {
	now := s.clock.Now()
	today := s.clock.Today(now)

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}

	notified := 0
	for _, task := range tasks {
		if !task.Notifiable() || task.Due.Date != today {
			continue
		}
		if task.Due.Malformed {
			s.log.Warnw("Unreadable due time, skipping due notification", "task_id", task.ID, "due", task.Due.Raw)
			continue
		}
		if task.Due.HasTime() {
			if now.Before(*task.Due.At) {
				continue
			}
		} else if s.clock.Hour(now) < dueHour {
			continue
		}

		key := Key(KindDue, task.ID, today)
		if s.ledger.HasFired(key) {
			continue
		}
		if s.sendTaskNotification(ctx, task, format.KindDue, 0) {
			s.ledger.MarkFired(key)
			notified++
		}
	}

	if notified > 0 {
		s.log.Infow("Due tasks notified", "count", notified)
	}
	return nil
}

func (s *Scheduler) checkAdvanceReminders(ctx context.Context) error {
	now := s.clock.Now()
	today := s.clock.Today(now)
	hour := s.clock.Hour(now)

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if !task.Notifiable() || task.NotifyDaysBefore <= 0 {
			continue
		}
		if clock.AddDays(task.Due.Date, -task.NotifyDaysBefore) != today {
			continue
		}
		if hour < notifyHour(task.NotifyTime) {
			continue
		}

		key := Key(KindReminder, task.ID, today)
		if s.ledger.HasFired(key) {
			continue
		}
		if s.sendTaskNotification(ctx, task, format.KindReminder, task.NotifyDaysBefore) {
			s.ledger.MarkFired(key)
		}
	}
	return nil
}

func (s *Scheduler) checkLateTasks(ctx context.Context) error {
	now := s.clock.Now()
	hour := s.clock.Hour(now)
	if hour < lateWindowStart || hour >= lateWindowEnd {
		return nil
	}
	today := s.clock.Today(now)

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}

	notified := 0
	for _, task := range tasks {
		if !task.Notifiable() || !task.NotifyLate || task.Due.Date >= today {
			continue
		}

		key := Key(KindLate, task.ID, today)
		if s.ledger.HasFired(key) {
			continue
		}
		if s.sendTaskNotification(ctx, task, format.KindOverdue, 0) {
			s.ledger.MarkFired(key)
			notified++
		}
	}

	if notified > 0 {
		s.log.Infow("Late tasks notified", "count", notified)
	}
	return nil
}

// sendTaskNotification posts the individual notification and binds it to
// the task. It reports whether the send went through; failures after the
// send only log.
func (s *Scheduler) sendTaskNotification(ctx context.Context, task *models.Task, kind format.Kind, daysBefore int) bool {
	var mention string
	if person, ok := s.people.Assignee(task.AssigneeID); ok {
		mention = person.Mention()
	}

	content := format.TaskNotification(task, kind, daysBefore, mention, s.clock.Location())
	messageID, err := s.messenger.Send(ctx, content, "")
	if err != nil {
		s.log.Errorw("Failed to send task notification",
			"task_id", task.ID,
			"kind", kind,
			"error", err,
		)
		return false
	}
	if messageID == "" {
		s.log.Debugw("Task notification not posted", "task_id", task.ID, "kind", kind)
		return true
	}
	s.metrics.notificationsSent.WithLabelValues(string(kind)).Inc()

	s.bind(ctx, task, messageID)
	s.log.Infow("Sent task notification", "task_id", task.ID, "kind", kind, "message_id", messageID)
	return true
}

// bind seeds the ✅ reaction on a fresh message and stores its id on the
// task. An existing binding is overwritten and its message is left behind.
func (s *Scheduler) bind(ctx context.Context, task *models.Task, messageID string) {
	if err := s.messenger.AddReaction(ctx, messageID, discord.CheckEmoji); err != nil {
		s.log.Warnw("Failed to add completion reaction", "task_id", task.ID, "message_id", messageID, "error", err)
	}

	if previous := task.NotificationMessageID; previous != "" && previous != messageID {
		s.log.Warnw("Rebinding task, previous notification message is orphaned",
			"task_id", task.ID,
			"previous_message_id", previous,
			"message_id", messageID,
		)
	}

	if err := s.tasks.SetNotificationMessageID(ctx, task.ID, messageID); err != nil {
		s.log.Errorw("Failed to store notification message id", "task_id", task.ID, "message_id", messageID, "error", err)
		return
	}
	task.NotificationMessageID = messageID
}

func (s *Scheduler) checkReactionCompletions(ctx context.Context) error {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}

	checked := 0
	for _, task := range tasks {
		if task.IsCompleted() || task.NotificationMessageID == "" {
			continue
		}
		checked++

		users, err := s.messenger.Reactors(ctx, task.NotificationMessageID, discord.CheckEmoji)
		if err != nil {
			s.log.Warnw("Failed to read reactions", "task_id", task.ID, "message_id", task.NotificationMessageID, "error", err)
			continue
		}
		reactor := firstHuman(users)
		if reactor == nil {
			continue
		}

		now := s.clock.Now()
		deleteAt := now.Add(models.CompletedMessageTTL)
		if err := s.tasks.MarkCompleted(ctx, task.ID, now, deleteAt); err != nil {
			s.log.Errorw("Failed to complete task from reaction", "task_id", task.ID, "error", err)
			continue
		}
		s.metrics.completedByReaction.Inc()

		credit := models.Person{DiscordID: reactor.ID}.Mention()
		embed := format.CompletedEmbed(task, "Completed by "+credit, now, s.clock.Location())
		if err := s.messenger.EditEmbed(ctx, task.NotificationMessageID, embed); err != nil {
			s.log.Warnw("Failed to edit completed notification", "task_id", task.ID, "message_id", task.NotificationMessageID, "error", err)
		}

		s.log.Infow("Task completed by reaction",
			"task_id", task.ID,
			"reactor", reactor.ID,
			"delete_at", deleteAt,
		)
	}

	if checked > 0 {
		s.log.Debugw("Checked tasks for reaction completions", "count", checked)
	}
	return nil
}

func (s *Scheduler) cleanupOldMessages(ctx context.Context) error {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	cleaned := 0
	for _, task := range tasks {
		if task.ScheduledDeleteAt == nil || task.NotificationMessageID == "" {
			continue
		}
		if now.Before(*task.ScheduledDeleteAt) {
			continue
		}

		if err := s.messenger.Delete(ctx, task.NotificationMessageID); err != nil {
			s.log.Warnw("Failed to delete notification message", "task_id", task.ID, "message_id", task.NotificationMessageID, "error", err)
			continue
		}
		s.metrics.messagesDeleted.Inc()

		if err := s.tasks.ClearNotification(ctx, task.ID); err != nil {
			s.log.Errorw("Failed to clear notification binding", "task_id", task.ID, "error", err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		s.log.Infow("Cleaned up notification messages", "count", cleaned)
	}
	return nil
}

// firstHuman returns the first reactor that is not a bot. The bot seeds ✅
// itself, so its own reaction never counts.
func firstHuman(users []*discordgo.User) *discordgo.User {
	for _, u := range users {
		if u != nil && !u.Bot {
			return u
		}
	}
	return nil
}

// notifyHour is the gating hour of a "HH:MM" notify time.
func notifyHour(notifyTime string) int {
	hour, _, err := clock.ParseHHMM(notifyTime)
	if err != nil {
		hour, _, _ = clock.ParseHHMM(models.DefaultNotifyTime)
	}
	return hour
}
