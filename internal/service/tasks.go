// Package service holds the write paths of the web API that have side
// effects beyond the record store: completion announcements, recurrence,
// nudges and manual reminders.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/directory"
	"github.com/gandash/dash/internal/discord"
	"github.com/gandash/dash/internal/format"
	"github.com/gandash/dash/internal/logger"
	"github.com/gandash/dash/internal/models"
	"github.com/gandash/dash/internal/repository"
	"github.com/gandash/dash/internal/rrule"
	"github.com/gandash/dash/internal/store"
)

var (
	ErrNoAssignee      = errors.New("task has no assignee")
	ErrUnknownAssignee = errors.New("unknown assignee")
)

// Notifier is the part of the chat client the task service uses.
type Notifier interface {
	Send(ctx context.Context, content, mentionID string) (string, error)
	SendEmbed(ctx context.Context, embed *discordgo.MessageEmbed, mentionID string) (string, error)
	EditEmbed(ctx context.Context, messageID string, embed *discordgo.MessageEmbed) error
	AddReaction(ctx context.Context, messageID, emoji string) error
}

type TaskService struct {
	tasks    *repository.TaskRepository
	people   *directory.Directory
	notifier Notifier
	settings *SettingsService
	clock    *clock.Clock
	log      *logger.Logger
}

func NewTaskService(
	tasks *repository.TaskRepository,
	people *directory.Directory,
	notifier Notifier,
	settings *SettingsService,
	clk *clock.Clock,
	log *logger.Logger,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		people:   people,
		notifier: notifier,
		settings: settings,
		clock:    clk,
		log:      log.WithComponent("service"),
	}
}

func (s *TaskService) List(ctx context.Context) ([]*models.Task, error) {
	return s.tasks.List(ctx)
}

func (s *TaskService) Get(ctx context.Context, id int) (*models.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// Create stores a new task, filling the columns the caller left out.
func (s *TaskService) Create(ctx context.Context, fields store.Record) (int, error) {
	rec := store.Record{
		models.ColStatus:           models.StatusPending,
		models.ColPriority:         models.DefaultPriority,
		models.ColRecurrenceBase:   models.RecurrenceBaseDueDate,
		models.ColNotifyEnabled:    false,
		models.ColNotifyDaysBefore: 0,
		models.ColNotifyTime:       s.defaultNotifyTime(),
		models.ColNotifyLate:       false,
	}
	for k, v := range fields {
		if v == nil {
			if _, hasDefault := rec[k]; hasDefault {
				continue
			}
		}
		rec[k] = v
	}
	rec[models.ColCreatedAt] = models.FormatInstant(s.clock.Now())

	id, err := s.tasks.Create(ctx, rec)
	if err != nil {
		return 0, err
	}
	s.log.Infow("Task created", "task_id", id, "title", rec[models.ColTitle])
	return id, nil
}

func (s *TaskService) defaultNotifyTime() string {
	if s.settings != nil {
		if t := s.settings.Get().DefaultRemindTime; t != "" {
			return t
		}
	}
	return models.DefaultNotifyTime
}

// Update applies a column patch. Moving an open task into a done status
// stamps the completion, updates the chat and creates the next instance of
// a recurring task.
func (s *TaskService) Update(ctx context.Context, id int, patch store.Record) error {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	data := make(store.Record, len(patch)+2)
	for k, v := range patch {
		data[k] = v
	}

	status, _ := patch[models.ColStatus].(string)
	completing := models.IsDoneStatus(status) && !current.IsCompleted()
	now := s.clock.Now()

	if completing {
		data[models.ColCompletedAt] = models.FormatInstant(now)
		if current.NotificationMessageID != "" {
			data[models.ColScheduledDeleteAt] = models.FormatInstant(now.Add(models.CompletedMessageTTL))
		}
	}

	if err := s.tasks.Update(ctx, id, data); err != nil {
		return err
	}
	if !completing {
		return nil
	}

	s.announceCompletion(ctx, current, now)

	if _, err := s.AdvanceRecurrence(ctx, id, patch); err != nil {
		s.log.Errorw("Failed to create next recurring instance", "task_id", id, "error", err)
	}
	return nil
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	return s.tasks.Delete(ctx, id)
}

// announceCompletion edits the bound notification into its completed
// state, or posts a fresh completion notice when nothing is bound.
func (s *TaskService) announceCompletion(ctx context.Context, task *models.Task, now time.Time) {
	if task.NotificationMessageID != "" {
		embed := format.CompletedEmbed(task, "Completed via Dash web UI ✨", now, s.clock.Location())
		if err := s.notifier.EditEmbed(ctx, task.NotificationMessageID, embed); err != nil {
			s.log.Warnw("Failed to update notification for completed task",
				"task_id", task.ID,
				"message_id", task.NotificationMessageID,
				"error", err,
			)
			return
		}
		s.log.Infow("Updated notification for completed task", "task_id", task.ID)
		return
	}

	var mentionID string
	if person, ok := s.people.Assignee(task.AssigneeID); ok {
		mentionID = person.DiscordID
	}
	if _, err := s.notifier.SendEmbed(ctx, format.WebCompletedEmbed(task, now), mentionID); err != nil {
		s.log.Warnw("Failed to send completion notification", "task_id", task.ID, "error", err)
		return
	}
	s.log.Infow("Sent completion notification", "task_id", task.ID)
}

// AdvanceRecurrence creates the next instance of a recurring task and
// returns its id, or 0 when the task does not recur or its rule is not
// understood. Rule and base in update take precedence over the stored ones.
func (s *TaskService) AdvanceRecurrence(ctx context.Context, taskID int, update store.Record) (int, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return 0, err
	}

	rule := task.RecurrenceRule
	if v, ok := update[models.ColRecurrenceRule].(string); ok && v != "" {
		rule = v
	}
	if rule == "" {
		return 0, nil
	}
	base := task.RecurrenceBase
	if v, ok := update[models.ColRecurrenceBase].(string); ok && v != "" {
		base = v
	}

	now := s.clock.Now()
	loc := s.clock.Location()
	dateOnly := task.Due.IsSet() && !task.Due.HasTime()

	var from time.Time
	switch {
	case base == models.RecurrenceBaseCompletionDate:
		from = now
	case task.Due.HasTime():
		from = *task.Due.At
	case task.Due.IsSet():
		from, err = time.ParseInLocation(clock.DateLayout, task.Due.Date, loc)
		if err != nil {
			return 0, fmt.Errorf("parse due date of task %d: %w", taskID, err)
		}
	default:
		from = now
	}

	next, ok := rrule.Next(rule, from)
	if !ok {
		s.log.Warnw("Unrecognized recurrence rule, no next instance", "task_id", taskID, "rule", rule)
		return 0, nil
	}

	due := next.In(loc).Format(clock.TimestampLayout)
	if dateOnly {
		due = next.In(loc).Format(clock.DateLayout)
	}

	fields := store.Record{
		models.ColTitle:          task.Title,
		models.ColDescription:    emptyToNil(task.Description),
		models.ColStatus:         models.StatusPending,
		models.ColPriority:       task.Priority,
		models.ColDueDate:        due,
		models.ColProjectID:      intOrNil(task.ProjectID),
		models.ColCreatedAt:      models.FormatInstant(now),
		models.ColRecurrenceRule: rule,
		models.ColRecurrenceBase: base,
	}

	id, err := s.tasks.Create(ctx, fields)
	if err != nil {
		return 0, err
	}
	s.log.Infow("Created next recurring instance",
		"task_id", taskID,
		"next_task_id", id,
		"due", due,
		"rule", rrule.Describe(rule),
	)
	return id, nil
}

// Nudge pings the assignee of a task and returns who was pinged.
func (s *TaskService) Nudge(ctx context.Context, id int) (models.Person, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return models.Person{}, err
	}
	if task.AssigneeID == nil {
		return models.Person{}, ErrNoAssignee
	}
	person, ok := s.people.Lookup(*task.AssigneeID)
	if !ok {
		return models.Person{}, fmt.Errorf("%w: %d", ErrUnknownAssignee, *task.AssigneeID)
	}

	if _, err := s.notifier.Send(ctx, format.Nudge(task), person.DiscordID); err != nil {
		return models.Person{}, fmt.Errorf("send nudge: %w", err)
	}
	s.log.Infow("Nudge sent", "task_id", id, "assignee", person.Name)
	return person, nil
}

// Remind posts a manual reminder for a task and binds it, so a ✅ on it
// completes the task like any scheduled notification.
func (s *TaskService) Remind(ctx context.Context, id int) (string, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	var mentionID string
	if person, ok := s.people.Assignee(task.AssigneeID); ok {
		mentionID = person.DiscordID
	}

	messageID, err := s.notifier.SendEmbed(ctx, format.ManualReminderEmbed(task, s.clock.Location()), mentionID)
	if err != nil {
		return "", fmt.Errorf("send reminder: %w", err)
	}
	if messageID == "" {
		return "", nil
	}

	if err := s.notifier.AddReaction(ctx, messageID, discord.CheckEmoji); err != nil {
		s.log.Warnw("Failed to add completion reaction", "task_id", id, "message_id", messageID, "error", err)
	}
	if previous := task.NotificationMessageID; previous != "" && previous != messageID {
		s.log.Warnw("Rebinding task, previous notification message is orphaned",
			"task_id", id,
			"previous_message_id", previous,
			"message_id", messageID,
		)
	}
	if err := s.tasks.SetNotificationMessageID(ctx, id, messageID); err != nil {
		return messageID, err
	}
	s.log.Infow("Manual reminder sent", "task_id", id, "message_id", messageID)
	return messageID, nil
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
