package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gandash/dash/internal/models"
	"github.com/gandash/dash/internal/store"
)

type TaskRepository struct {
	store store.Store
	loc   *time.Location
}

// NewTaskRepository reads zone-less timestamps in loc.
func NewTaskRepository(s store.Store, loc *time.Location) *TaskRepository {
	return &TaskRepository{store: s, loc: loc}
}

func (r *TaskRepository) List(ctx context.Context) ([]*models.Task, error) {
	records, err := r.store.List(ctx, store.TableTasks)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*models.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, models.TaskFromRecord(rec, r.loc))
	}
	return tasks, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int) (*models.Task, error) {
	rec, err := r.store.Get(ctx, store.TableTasks, id)
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return models.TaskFromRecord(rec, r.loc), nil
}

// Create inserts raw column values and returns the new id.
func (r *TaskRepository) Create(ctx context.Context, fields store.Record) (int, error) {
	id, err := r.store.Create(ctx, store.TableTasks, fields)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

func (r *TaskRepository) Update(ctx context.Context, id int, fields store.Record) error {
	if err := r.store.Update(ctx, store.TableTasks, id, fields); err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	if err := r.store.Delete(ctx, store.TableTasks, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// SetNotificationMessageID binds a chat message to the task.
func (r *TaskRepository) SetNotificationMessageID(ctx context.Context, id int, messageID string) error {
	return r.Update(ctx, id, store.Record{
		models.ColNotificationMessageID: messageID,
	})
}

// MarkCompleted closes the task and schedules its message for deletion.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id int, completedAt, deleteAt time.Time) error {
	return r.Update(ctx, id, store.Record{
		models.ColStatus:            models.StatusDone,
		models.ColCompletedAt:       models.FormatInstant(completedAt),
		models.ColScheduledDeleteAt: models.FormatInstant(deleteAt),
	})
}

// ClearNotification tears down the message binding.
func (r *TaskRepository) ClearNotification(ctx context.Context, id int) error {
	return r.Update(ctx, id, store.Record{
		models.ColNotificationMessageID: nil,
		models.ColScheduledDeleteAt:     nil,
	})
}
