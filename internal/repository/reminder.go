package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gandash/dash/internal/models"
	"github.com/gandash/dash/internal/store"
)

type ReminderRepository struct {
	store store.Store
	loc   *time.Location
}

func NewReminderRepository(s store.Store, loc *time.Location) *ReminderRepository {
	return &ReminderRepository{store: s, loc: loc}
}

// List returns every reminder, archived ones included.
func (r *ReminderRepository) List(ctx context.Context) ([]*models.Reminder, error) {
	records, err := r.store.List(ctx, store.TableReminders)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	reminders := make([]*models.Reminder, 0, len(records))
	for _, rec := range records {
		reminders = append(reminders, models.ReminderFromRecord(rec, r.loc))
	}
	return reminders, nil
}

// ListActive returns reminders that are not archived.
func (r *ReminderRepository) ListActive(ctx context.Context) ([]*models.Reminder, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, reminder := range all {
		if reminder.IsActive() {
			active = append(active, reminder)
		}
	}
	return active, nil
}

func (r *ReminderRepository) Create(ctx context.Context, fields store.Record) (int, error) {
	id, err := r.store.Create(ctx, store.TableReminders, fields)
	if err != nil {
		return 0, fmt.Errorf("create reminder: %w", err)
	}
	return id, nil
}

func (r *ReminderRepository) Update(ctx context.Context, id int, fields store.Record) error {
	if err := r.store.Update(ctx, store.TableReminders, id, fields); err != nil {
		return fmt.Errorf("update reminder %d: %w", id, err)
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id int) error {
	if err := r.store.Delete(ctx, store.TableReminders, id); err != nil {
		return fmt.Errorf("delete reminder %d: %w", id, err)
	}
	return nil
}

func (r *ReminderRepository) Archive(ctx context.Context, id int, at time.Time) error {
	return r.Update(ctx, id, store.Record{
		models.ColReminderArchived:   true,
		models.ColReminderArchivedAt: models.FormatInstant(at),
	})
}
