package service

import (
	"context"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/logger"
	"github.com/gandash/dash/internal/models"
	"github.com/gandash/dash/internal/repository"
	"github.com/gandash/dash/internal/store"
)

type ReminderService struct {
	reminders *repository.ReminderRepository
	clock     *clock.Clock
	log       *logger.Logger
}

func NewReminderService(reminders *repository.ReminderRepository, clk *clock.Clock, log *logger.Logger) *ReminderService {
	return &ReminderService{
		reminders: reminders,
		clock:     clk,
		log:       log.WithComponent("service"),
	}
}

// List hides archived reminders.
func (s *ReminderService) List(ctx context.Context) ([]*models.Reminder, error) {
	return s.reminders.ListActive(ctx)
}

func (s *ReminderService) Create(ctx context.Context, fields store.Record) (int, error) {
	rec := store.Record{
		models.ColReminderCreatedVia: "web",
		models.ColReminderArchived:   false,
		models.ColReminderCreatedAt:  models.FormatInstant(s.clock.Now()),
	}
	for k, v := range fields {
		if v == nil {
			if _, hasDefault := rec[k]; hasDefault {
				continue
			}
		}
		rec[k] = v
	}

	id, err := s.reminders.Create(ctx, rec)
	if err != nil {
		return 0, err
	}
	s.log.Infow("Reminder created", "reminder_id", id, "text", rec[models.ColReminderText])
	return id, nil
}

// Update applies a column patch; archiving stamps ArchivedAt.
func (s *ReminderService) Update(ctx context.Context, id int, patch store.Record) error {
	data := make(store.Record, len(patch)+1)
	for k, v := range patch {
		data[k] = v
	}
	if archived, ok := patch[models.ColReminderArchived]; ok && models.Truthy(archived) {
		data[models.ColReminderArchivedAt] = models.FormatInstant(s.clock.Now())
	}
	return s.reminders.Update(ctx, id, data)
}

func (s *ReminderService) Delete(ctx context.Context, id int) error {
	return s.reminders.Delete(ctx, id)
}
