package scheduler

import "context"

// ArchiveOldReminders archives every active reminder dated before today.
// Archived reminders are skipped, so running it twice changes nothing.
func (s *Scheduler) ArchiveOldReminders(ctx context.Context) error {
	now := s.clock.Now()
	today := s.clock.Today(now)

	reminders, err := s.reminders.ListActive(ctx)
	if err != nil {
		return err
	}

	archived := 0
	for _, r := range reminders {
		if r.DueDate == "" || r.DueDate >= today {
			continue
		}
		if err := s.reminders.Archive(ctx, r.ID, now); err != nil {
			s.log.Errorw("Failed to archive reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		s.metrics.remindersArchived.Inc()
		archived++
		s.log.Debugw("Archived reminder", "reminder_id", r.ID, "text", r.Text)
	}

	if archived > 0 {
		s.log.Infow("Archived old reminders", "count", archived)
	}
	return nil
}
