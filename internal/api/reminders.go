package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gandash/dash/internal/models"
)

var reminderFields = map[string]string{
	"text":       models.ColReminderText,
	"dueDate":    models.ColReminderDueDate,
	"dueTime":    models.ColReminderDueTime,
	"assigneeId": models.ColReminderAssignee,
	"createdVia": models.ColReminderCreatedVia,
	"archived":   models.ColReminderArchived,
}

type reminderRequest struct {
	Text       *string `json:"text" validate:"omitempty,min=1"`
	DueTime    *string `json:"dueTime" validate:"omitempty,hhmm"`
	AssigneeID *int    `json:"assigneeId" validate:"omitempty,min=1"`
	CreatedVia *string `json:"createdVia"`
	Archived   *bool   `json:"archived"`
}

func (s *Server) listReminders(c echo.Context) error {
	reminders, err := s.deps.Reminders.List(c.Request().Context())
	if err != nil {
		return err
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}
	return c.JSON(http.StatusOK, reminders)
}

func (s *Server) createReminder(c echo.Context) error {
	var req reminderRequest
	fields, err := bindPatch(c, &req, reminderFields)
	if err != nil {
		return err
	}
	if req.Text == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	delete(fields, models.ColReminderArchived)

	id, err := s.deps.Reminders.Create(c.Request().Context(), fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":         id,
		"text":       *req.Text,
		"dueDate":    fields[models.ColReminderDueDate],
		"dueTime":    fields[models.ColReminderDueTime],
		"assigneeId": fields[models.ColReminderAssignee],
	})
}

func (s *Server) updateReminder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req reminderRequest
	patch, err := bindPatch(c, &req, reminderFields)
	if err != nil {
		return err
	}
	delete(patch, models.ColReminderCreatedVia)

	if err := s.deps.Reminders.Update(c.Request().Context(), id, patch); err != nil {
		return err
	}
	return success(c, nil)
}

func (s *Server) deleteReminder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := s.deps.Reminders.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return success(c, nil)
}
