package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gandash/dash/internal/models"
)

// taskFields maps the JSON keys of the web UI to task columns.
var taskFields = map[string]string{
	"title":            models.ColTitle,
	"description":      models.ColDescription,
	"status":           models.ColStatus,
	"priority":         models.ColPriority,
	"dueDate":          models.ColDueDate,
	"dueTime":          models.ColDueTime,
	"projectId":        models.ColProjectID,
	"assigneeId":       models.ColAssigneeID,
	"completedAt":      models.ColCompletedAt,
	"recurrenceRule":   models.ColRecurrenceRule,
	"recurrenceBase":   models.ColRecurrenceBase,
	"notifyEnabled":    models.ColNotifyEnabled,
	"notifyDaysBefore": models.ColNotifyDaysBefore,
	"notifyTime":       models.ColNotifyTime,
	"notifyLate":       models.ColNotifyLate,
}

type taskRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=1"`
	Status           *string `json:"status" validate:"omitempty,oneof=pending in-progress completed done"`
	Priority         *int    `json:"priority" validate:"omitempty,min=1,max=4"`
	RecurrenceBase   *string `json:"recurrenceBase" validate:"omitempty,oneof=due_date completion_date"`
	NotifyDaysBefore *int    `json:"notifyDaysBefore" validate:"omitempty,min=0"`
	NotifyTime       *string `json:"notifyTime" validate:"omitempty,hhmm"`
}

type taskResponse struct {
	ID               int                 `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Status           string              `json:"status"`
	Priority         int                 `json:"priority"`
	DueDate          *string             `json:"dueDate"`
	DueTime          *string             `json:"dueTime"`
	ProjectID        *int                `json:"projectId"`
	AssigneeID       *int                `json:"assigneeId"`
	CompletedAt      *string             `json:"completedAt"`
	CreatedAt        string              `json:"createdAt"`
	RecurrenceRule   *string             `json:"recurrenceRule"`
	RecurrenceBase   string              `json:"recurrenceBase"`
	NotifyEnabled    bool                `json:"notifyEnabled"`
	NotifyDaysBefore int                 `json:"notifyDaysBefore"`
	NotifyTime       string              `json:"notifyTime"`
	NotifyLate       bool                `json:"notifyLate"`
	Attachments      []models.Attachment `json:"attachments"`
}

func newTaskResponse(t *models.Task) taskResponse {
	resp := taskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           t.Status,
		Priority:         t.Priority,
		DueDate:          optional(t.Due.Raw),
		DueTime:          optional(t.DueTime),
		ProjectID:        t.ProjectID,
		AssigneeID:       t.AssigneeID,
		CreatedAt:        t.CreatedAt,
		RecurrenceRule:   optional(t.RecurrenceRule),
		RecurrenceBase:   t.RecurrenceBase,
		NotifyEnabled:    t.NotifyEnabled,
		NotifyDaysBefore: t.NotifyDaysBefore,
		NotifyTime:       t.NotifyTime,
		NotifyLate:       t.NotifyLate,
		Attachments:      t.Attachments,
	}
	if t.CompletedAt != nil {
		resp.CompletedAt = optional(models.FormatInstant(*t.CompletedAt))
	}
	if resp.Attachments == nil {
		resp.Attachments = []models.Attachment{}
	}
	return resp
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.deps.Tasks.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, newTaskResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getTask(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	task, err := s.deps.Tasks.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

func (s *Server) createTask(c echo.Context) error {
	var req taskRequest
	fields, err := bindPatch(c, &req, taskFields)
	if err != nil {
		return err
	}
	if req.Title == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	delete(fields, models.ColCompletedAt)

	ctx := c.Request().Context()
	id, err := s.deps.Tasks.Create(ctx, fields)
	if err != nil {
		return err
	}

	task, err := s.deps.Tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.NotifyEnabled && s.deps.Wake != nil {
		s.deps.Wake()
	}
	return c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (s *Server) updateTask(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req taskRequest
	patch, err := bindPatch(c, &req, taskFields)
	if err != nil {
		return err
	}

	if err := s.deps.Tasks.Update(c.Request().Context(), id, patch); err != nil {
		return err
	}
	return success(c, nil)
}

func (s *Server) deleteTask(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := s.deps.Tasks.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return success(c, nil)
}

func (s *Server) nudgeTask(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	person, err := s.deps.Tasks.Nudge(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, map[string]interface{}{
		"message": fmt.Sprintf("Nudge sent to %s", person.Name),
	})
}

func (s *Server) remindTask(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	messageID, err := s.deps.Tasks.Remind(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, map[string]interface{}{"messageId": optional(messageID)})
}
