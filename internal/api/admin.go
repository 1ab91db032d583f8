package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gandash/dash/internal/service"
)

func (s *Server) listPeople(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.People.All())
}

func (s *Server) getSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) updateSettings(c echo.Context) error {
	var req service.Settings
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	updated, err := s.deps.Settings.Update(req)
	if err != nil {
		return err
	}
	return success(c, map[string]interface{}{"settings": updated})
}

// triggerCheck runs every notification check once, outside the ticker.
func (s *Server) triggerCheck(c echo.Context) error {
	if err := s.deps.Checker.RunAllChecks(c.Request().Context()); err != nil {
		return err
	}
	return success(c, map[string]interface{}{"message": "Notification check triggered"})
}
