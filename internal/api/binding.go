package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gandash/dash/internal/store"
)

func idParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

// bindPatch decodes a partial update. req receives the typed view for
// validation; the returned record holds the columns named in fields for
// every key present in the body, including explicit nulls.
func bindPatch(c echo.Context, req interface{}, fields map[string]string) (store.Record, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	patch := make(store.Record, len(raw))
	for key, value := range raw {
		if column, ok := fields[key]; ok {
			patch[column] = value
		}
	}
	return patch, nil
}

func success(c echo.Context, extra map[string]interface{}) error {
	resp := map[string]interface{}{"success": true}
	for k, v := range extra {
		resp[k] = v
	}
	return c.JSON(http.StatusOK, resp)
}
