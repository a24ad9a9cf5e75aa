package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/ports"
)

// TimeHandler handles time tracking requests
type TimeHandler struct {
	timeService ports.TimeService
	logger      *logger.Logger
}

// NewTimeHandler creates a new time handler
func NewTimeHandler(timeService ports.TimeService, logger *logger.Logger) *TimeHandler {
	return &TimeHandler{
		timeService: timeService,
		logger:      logger,
	}
}

// ActiveTimerResponse wraps the running timer, if any
type ActiveTimerResponse struct {
	Active bool                `json:"active"`
	Entry  *entities.TimeEntry `json:"entry"`
}

// CreateTimeEntry handles POST /time-entries
func (h *TimeHandler) CreateTimeEntry(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.CreateTimeEntryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := h.timeService.CreateEntry(c.Request().Context(), userID, req)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// UpdateTimeEntry handles PATCH /time-entries/:id
func (h *TimeHandler) UpdateTimeEntry(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	entryID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTimeEntryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := h.timeService.UpdateEntry(c.Request().Context(), userID, entryID, req.ToPatch())
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, entry)
}

// DeleteTimeEntry handles DELETE /time-entries/:id
func (h *TimeHandler) DeleteTimeEntry(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	entryID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.timeService.DeleteEntry(c.Request().Context(), userID, entryID); err != nil {
		return mapError(h.logger, c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// StartTimer handles POST /time-entries/start
func (h *TimeHandler) StartTimer(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.StartTimerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := h.timeService.StartTimer(c.Request().Context(), userID, req.TaskID, req.Description)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// StopTimer handles POST /time-entries/:id/stop
func (h *TimeHandler) StopTimer(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	entryID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	entry, err := h.timeService.StopTimer(c.Request().Context(), userID, entryID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, entry)
}

// GetActiveTimer handles GET /time-entries/active
func (h *TimeHandler) GetActiveTimer(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	entry, err := h.timeService.GetActiveTimer(c.Request().Context(), userID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, ActiveTimerResponse{Active: entry != nil, Entry: entry})
}

// ListTimeEntries handles GET /time-entries
func (h *TimeHandler) ListTimeEntries(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	entries, err := h.timeService.ListEntries(c.Request().Context(), userID, filter)
	if err != nil {
		return mapError(h.logger, c, err)
	}
	if entries == nil {
		entries = []*entities.TimeEntry{}
	}

	return c.JSON(http.StatusOK, PaginatedResponse[*entities.TimeEntry]{
		Data:   entries,
		Count:  len(entries),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetTimeStats handles GET /time-entries/stats
func (h *TimeHandler) GetTimeStats(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	stats, err := h.timeService.GetStats(c.Request().Context(), userID, filter)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

// GetDailyStats handles GET /time-entries/stats/daily
func (h *TimeHandler) GetDailyStats(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	days, err := h.timeService.GetDailyStats(c.Request().Context(), userID, filter)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, listOf(days))
}

// parseFilter reads task_id, project_id, start_date, end_date, limit and offset.
func parseFilter(c echo.Context) (ports.TimeEntryFilter, error) {
	var filter ports.TimeEntryFilter
	bad := func(name string) error {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " parameter"})
	}

	if v := c.QueryParam("task_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, bad("task_id")
		}
		filter.TaskID = &id
	}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, bad("project_id")
		}
		filter.ProjectID = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := c.QueryParam("end_date"); v != "" {
		filter.EndDate = &v
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, bad("limit")
		}
		filter.Limit = limit
	}
	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filter, bad("offset")
		}
		filter.Offset = offset
	}

	return filter, validate(c, &filter)
}
