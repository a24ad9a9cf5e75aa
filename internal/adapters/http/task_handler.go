package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/ports"
)

// TaskHandler handles WBS task requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask handles POST /projects/:id/tasks. The project comes from the path.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid request format"})
	}
	req.ProjectID = projectID
	req.Normalize()
	if err := validate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), userID, req)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusCreated, task)
}

// ListTasks handles GET /projects/:id/tasks
func (h *TaskHandler) ListTasks(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	tasks, err := h.taskService.ListProjectTasks(c.Request().Context(), userID, projectID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, listOf(tasks))
}

// GetTree handles GET /projects/:id/tree
func (h *TaskHandler) GetTree(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	tree, err := h.taskService.GetTaskTree(c.Request().Context(), userID, projectID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, listOf(tree))
}

// GetStats handles GET /projects/:id/stats
func (h *TaskHandler) GetStats(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	stats, err := h.taskService.GetStats(c.Request().Context(), userID, projectID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

// UpdateTask handles PATCH /tasks/:id. Absent fields are left unchanged.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	taskID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), userID, taskID, req.ToPatch())
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	taskID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
		return mapError(h.logger, c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
