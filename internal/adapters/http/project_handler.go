package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/ports"
)

// ProjectHandler handles project-related requests
type ProjectHandler struct {
	projectService ports.ProjectService
	logger         *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService ports.ProjectService, logger *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), userID, req)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusCreated, project)
}

// GetProject handles GET /projects/:id
func (h *ProjectHandler) GetProject(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projectService.GetProject(c.Request().Context(), userID, projectID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, project)
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	projects, err := h.projectService.ListProjects(c.Request().Context(), userID)
	if err != nil {
		return mapError(h.logger, c, err)
	}

	return c.JSON(http.StatusOK, listOf(projects))
}

// DeleteProject handles DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.projectService.DeleteProject(c.Request().Context(), userID, projectID); err != nil {
		return mapError(h.logger, c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
