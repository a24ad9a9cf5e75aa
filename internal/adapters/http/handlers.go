// Package http exposes the project, task and time services over echo.
// Handlers only parse, validate and translate errors; all rules live in the services.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
)

// UserContextKey is where the auth middleware stores the caller's user id.
const UserContextKey = "user"

// Utility functions and helper types

// getUserIDFromContext returns the authenticated user or a 401.
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(UserContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, ErrorResponse{Error: "missing user identity"})
	}
	return userID, nil
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
	}
	return id, nil
}

type normalizer interface {
	Normalize()
}

// bindAndValidate decodes the body into req, trims it and runs the validator.
func bindAndValidate(c echo.Context, req normalizer) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid request format"})
	}
	req.Normalize()
	return validate(c, req)
}

func validate(c echo.Context, req interface{}) error {
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: validationDetails(err),
		})
	}
	return nil
}

// mapError turns a service error into the HTTP error the client sees.
// Unknown errors are logged and hidden behind a 500.
func mapError(log *logger.Logger, c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrNotFoundOrForbidden), errors.Is(err, entities.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrHasChildren),
		errors.Is(err, entities.ErrTimerAlreadyActive),
		errors.Is(err, entities.ErrOrdinalConflict):
		status = http.StatusConflict
	case errors.Is(err, entities.ErrDepthExceeded), errors.Is(err, entities.ErrInvalidRange):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Errorw("Request failed", "error", err, "path", c.Path(), "method", c.Request().Method)
		return echo.NewHTTPError(status, ErrorResponse{Error: http.StatusText(status)}).SetInternal(err)
	}

	return echo.NewHTTPError(status, ErrorResponse{Error: rootMessage(err)})
}

// rootMessage is the sentinel's own text, without the service's wrapping prefix.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		entities.ErrNotFoundOrForbidden,
		entities.ErrNotFound,
		entities.ErrHasChildren,
		entities.ErrTimerAlreadyActive,
		entities.ErrOrdinalConflict,
		entities.ErrDepthExceeded,
		entities.ErrInvalidRange,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// Request/Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

type PaginatedResponse[T any] struct {
	Data   []T `json:"data"`
	Count  int `json:"count"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Count: len(items)}
}
