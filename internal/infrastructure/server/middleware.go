package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskmaster/wbs/internal/adapters/http"
	"github.com/taskmaster/wbs/internal/infrastructure/metrics"
)

// TokenValidator resolves a bearer token to a user id
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// authMiddleware validates bearer tokens and stores the user id for the handlers
func (s *Server) authMiddleware(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, httpHandlers.ErrorResponse{Error: "missing authorization header"})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, httpHandlers.ErrorResponse{Error: "invalid authorization header format"})
			}

			userID, err := tokens.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
					"path":  c.Request().URL.Path,
				})
				return echo.NewHTTPError(http.StatusUnauthorized, httpHandlers.ErrorResponse{Error: "invalid token"})
			}

			c.Set(httpHandlers.UserContextKey, userID)

			return next(c)
		}
	}
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}

		metrics.HTTPRequests.WithLabelValues(
			c.Request().Method,
			c.Path(),
			strconv.Itoa(status),
		).Inc()

		metrics.HTTPDuration.WithLabelValues(
			c.Request().Method,
			c.Path(),
		).Observe(time.Since(start).Seconds())

		return err
	}
}
