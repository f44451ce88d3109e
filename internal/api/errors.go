package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTransaction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrAlertNotFound),
		errors.Is(err, graph.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders domain errors and echo HTTP errors as JSON
func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusFor(err)
		message := err.Error()

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		}
		if status == http.StatusInternalServerError {
			log.WithContext(c.Request().Context()).Error("request failed",
				logger.StringField("path", c.Path()),
				logger.ErrorField(err),
			)
			message = http.StatusText(status)
		}

		if err := c.JSON(status, ErrorResponse{Error: message}); err != nil {
			log.Warn("failed to write error response", logger.ErrorField(err))
		}
	}
}
