// Package handler adapts HTTP requests to the service layer. Handlers bind
// and validate a DTO, call one service method under a bounded context and
// map the result, or the error, to JSON.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/model"
)

// requestTimeout bounds every service call made by a handler.
const requestTimeout = 5 * time.Second

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a taxonomy error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyDecided), errors.Is(err, model.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrInvalidReservationRequest),
		errors.Is(err, model.ErrInvalidMenuItem),
		errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized),
		errors.Is(err, model.ErrExpiredCredential),
		errors.Is(err, model.ErrInvalidCredential),
		errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// fail writes err as an ErrorBody. Unmapped errors are logged and answered
// with a generic 500 so internal details never reach the client.
func fail(c echo.Context, log *slog.Logger, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(status, ErrorBody{Error: "internal_error", Message: "internal server error"})
	}
	return c.JSON(status, ErrorBody{Error: model.Code(err), Message: err.Error()})
}

// ErrorHandler renders errors returned from handlers and middleware,
// including echo's own routing and binding errors, as an ErrorBody.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			code := "http_error"
			switch he.Code {
			case http.StatusNotFound:
				code = "not_found"
			case http.StatusMethodNotAllowed:
				code = "method_not_allowed"
			case http.StatusRequestEntityTooLarge:
				code = "request_too_large"
			case http.StatusBadRequest:
				code = "invalid_input"
			case http.StatusInternalServerError:
				code, msg = "internal_error", "internal server error"
			}
			_ = c.JSON(he.Code, ErrorBody{Error: code, Message: msg})
			return
		}
		_ = fail(c, log, err)
	}
}

// withTimeout derives the service context from the request.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrInvalidInput, name)
	}
	return id, nil
}

func principal(c echo.Context) model.Principal { return middleware.PrincipalFrom(c) }

func loggerOrDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
