package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the domain error taxonomy to HTTP status codes.
//   - Passes backend rejection messages through verbatim.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// The backend answered and said no: its message is user-actionable.
	if ae, ok := domain.AsApplication(err); ok {
		code := ae.Status
		if code < 400 || code >= 500 {
			code = http.StatusBadGateway
		}
		return code, errorResponse{Error: ae.Message, Fields: ae.Fields}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Error: inputMessage(err)}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "not logged in"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, domain.ErrInFlight):
		return http.StatusConflict, errorResponse{Error: "operation already in progress"}
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrConnectivity):
		log.Info().Err(err).Str("path", c.Path()).Msg("operation unavailable offline")
		return http.StatusServiceUnavailable, errorResponse{Error: "service unavailable while offline, try again when connected"}
	case errors.Is(err, domain.ErrCorruptCache):
		log.Error().Err(err).Str("path", c.Path()).Msg("corrupt local cache")
		return http.StatusInternalServerError, errorResponse{Error: "local cache is corrupt, reset it to continue"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

// inputMessage strips the operation prefix and keeps the validator detail.
func inputMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
		return msg[i+len(domain.ErrInvalidInput.Error())+2:]
	}
	return msg
}
