package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// SessionReader is the part of the local store Session needs.
type SessionReader interface {
	SessionActive(ctx context.Context) (bool, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Session binds a token to the agent's active session: the subject and role
// claims must match the cached session user. Runs after Auth.
//
// A corrupt cache passes through so the request can surface the corruption
// and DELETE /v1/cache can still reset it.
func Session(store SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, _ := c.Get(CtxUserID).(string)
			role, _ := c.Get(CtxRole).(string)

			active, err := store.SessionActive(ctx)
			if err == nil && active {
				var u *domain.User
				u, err = store.CurrentUser(ctx)
				if err == nil && (u == nil || u.ID != userID || string(u.Role) != role) {
					active = false
				}
			}
			switch {
			case errors.Is(err, domain.ErrCorruptCache):
				return next(c)
			case err != nil:
				return err
			case !active:
				return echo.NewHTTPError(http.StatusUnauthorized, "token does not belong to the current session")
			}
			return next(c)
		}
	}
}
