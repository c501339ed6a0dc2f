package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// TokenIssuer signs the bearer token handed to a UI after login or register.
type TokenIssuer interface {
	Issue(u *domain.User) (string, time.Time, error)
}

type SessionHandler struct {
	svc    ports.SessionService
	tokens TokenIssuer
}

func NewSessionHandler(svc ports.SessionService, tokens TokenIssuer) *SessionHandler {
	return &SessionHandler{svc: svc, tokens: tokens}
}

// Register creates an account, falling back to a local-only profile offline.
//
// @Summary      Register a new user
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      ports.RegisterInput  true  "Registration form"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/session/register [post]
func (h *SessionHandler) Register(c echo.Context) error {
	var req ports.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return h.respondWithToken(c, http.StatusCreated, res)
}

// Login authenticates against the backend. There is no offline login.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      ports.LoginInput  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/session/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req ports.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return h.respondWithToken(c, http.StatusOK, res)
}

func (h *SessionHandler) respondWithToken(c echo.Context, status int, res domain.Result[*domain.User]) error {
	token, exp, err := h.tokens.Issue(res.Value)
	if err != nil {
		return err
	}
	resp := toSessionResponse(res)
	resp.Token, resp.ExpiresAt = token, &exp
	return c.JSON(status, resp)
}

// Current returns the session user, revalidated against the backend when reachable.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Current(c echo.Context) error {
	res, err := h.svc.Current(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(res))
}

// Logout ends the session. The cached profile is kept for offline use.
//
// @Summary      Logout
// @Tags         session
// @Security     BearerAuth
// @Success      204
// @Router       /v1/session/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateProfile edits the session user's profile.
//
// @Summary      Update profile
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.ProfilePatch  true  "Fields to change"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/profile [patch]
func (h *SessionHandler) UpdateProfile(c echo.Context) error {
	var req ports.ProfilePatch
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.UpdateProfile(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(res))
}
