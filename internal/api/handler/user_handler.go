package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// UserHandler exposes the identity directory and the device reset.
type UserHandler struct {
	dir   ports.NameResolver
	store ports.LocalStore
}

func NewUserHandler(dir ports.NameResolver, store ports.LocalStore) *UserHandler {
	return &UserHandler{dir: dir, store: store}
}

// Name handles GET /v1/users/:id/name. It never fails; unknown ids resolve
// to "Unknown User".
//
// @Summary      Resolve a user's display name
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  nameResponse
// @Router       /v1/users/{id}/name [get]
func (h *UserHandler) Name(c echo.Context) error {
	id := c.Param("id")
	return c.JSON(http.StatusOK, nameResponse{ID: id, Name: h.dir.ResolveName(c.Request().Context(), id)})
}

// ResetCache handles DELETE /v1/cache. Every slot is removed, which also
// ends the session.
//
// @Summary      Reset the local cache
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Router       /v1/cache [delete]
func (h *UserHandler) ResetCache(c echo.Context) error {
	if err := h.store.Clear(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
