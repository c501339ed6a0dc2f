package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// FeedHandler serves the Tubonge feed.
type FeedHandler struct {
	svc ports.FeedService
}

func NewFeedHandler(svc ports.FeedService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// Feed handles GET /v1/feed.
//
// @Summary      Posts, newest first
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Result[[]domain.Post]
// @Router       /v1/feed [get]
func (h *FeedHandler) Feed(c echo.Context) error {
	res, err := h.svc.Feed(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// CreatePost handles POST /v1/feed/posts (multipart).
//
// @Summary      Create a post
// @Tags         feed
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        text   formData  string  false  "Text"
// @Param        link   formData  string  false  "External link"
// @Param        media  formData  file    false  "Image or video (video up to 10MB)"
// @Success      201    {object}  domain.Result[domain.Post]
// @Failure      400    {object}  errorResponse
// @Router       /v1/feed/posts [post]
func (h *FeedHandler) CreatePost(c echo.Context) error {
	var form postForm
	if err := bind(c, &form); err != nil {
		return err
	}
	media, err := attachment(c, "media")
	if err != nil {
		return err
	}

	res, err := h.svc.CreatePost(c.Request().Context(), toPostInput(form, media))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// ToggleLike handles POST /v1/feed/posts/:id/like.
//
// @Summary      Like or unlike a post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post id"
// @Success      200  {object}  domain.Result[domain.LikeState]
// @Failure      404  {object}  errorResponse
// @Router       /v1/feed/posts/{id}/like [post]
func (h *FeedHandler) ToggleLike(c echo.Context) error {
	res, err := h.svc.ToggleLike(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Comments handles GET /v1/feed/posts/:id/comments.
//
// @Summary      Comments on a post, oldest first
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post id"
// @Success      200  {object}  domain.Result[[]domain.Comment]
// @Failure      404  {object}  errorResponse
// @Router       /v1/feed/posts/{id}/comments [get]
func (h *FeedHandler) Comments(c echo.Context) error {
	res, err := h.svc.Comments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// AddComment handles POST /v1/feed/posts/:id/comments.
//
// @Summary      Comment on a post
// @Tags         feed
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Post id"
// @Param        body  body      commentRequest  true  "Comment"
// @Success      201   {object}  domain.Result[domain.Comment]
// @Failure      400   {object}  errorResponse
// @Router       /v1/feed/posts/{id}/comments [post]
func (h *FeedHandler) AddComment(c echo.Context) error {
	var req commentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.AddComment(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}
