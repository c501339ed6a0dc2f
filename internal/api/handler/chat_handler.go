package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/ports"
)

type ChatHandler struct {
	svc ports.ChatService
}

func NewChatHandler(svc ports.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Conversations handles GET /v1/chat/conversations.
//
// @Summary      Conversations, most recent first
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Result[[]domain.ConversationSummary]
// @Router       /v1/chat/conversations [get]
func (h *ChatHandler) Conversations(c echo.Context) error {
	res, err := h.svc.Conversations(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Messages handles GET /v1/chat/:peer/messages and marks the conversation read.
//
// @Summary      Messages with a peer, oldest first
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        peer  path      string  true  "Peer user id"
// @Success      200   {object}  domain.Result[[]domain.Message]
// @Router       /v1/chat/{peer}/messages [get]
func (h *ChatHandler) Messages(c echo.Context) error {
	res, err := h.svc.Messages(c.Request().Context(), c.Param("peer"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Send handles POST /v1/chat/:peer/messages.
//
// @Summary      Send a message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        peer  path      string          true  "Peer user id"
// @Param        body  body      messageRequest  true  "Message"
// @Success      201   {object}  domain.Result[domain.Message]
// @Failure      400   {object}  errorResponse
// @Router       /v1/chat/{peer}/messages [post]
func (h *ChatHandler) Send(c echo.Context) error {
	var req messageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Send(c.Request().Context(), c.Param("peer"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}
