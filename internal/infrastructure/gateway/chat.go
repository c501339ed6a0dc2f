package gateway

import (
	"context"
	"net/http"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

func (c *Client) SendMessage(ctx context.Context, recipientID, text string) (*domain.Message, []domain.UserRef, error) {
	var a apiMessage
	err := c.do(ctx, request{
		op:     "messages.send",
		method: http.MethodPost,
		path:   "/messages/",
		json:   map[string]any{"recipient": wireID(recipientID), "text": text},
	}, &a)
	if err != nil {
		return nil, nil, err
	}
	m := a.toDomain()
	if m.RecipientID == "" {
		m.RecipientID = recipientID
	}
	return &m, refs(a.Sender, a.Recipient), nil
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var page list[apiConversation]
	if err := c.do(ctx, request{op: "messages.conversations", method: http.MethodGet, path: "/messages/conversations/"}, &page); err != nil {
		return nil, err
	}
	out := make([]domain.ConversationSummary, 0, len(page))
	for i := range page {
		out = append(out, page[i].toDomain())
	}
	return out, nil
}

func (c *Client) MessagesWith(ctx context.Context, peerID string) ([]domain.Message, []domain.UserRef, error) {
	var page list[apiMessage]
	err := c.do(ctx, request{
		op:     "messages.with_user",
		method: http.MethodGet,
		path:   "/messages/with_user/",
		query:  map[string]string{"user_id": peerID},
	}, &page)
	if err != nil {
		return nil, nil, err
	}
	msgs := make([]domain.Message, 0, len(page))
	var users []domain.UserRef
	for i := range page {
		msgs = append(msgs, page[i].toDomain())
		users = append(users, refs(page[i].Sender, page[i].Recipient)...)
	}
	return msgs, users, nil
}
