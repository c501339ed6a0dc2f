package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/validation"
)

// ChatService is the accessor for direct messages. Offline messages live in
// this device's cache only; the peer never sees them.
type ChatService struct {
	base
	gw ports.ChatGateway

	mu sync.Mutex
}

var _ ports.ChatService = (*ChatService)(nil)

func NewChatService(gw ports.ChatGateway, deps Deps) *ChatService {
	return &ChatService{base: newBase(deps, "chat"), gw: gw}
}

func messageAt(m domain.Message) time.Time { return m.SentAt }

// mutate runs fn over the cached conversation map and writes it back.
func (s *ChatService) mutate(ctx context.Context, fn func(map[string]domain.Conversation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.store.Conversations(ctx)
	if err != nil {
		return err
	}
	if err := fn(convs); err != nil {
		return err
	}
	return s.store.SetConversations(ctx, convs)
}

func conversation(convs map[string]domain.Conversation, peerID string) domain.Conversation {
	c, ok := convs[peerID]
	if !ok {
		c = domain.Conversation{PeerID: peerID, Messages: []domain.Message{}}
	}
	return c
}

// appendMessage adds m to its conversation. Message times never go
// backwards within a conversation.
func appendMessage(c *domain.Conversation, m *domain.Message) {
	if n := len(c.Messages); n > 0 && m.SentAt.Before(c.Messages[n-1].SentAt) {
		m.SentAt = c.Messages[n-1].SentAt
	}
	c.Messages = append(c.Messages, *m)
	c.LastMessageAt = m.SentAt
}

// Send delivers text to peerID. Offline the message is appended to the
// local conversation and the conversation's unread counter goes up.
func (s *ChatService) Send(ctx context.Context, peerID, text string) (domain.Result[*domain.Message], error) {
	const op = "chat.send"
	text = strings.TrimSpace(text)
	if peerID == "" {
		return domain.Result[*domain.Message]{}, validation.Invalid("recipient is required")
	}
	if text == "" {
		return domain.Result[*domain.Message]{}, validation.Invalid("message text is required")
	}
	u, err := s.sessionUser(ctx)
	if err != nil {
		return domain.Result[*domain.Message]{}, fmt.Errorf("%s: %w", op, err)
	}
	if peerID == u.ID {
		return domain.Result[*domain.Message]{}, validation.Invalid("cannot message yourself")
	}
	release, err := s.acquire(ctx, op, u.ID+":"+peerID+":"+text)
	if err != nil {
		return domain.Result[*domain.Message]{}, err
	}
	defer release()

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Message, error) {
			m, refs, err := s.gw.SendMessage(ctx, peerID, text)
			if err != nil {
				return nil, err
			}
			s.observe(ctx, refs...)
			if m.SenderID == "" {
				m.SenderID = u.ID
			}
			s.warnMerge(op, s.mutate(ctx, func(convs map[string]domain.Conversation) error {
				c := conversation(convs, peerID)
				appendMessage(&c, m)
				convs[peerID] = c
				return nil
			}))
			return m, nil
		},
		func(ctx context.Context) (*domain.Message, error) {
			m := &domain.Message{
				ID:          s.localID(),
				SenderID:    u.ID,
				RecipientID: peerID,
				Text:        text,
				Origin:      domain.OriginLocal,
				SentAt:      s.now(),
			}
			err := s.mutate(ctx, func(convs map[string]domain.Conversation) error {
				c := conversation(convs, peerID)
				appendMessage(&c, m)
				c.Unread++
				convs[peerID] = c
				return nil
			})
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	)
}

// Conversations lists conversations, most recent first.
func (s *ChatService) Conversations(ctx context.Context) (domain.Result[[]domain.ConversationSummary], error) {
	const op = "chat.conversations"
	if _, err := s.sessionUser(ctx); err != nil {
		return domain.Result[[]domain.ConversationSummary]{}, fmt.Errorf("%s: %w", op, err)
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) ([]domain.ConversationSummary, error) {
			sums, err := s.gw.ListConversations(ctx)
			if err != nil {
				return nil, err
			}
			refs := make([]domain.UserRef, 0, len(sums))
			for _, sum := range sums {
				refs = append(refs, sum.Peer)
			}
			s.observe(ctx, refs...)
			s.warnMerge(op, s.mutate(ctx, func(convs map[string]domain.Conversation) error {
				for _, sum := range sums {
					if sum.Peer.ID == "" {
						continue
					}
					c := conversation(convs, sum.Peer.ID)
					c.Unread = sum.Unread
					if sum.UpdatedAt.After(c.LastMessageAt) {
						c.LastMessageAt = sum.UpdatedAt
					}
					convs[sum.Peer.ID] = c
				}
				return nil
			}))
			sortSummaries(sums)
			return sums, nil
		},
		func(ctx context.Context) ([]domain.ConversationSummary, error) {
			convs, err := s.store.Conversations(ctx)
			if err != nil {
				return nil, err
			}
			sums := make([]domain.ConversationSummary, 0, len(convs))
			for peerID, c := range convs {
				sum := domain.ConversationSummary{
					Peer:      domain.UserRef{ID: peerID, Name: s.resolve(ctx, peerID)},
					Unread:    c.Unread,
					UpdatedAt: c.LastMessageAt,
				}
				if n := len(c.Messages); n > 0 {
					last := c.Messages[n-1]
					sum.LastMessage = &last
				}
				sums = append(sums, sum)
			}
			sortSummaries(sums)
			return sums, nil
		},
	)
}

func sortSummaries(sums []domain.ConversationSummary) {
	slices.SortStableFunc(sums, func(a, b domain.ConversationSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Peer.ID, b.Peer.ID)
	})
}

func (s *ChatService) resolve(ctx context.Context, id string) string {
	if s.dir == nil {
		return domain.UnknownUser
	}
	return s.dir.ResolveName(ctx, id)
}

// Messages opens the conversation with peerID, oldest message first, and
// marks it read. A remote read replaces the cached backend messages and keeps
// messages that were only ever sent from this device.
func (s *ChatService) Messages(ctx context.Context, peerID string) (domain.Result[[]domain.Message], error) {
	const op = "chat.messages"
	if peerID == "" {
		return domain.Result[[]domain.Message]{}, validation.Invalid("peer is required")
	}
	if _, err := s.sessionUser(ctx); err != nil {
		return domain.Result[[]domain.Message]{}, fmt.Errorf("%s: %w", op, err)
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) ([]domain.Message, error) {
			msgs, refs, err := s.gw.MessagesWith(ctx, peerID)
			if err != nil {
				return nil, err
			}
			s.observe(ctx, refs...)
			oldestFirst(msgs, messageAt)
			s.warnMerge(op, s.mutate(ctx, func(convs map[string]domain.Conversation) error {
				c := conversation(convs, peerID)
				next := slices.Clone(msgs)
				for _, m := range c.Messages {
					if m.Origin == domain.OriginLocal {
						next = append(next, m)
					}
				}
				oldestFirst(next, messageAt)
				c.Messages = next
				c.Unread = 0
				if n := len(next); n > 0 {
					c.LastMessageAt = next[n-1].SentAt
				}
				convs[peerID] = c
				return nil
			}))
			return msgs, nil
		},
		func(ctx context.Context) ([]domain.Message, error) {
			var out []domain.Message
			err := s.mutate(ctx, func(convs map[string]domain.Conversation) error {
				c, ok := convs[peerID]
				if !ok {
					out = []domain.Message{}
					return errSkipWrite
				}
				out = slices.Clone(c.Messages)
				c.Unread = 0
				convs[peerID] = c
				return nil
			})
			if err != nil && !errors.Is(err, errSkipWrite) {
				return nil, err
			}
			return out, nil
		},
	)
}

// errSkipWrite aborts a mutate without writing the slot.
var errSkipWrite = errors.New("skip write")
