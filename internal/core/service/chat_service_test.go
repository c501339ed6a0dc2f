package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

func TestSend_OfflineRoundTripKeepsOrder(t *testing.T) {
	deps, store := newTestDeps(t)
	loginAs(t, store, pwdUser)
	svc := NewChatService(&stubGateway{}, deps)
	// A clock that goes backwards must not reorder the conversation.
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(base, -time.Second)
	ctx := context.Background()

	for _, text := range []string{"Habari", "Uko aje?"} {
		res, err := svc.Send(ctx, "u2", text)
		if err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
		if res.Source != domain.OriginLocal {
			t.Fatalf("expected local send, got %s", res.Source)
		}
	}

	msgs, err := svc.Messages(ctx, "u2")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs.Value) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs.Value))
	}
	for i, want := range []string{"Habari", "Uko aje?"} {
		m := msgs.Value[i]
		if m.SenderID != pwdUser.ID || m.Text != want {
			t.Fatalf("message %d = %+v", i, m)
		}
	}
	if msgs.Value[1].SentAt.Before(msgs.Value[0].SentAt) {
		t.Fatal("message timestamps must be non-decreasing")
	}
}

func TestSend_OfflineIncrementsUnreadUntilOpened(t *testing.T) {
	deps, store := newTestDeps(t)
	loginAs(t, store, pwdUser)
	svc := NewChatService(&stubGateway{}, deps)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "u2", "Habari"); err != nil {
		t.Fatalf("send: %v", err)
	}
	convs, _ := store.Conversations(ctx)
	if convs["u2"].Unread != 1 {
		t.Fatalf("expected unread 1, got %d", convs["u2"].Unread)
	}

	if _, err := svc.Messages(ctx, "u2"); err != nil {
		t.Fatalf("messages: %v", err)
	}
	convs, _ = store.Conversations(ctx)
	if convs["u2"].Unread != 0 {
		t.Fatalf("opening the conversation should mark it read, got %d", convs["u2"].Unread)
	}
}

func TestSend_RejectsSelfAndBlank(t *testing.T) {
	deps, store := newTestDeps(t)
	loginAs(t, store, pwdUser)
	svc := NewChatService(&stubGateway{}, deps)
	ctx := context.Background()

	if _, err := svc.Send(ctx, pwdUser.ID, "hi"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self message, got %v", err)
	}
	if _, err := svc.Send(ctx, "u2", "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank message, got %v", err)
	}
}

func TestMessages_RemoteKeepsLocalOnlyMessages(t *testing.T) {
	deps, store := newTestDeps(t)
	loginAs(t, store, pwdUser)
	ctx := context.Background()

	offline := NewChatService(&stubGateway{}, deps)
	offline.now = fixedClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), time.Minute)
	if _, err := offline.Send(ctx, "u2", "sent while offline"); err != nil {
		t.Fatalf("send: %v", err)
	}

	gw := &stubGateway{
		messagesWithFn: func(_ context.Context, peer string) ([]domain.Message, []domain.UserRef, error) {
			return []domain.Message{
				{ID: "m1", SenderID: peer, RecipientID: pwdUser.ID, Text: "Hello from the server", Origin: domain.OriginAPI, SentAt: time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC)},
			}, []domain.UserRef{{ID: peer, Name: "otieno"}}, nil
		},
	}
	online := NewChatService(gw, deps)

	res, err := online.Messages(ctx, "u2")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if res.Source != domain.OriginAPI || len(res.Value) != 1 {
		t.Fatalf("expected server messages only, got %+v", res.Value)
	}

	convs, _ := store.Conversations(ctx)
	c := convs["u2"]
	if len(c.Messages) != 2 || c.Messages[0].ID != "m1" || c.Messages[1].Origin != domain.OriginLocal {
		t.Fatalf("unexpected cached conversation: %+v", c.Messages)
	}
	if c.Unread != 0 {
		t.Fatalf("expected unread 0, got %d", c.Unread)
	}
	if got := deps.Directory.ResolveName(ctx, "u2"); got != "otieno" {
		t.Fatalf("peer should resolve, got %q", got)
	}
}

func TestConversations_OfflineResolvesPeerNames(t *testing.T) {
	deps, store := newTestDeps(t)
	loginAs(t, store, pwdUser)
	deps.Directory.Observe(context.Background(), domain.UserRef{ID: "u2", Name: "otieno"})
	svc := NewChatService(&stubGateway{}, deps)
	svc.now = fixedClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), time.Minute)
	ctx := context.Background()

	for _, peer := range []string{"u2", "u3"} {
		if _, err := svc.Send(ctx, peer, "Habari"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	res, err := svc.Conversations(ctx)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(res.Value) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(res.Value))
	}
	if res.Value[0].Peer.ID != "u3" || res.Value[0].Peer.Name != domain.UnknownUser {
		t.Fatalf("most recent conversation first with unknown peer, got %+v", res.Value[0].Peer)
	}
	if res.Value[1].Peer.Name != "otieno" || res.Value[1].LastMessage == nil {
		t.Fatalf("unexpected summary: %+v", res.Value[1])
	}
}
