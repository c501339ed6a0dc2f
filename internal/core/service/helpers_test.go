package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/infrastructure/cache"
)

// ---------------------------------------------------------------------------
// Stub gateway: every method is backed by an optional fn field. A nil field
// behaves like an unreachable backend.
// ---------------------------------------------------------------------------

type stubGateway struct {
	calls atomic.Int32

	registerFn      func(context.Context, ports.RegisterInput) (*domain.User, error)
	loginFn         func(context.Context, ports.LoginInput) (*domain.User, error)
	meFn            func(context.Context) (*domain.User, error)
	updateProfileFn func(context.Context, string, ports.ProfilePatch) (*domain.User, error)

	listListingsFn  func(context.Context, domain.ListingKind, domain.ListingStatus) ([]domain.Listing, error)
	createListingFn func(context.Context, domain.ListingKind, ports.ListingInput) (*domain.Listing, error)
	updateListingFn func(context.Context, domain.ListingKind, string, ports.ListingPatch) (*domain.Listing, error)
	placeBidFn      func(context.Context, string, ports.BidInput) (*domain.Bid, error)
	bookServiceFn   func(context.Context, string, ports.BookingInput) (*domain.Booking, error)

	listPostsFn    func(context.Context) ([]domain.Post, []domain.UserRef, error)
	createPostFn   func(context.Context, ports.PostInput) (*domain.Post, error)
	toggleLikeFn   func(context.Context, string) (domain.LikeState, error)
	addCommentFn   func(context.Context, string, string) (*domain.Comment, error)
	listCommentsFn func(context.Context, string) ([]domain.Comment, error)

	sendMessageFn       func(context.Context, string, string) (*domain.Message, []domain.UserRef, error)
	listConversationsFn func(context.Context) ([]domain.ConversationSummary, error)
	messagesWithFn      func(context.Context, string) ([]domain.Message, []domain.UserRef, error)
}

var _ ports.Gateway = (*stubGateway)(nil)

var errOffline = &domain.ConnectivityError{Op: "stub", Err: errors.New("dial tcp: connection refused")}

func (g *stubGateway) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	g.calls.Add(1)
	if g.registerFn == nil {
		return nil, errOffline
	}
	return g.registerFn(ctx, in)
}

func (g *stubGateway) Login(ctx context.Context, in ports.LoginInput) (*domain.User, error) {
	g.calls.Add(1)
	if g.loginFn == nil {
		return nil, errOffline
	}
	return g.loginFn(ctx, in)
}

func (g *stubGateway) Me(ctx context.Context) (*domain.User, error) {
	g.calls.Add(1)
	if g.meFn == nil {
		return nil, errOffline
	}
	return g.meFn(ctx)
}

func (g *stubGateway) UpdateProfile(ctx context.Context, id string, p ports.ProfilePatch) (*domain.User, error) {
	g.calls.Add(1)
	if g.updateProfileFn == nil {
		return nil, errOffline
	}
	return g.updateProfileFn(ctx, id, p)
}

func (g *stubGateway) ListListings(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) ([]domain.Listing, error) {
	g.calls.Add(1)
	if g.listListingsFn == nil {
		return nil, errOffline
	}
	return g.listListingsFn(ctx, kind, status)
}

func (g *stubGateway) CreateListing(ctx context.Context, kind domain.ListingKind, in ports.ListingInput) (*domain.Listing, error) {
	g.calls.Add(1)
	if g.createListingFn == nil {
		return nil, errOffline
	}
	return g.createListingFn(ctx, kind, in)
}

func (g *stubGateway) UpdateListing(ctx context.Context, kind domain.ListingKind, id string, p ports.ListingPatch) (*domain.Listing, error) {
	g.calls.Add(1)
	if g.updateListingFn == nil {
		return nil, errOffline
	}
	return g.updateListingFn(ctx, kind, id, p)
}

func (g *stubGateway) PlaceBid(ctx context.Context, gigID string, in ports.BidInput) (*domain.Bid, error) {
	g.calls.Add(1)
	if g.placeBidFn == nil {
		return nil, errOffline
	}
	return g.placeBidFn(ctx, gigID, in)
}

func (g *stubGateway) BookService(ctx context.Context, serviceID string, in ports.BookingInput) (*domain.Booking, error) {
	g.calls.Add(1)
	if g.bookServiceFn == nil {
		return nil, errOffline
	}
	return g.bookServiceFn(ctx, serviceID, in)
}

func (g *stubGateway) ListPosts(ctx context.Context) ([]domain.Post, []domain.UserRef, error) {
	g.calls.Add(1)
	if g.listPostsFn == nil {
		return nil, nil, errOffline
	}
	return g.listPostsFn(ctx)
}

func (g *stubGateway) CreatePost(ctx context.Context, in ports.PostInput) (*domain.Post, error) {
	g.calls.Add(1)
	if g.createPostFn == nil {
		return nil, errOffline
	}
	return g.createPostFn(ctx, in)
}

func (g *stubGateway) ToggleLike(ctx context.Context, id string) (domain.LikeState, error) {
	g.calls.Add(1)
	if g.toggleLikeFn == nil {
		return domain.LikeState{}, errOffline
	}
	return g.toggleLikeFn(ctx, id)
}

func (g *stubGateway) AddComment(ctx context.Context, id, text string) (*domain.Comment, error) {
	g.calls.Add(1)
	if g.addCommentFn == nil {
		return nil, errOffline
	}
	return g.addCommentFn(ctx, id, text)
}

func (g *stubGateway) ListComments(ctx context.Context, id string) ([]domain.Comment, error) {
	g.calls.Add(1)
	if g.listCommentsFn == nil {
		return nil, errOffline
	}
	return g.listCommentsFn(ctx, id)
}

func (g *stubGateway) SendMessage(ctx context.Context, to, text string) (*domain.Message, []domain.UserRef, error) {
	g.calls.Add(1)
	if g.sendMessageFn == nil {
		return nil, nil, errOffline
	}
	return g.sendMessageFn(ctx, to, text)
}

func (g *stubGateway) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	g.calls.Add(1)
	if g.listConversationsFn == nil {
		return nil, errOffline
	}
	return g.listConversationsFn(ctx)
}

func (g *stubGateway) MessagesWith(ctx context.Context, peer string) ([]domain.Message, []domain.UserRef, error) {
	g.calls.Add(1)
	if g.messagesWithFn == nil {
		return nil, nil, errOffline
	}
	return g.messagesWithFn(ctx, peer)
}

func (g *stubGateway) Ping(context.Context) error { return nil }

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	pwdUser = &domain.User{
		ID: "u1", Username: "amina", Email: "amina@example.com",
		Role: domain.RolePWD, Origin: domain.OriginAPI,
	}
	clientUser = &domain.User{
		ID: "c1", Username: "kazi_ltd", Email: "jobs@kazi.example",
		Role: domain.RoleClient, ClientType: domain.ClientTypeGig, Origin: domain.OriginAPI,
	}
)

func newTestDeps(t *testing.T) (Deps, *cache.Store) {
	t.Helper()
	store := cache.NewStore(cache.NewMemoryKV(), "test", zerolog.Nop())
	return Deps{
		Store:     store,
		Directory: NewDirectory(store, zerolog.Nop()),
		Log:       zerolog.Nop(),
	}, store
}

// loginAs writes an active session for u straight into the store.
func loginAs(t *testing.T, store *cache.Store, u *domain.User) {
	t.Helper()
	ctx := context.Background()
	clone := *u
	if err := store.SetCurrentUser(ctx, &clone); err != nil {
		t.Fatalf("seed current user: %v", err)
	}
	if err := store.SetSessionActive(ctx, true); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

// fixedClock returns a clock that advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func validRegister(role domain.Role) ports.RegisterInput {
	in := ports.RegisterInput{
		Name:            "Amina Njeri",
		Email:           "Amina@Example.com",
		Phone:           "0712345678",
		Password:        "Secur3!pass",
		ConfirmPassword: "Secur3!pass",
		Role:            role,
	}
	if role == domain.RoleClient {
		in.ClientType = domain.ClientTypeGig
	}
	return in
}
