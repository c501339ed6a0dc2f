package ports

import (
	"context"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// SessionService covers registration, login and the cached session.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (domain.Result[*domain.User], error)
	Login(ctx context.Context, in LoginInput) (domain.Result[*domain.User], error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (domain.Result[*domain.User], error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (domain.Result[*domain.User], error)
}

// ListingService covers gigs, services, bids and bookings.
type ListingService interface {
	List(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) (domain.Result[[]domain.Listing], error)
	ListMine(ctx context.Context) (domain.Result[[]domain.Listing], error)
	Create(ctx context.Context, kind domain.ListingKind, in ListingInput) (domain.Result[*domain.Listing], error)
	Update(ctx context.Context, kind domain.ListingKind, id string, patch ListingPatch) (domain.Result[*domain.Listing], error)
	PlaceBid(ctx context.Context, gigID string, in BidInput) (*domain.Bid, error)
	BookService(ctx context.Context, serviceID string, in BookingInput) (*domain.Booking, error)
	SyncDrafts(ctx context.Context) (SyncReport, error)
}

// SyncReport summarises a draft sync pass.
type SyncReport struct {
	Synced  []string `json:"synced"`
	Failed  []string `json:"failed"`
	Pending int      `json:"pending"`
}

// FeedService covers the Tubonge feed.
type FeedService interface {
	Feed(ctx context.Context) (domain.Result[[]domain.Post], error)
	CreatePost(ctx context.Context, in PostInput) (domain.Result[*domain.Post], error)
	ToggleLike(ctx context.Context, postID string) (domain.Result[domain.LikeState], error)
	AddComment(ctx context.Context, postID, text string) (domain.Result[*domain.Comment], error)
	Comments(ctx context.Context, postID string) (domain.Result[[]domain.Comment], error)
}

// ChatService covers direct messages.
type ChatService interface {
	Send(ctx context.Context, peerID, text string) (domain.Result[*domain.Message], error)
	Conversations(ctx context.Context) (domain.Result[[]domain.ConversationSummary], error)
	Messages(ctx context.Context, peerID string) (domain.Result[[]domain.Message], error)
}

// NameResolver is the identity directory lookup.
type NameResolver interface {
	ResolveName(ctx context.Context, userID string) string
	Observe(ctx context.Context, refs ...domain.UserRef)
}
