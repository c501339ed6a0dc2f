package ports

import (
	"context"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name            string            `json:"name" validate:"notblank"`
	Email           string            `json:"email" validate:"required,email"`
	Phone           string            `json:"phone" validate:"notblank"`
	Password        string            `json:"password" validate:"password"`
	ConfirmPassword string            `json:"confirm_password" validate:"eqfield=Password"`
	Role            domain.Role       `json:"role" validate:"oneof=pwd client"`
	Disability      string            `json:"disability,omitempty"`
	Skills          []string          `json:"skills,omitempty"`
	ClientType      domain.ClientType `json:"client_type,omitempty" validate:"required_if=Role client,omitempty,oneof=gig service"`
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=pwd client"`
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	Username   *string  `json:"username,omitempty" validate:"omitempty,notblank"`
	Phone      *string  `json:"phone,omitempty"`
	Disability *string  `json:"disability,omitempty"`
	Skills     []string `json:"skills,omitempty"`
}

// ListingInput creates a gig or a service.
type ListingInput struct {
	Title        string  `validate:"notblank"`
	Description  string  `validate:"notblank"`
	Price        float64 `validate:"gt=0"`
	Timeframe    string  `validate:"notblank"`
	Requirements string
	Document     *domain.Attachment
}

// ListingPatch is a partial listing update; nil fields are left untouched.
type ListingPatch struct {
	Title        *string               `json:"title,omitempty" validate:"omitempty,notblank"`
	Description  *string               `json:"description,omitempty"`
	Price        *float64              `json:"price,omitempty" validate:"omitempty,gt=0"`
	Timeframe    *string               `json:"timeframe,omitempty"`
	Requirements *string               `json:"requirements,omitempty"`
	Status       *domain.ListingStatus `json:"status,omitempty" validate:"omitempty,oneof=open closed"`
}

type BidInput struct {
	Amount   float64 `validate:"gt=0"`
	Proposal string  `validate:"notblank"`
	Document *domain.Attachment
}

type BookingInput struct {
	Proposal string `validate:"notblank"`
	Document *domain.Attachment
}

// PostInput creates a feed post; at least one of text, media or link is required.
type PostInput struct {
	Text  string
	Link  string `validate:"omitempty,url"`
	Media *domain.Attachment
}

// AuthGateway is the backend's account surface.
type AuthGateway interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*domain.User, error)
	Me(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*domain.User, error)
}

// ListingGateway is the backend's gig and service surface.
type ListingGateway interface {
	ListListings(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) ([]domain.Listing, error)
	CreateListing(ctx context.Context, kind domain.ListingKind, in ListingInput) (*domain.Listing, error)
	UpdateListing(ctx context.Context, kind domain.ListingKind, id string, patch ListingPatch) (*domain.Listing, error)
	PlaceBid(ctx context.Context, gigID string, in BidInput) (*domain.Bid, error)
	BookService(ctx context.Context, serviceID string, in BookingInput) (*domain.Booking, error)
}

// FeedGateway is the backend's Tubonge surface. List calls also return every
// user referenced by the payload so callers can feed the identity directory.
type FeedGateway interface {
	ListPosts(ctx context.Context) ([]domain.Post, []domain.UserRef, error)
	CreatePost(ctx context.Context, in PostInput) (*domain.Post, error)
	ToggleLike(ctx context.Context, postID string) (domain.LikeState, error)
	AddComment(ctx context.Context, postID, text string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
}

// ChatGateway is the backend's direct-messaging surface.
type ChatGateway interface {
	SendMessage(ctx context.Context, recipientID, text string) (*domain.Message, []domain.UserRef, error)
	ListConversations(ctx context.Context) ([]domain.ConversationSummary, error)
	MessagesWith(ctx context.Context, peerID string) ([]domain.Message, []domain.UserRef, error)
}

// Gateway is the full Remote Gateway.
type Gateway interface {
	AuthGateway
	ListingGateway
	FeedGateway
	ChatGateway
	Ping(ctx context.Context) error
}
