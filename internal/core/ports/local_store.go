package ports

import (
	"context"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// LocalStore is the typed view over the Local Cache Store. Missing slots read
// as their empty value; writes replace the whole slot.
type LocalStore interface {
	SessionActive(ctx context.Context) (bool, error)
	SetSessionActive(ctx context.Context, active bool) error

	CurrentUser(ctx context.Context) (*domain.User, error)
	SetCurrentUser(ctx context.Context, u *domain.User) error
	ClientProfile(ctx context.Context) (*domain.User, error)
	SetClientProfile(ctx context.Context, u *domain.User) error

	Directory(ctx context.Context) (map[string]domain.DirectoryEntry, error)
	SetDirectory(ctx context.Context, dir map[string]domain.DirectoryEntry) error

	Listings(ctx context.Context) ([]domain.Listing, error)
	SetListings(ctx context.Context, items []domain.Listing) error

	Posts(ctx context.Context) ([]domain.Post, error)
	SetPosts(ctx context.Context, posts []domain.Post) error

	Conversations(ctx context.Context) (map[string]domain.Conversation, error)
	SetConversations(ctx context.Context, convs map[string]domain.Conversation) error

	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}
