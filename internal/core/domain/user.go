package domain

import (
	"strings"
	"time"
)

// Role is immutable once a user is created.
type Role string

const (
	RolePWD    Role = "pwd"
	RoleClient Role = "client"
)

// ClientType selects which kind of listing a client publishes.
type ClientType string

const (
	ClientTypeGig     ClientType = "gig"
	ClientTypeService ClientType = "service"
)

// Origin records which store is authoritative for a record.
type Origin string

const (
	OriginAPI   Origin = "api"
	OriginLocal Origin = "local"
)

// UnknownUser is returned by name resolution when an id was never observed.
const UnknownUser = "Unknown User"

// User is a platform participant. Offline-only users are keyed by email.
type User struct {
	ID         string     `json:"id" validate:"required"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       Role       `json:"role" validate:"oneof=pwd client"`
	Phone      string     `json:"phone,omitempty"`
	Disability string     `json:"disability,omitempty"`
	Skills     []string   `json:"skills,omitempty"`
	ClientType ClientType `json:"client_type,omitempty" validate:"omitempty,oneof=gig service"`
	Avatar     string     `json:"avatar,omitempty"`
	Origin     Origin     `json:"origin" validate:"oneof=api local"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DisplayName prefers the username and falls back to the email.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Ref returns the directory view of the user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.DisplayName(), Role: u.Role}
}

// UserRef is a user reference observed in a backend payload.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
}

// DirectoryEntry is the persisted identity directory record.
type DirectoryEntry struct {
	Name string `json:"name" validate:"required"`
	Role Role   `json:"role" validate:"omitempty,oneof=pwd client"`
}

// NormalizeUsername derives the account username from a display name.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
