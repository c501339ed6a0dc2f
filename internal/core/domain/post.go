package domain

import (
	"slices"
	"strings"
	"time"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MaxVideoBytes bounds video attachments on posts.
const MaxVideoBytes = 10 * 1024 * 1024

// Post is a Tubonge feed entry. Likes holds the ids of liking users.
type Post struct {
	ID           string    `json:"id" validate:"required"`
	AuthorID     string    `json:"author_id" validate:"required"`
	AuthorName   string    `json:"author_name,omitempty"`
	Text         string    `json:"text,omitempty"`
	MediaURL     string    `json:"media_url,omitempty"`
	MediaType    MediaType `json:"media_type,omitempty" validate:"omitempty,oneof=image video"`
	Link         string    `json:"link,omitempty"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments" validate:"dive"`
	CommentCount int       `json:"comment_count" validate:"gte=0"`
	Origin       Origin    `json:"origin" validate:"oneof=api local"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Post) LikeCount() int { return len(p.Likes) }

func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// ToggleLike adds or removes userID and reports the new state.
func (p *Post) ToggleLike(userID string) bool {
	if i := slices.Index(p.Likes, userID); i >= 0 {
		p.Likes = slices.Delete(p.Likes, i, i+1)
		return false
	}
	p.Likes = append(p.Likes, userID)
	return true
}

// Comment is append-only.
type Comment struct {
	ID         string    `json:"id" validate:"required"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id" validate:"required"`
	AuthorName string    `json:"author_name,omitempty"`
	Text       string    `json:"text" validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeState is the outcome of a like toggle.
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"like_count"`
}

// MediaTypeOf classifies an upload by its content type.
func MediaTypeOf(contentType string) MediaType {
	if strings.HasPrefix(contentType, "video/") {
		return MediaVideo
	}
	return MediaImage
}
