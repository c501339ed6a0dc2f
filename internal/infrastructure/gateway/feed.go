package gateway

import (
	"context"
	"net/http"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, []domain.UserRef, error) {
	var page list[apiPost]
	if err := c.do(ctx, request{op: "posts.list", method: http.MethodGet, path: "/tubonge-posts/"}, &page); err != nil {
		return nil, nil, err
	}
	posts := make([]domain.Post, 0, len(page))
	var users []domain.UserRef
	for i := range page {
		posts = append(posts, page[i].toDomain())
		users = append(users, page[i].users()...)
	}
	return posts, users, nil
}

func (c *Client) CreatePost(ctx context.Context, in ports.PostInput) (*domain.Post, error) {
	r := request{
		op:     "posts.create",
		method: http.MethodPost,
		path:   "/tubonge-posts/",
		form:   map[string]string{"text": in.Text},
	}
	if in.Link != "" {
		r.form["link"] = in.Link
	}
	if in.Media != nil {
		r.form["media_type"] = string(domain.MediaTypeOf(in.Media.ContentType))
		r.files = []filePart{{field: "media_file", file: in.Media}}
	}

	var a apiPost
	if err := c.do(ctx, r, &a); err != nil {
		return nil, err
	}
	p := a.toDomain()
	return &p, nil
}

func (c *Client) ToggleLike(ctx context.Context, postID string) (domain.LikeState, error) {
	var st domain.LikeState
	err := c.do(ctx, request{
		op:     "posts.like",
		method: http.MethodPost,
		path:   idPath("/tubonge-posts/", postID, "like/"),
	}, &st)
	return st, err
}

func (c *Client) AddComment(ctx context.Context, postID, text string) (*domain.Comment, error) {
	var a apiComment
	err := c.do(ctx, request{
		op:     "posts.comment",
		method: http.MethodPost,
		path:   idPath("/tubonge-posts/", postID, "comment/"),
		json:   map[string]string{"text": text},
	}, &a)
	if err != nil {
		return nil, err
	}
	cm := a.toDomain(postID)
	return &cm, nil
}

func (c *Client) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	var page list[apiComment]
	err := c.do(ctx, request{
		op:     "posts.comments",
		method: http.MethodGet,
		path:   idPath("/tubonge-posts/", postID, "comments/"),
	}, &page)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0, len(page))
	for i := range page {
		out = append(out, page[i].toDomain(postID))
	}
	return out, nil
}
