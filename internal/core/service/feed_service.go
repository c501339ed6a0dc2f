package service

import (
	"context"
	"encoding/base64"
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

// FeedService is the accessor for Tubonge posts, likes and comments.
type FeedService struct {
	base
	gw ports.FeedGateway

	mu sync.Mutex
}

var _ ports.FeedService = (*FeedService)(nil)

func NewFeedService(gw ports.FeedGateway, deps Deps) *FeedService {
	return &FeedService{base: newBase(deps, "feed"), gw: gw}
}

func postAt(p domain.Post) time.Time       { return p.CreatedAt }
func commentAt(c domain.Comment) time.Time { return c.CreatedAt }
func postID(p domain.Post) string          { return p.ID }

// mutate runs fn over the cached posts and writes the result back.
func (s *FeedService) mutate(ctx context.Context, fn func([]domain.Post) ([]domain.Post, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.store.Posts(ctx)
	if err != nil {
		return err
	}
	next, err := fn(posts)
	if err != nil {
		return err
	}
	return s.store.SetPosts(ctx, next)
}

// Feed returns the posts newest first. A remote read replaces every cached
// backend post and keeps posts that exist only on this device.
func (s *FeedService) Feed(ctx context.Context) (domain.Result[[]domain.Post], error) {
	const op = "feed.list"
	if _, err := s.sessionUser(ctx); err != nil {
		return domain.Result[[]domain.Post]{}, fmt.Errorf("%s: %w", op, err)
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) ([]domain.Post, error) {
			posts, refs, err := s.gw.ListPosts(ctx)
			if err != nil {
				return nil, err
			}
			s.observe(ctx, refs...)
			newestFirst(posts, postAt)
			s.warnMerge(op, s.replaceRemote(ctx, posts))
			return posts, nil
		},
		func(ctx context.Context) ([]domain.Post, error) {
			posts, err := s.store.Posts(ctx)
			if err != nil {
				return nil, err
			}
			newestFirst(posts, postAt)
			return posts, nil
		},
	)
}

func (s *FeedService) replaceRemote(ctx context.Context, posts []domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.store.Posts(ctx)
	if err != nil && !errors.Is(err, domain.ErrCorruptCache) {
		return err
	}
	next := slices.Clone(posts)
	for _, p := range cached {
		if p.Origin == domain.OriginLocal {
			next = append(next, p)
		}
	}
	newestFirst(next, postAt)
	return s.store.SetPosts(ctx, next)
}

// CreatePost publishes a post. Offline the media is kept inline as a data
// URL so the post renders without the backend.
func (s *FeedService) CreatePost(ctx context.Context, in ports.PostInput) (domain.Result[*domain.Post], error) {
	const op = "feed.post"
	in.Text = strings.TrimSpace(in.Text)
	in.Link = strings.TrimSpace(in.Link)
	if in.Text == "" && in.Link == "" && in.Media == nil {
		return domain.Result[*domain.Post]{}, validation.Invalid("post needs text, media or a link")
	}
	if err := validation.Check(in); err != nil {
		return domain.Result[*domain.Post]{}, err
	}
	if in.Media != nil && domain.MediaTypeOf(in.Media.ContentType) == domain.MediaVideo && len(in.Media.Data) > domain.MaxVideoBytes {
		return domain.Result[*domain.Post]{}, validation.Invalid("video must be 10MB or smaller")
	}
	u, err := s.sessionUser(ctx)
	if err != nil {
		return domain.Result[*domain.Post]{}, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, u.ID+":"+in.Text+":"+in.Link)
	if err != nil {
		return domain.Result[*domain.Post]{}, err
	}
	defer release()

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Post, error) {
			p, err := s.gw.CreatePost(ctx, in)
			if err != nil {
				return nil, err
			}
			if p.AuthorID == "" {
				p.AuthorID, p.AuthorName = u.ID, u.DisplayName()
			}
			s.warnMerge(op, s.prepend(ctx, *p))
			return p, nil
		},
		func(ctx context.Context) (*domain.Post, error) {
			p := &domain.Post{
				ID:         s.localID(),
				AuthorID:   u.ID,
				AuthorName: u.DisplayName(),
				Text:       in.Text,
				Link:       in.Link,
				Likes:      []string{},
				Comments:   []domain.Comment{},
				Origin:     domain.OriginLocal,
				CreatedAt:  s.now(),
			}
			if in.Media != nil {
				p.MediaType = domain.MediaTypeOf(in.Media.ContentType)
				p.MediaURL = dataURL(in.Media)
			}
			if err := s.prepend(ctx, *p); err != nil {
				return nil, err
			}
			return p, nil
		},
	)
}

func dataURL(a *domain.Attachment) string {
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

func (s *FeedService) prepend(ctx context.Context, p domain.Post) error {
	return s.mutate(ctx, func(posts []domain.Post) ([]domain.Post, error) {
		if i := byKey(posts, postID, p.ID); i >= 0 {
			posts = slices.Delete(posts, i, i+1)
		}
		return append([]domain.Post{p}, posts...), nil
	})
}

// ToggleLike adds or removes the session user's like. Posts that exist only
// on this device are toggled locally.
func (s *FeedService) ToggleLike(ctx context.Context, id string) (domain.Result[domain.LikeState], error) {
	const op = "feed.like"
	u, err := s.sessionUser(ctx)
	if err != nil {
		return domain.Result[domain.LikeState]{}, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, u.ID+":"+id)
	if err != nil {
		return domain.Result[domain.LikeState]{}, err
	}
	defer release()

	toggleLocal := func(ctx context.Context) (domain.LikeState, error) {
		var state domain.LikeState
		err := s.mutate(ctx, func(posts []domain.Post) ([]domain.Post, error) {
			i := byKey(posts, postID, id)
			if i < 0 {
				return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
			}
			state.Liked = posts[i].ToggleLike(u.ID)
			state.Count = posts[i].LikeCount()
			return posts, nil
		})
		return state, err
	}

	if s.isLocal(ctx, id) {
		state, err := toggleLocal(ctx)
		if err != nil {
			return domain.Result[domain.LikeState]{}, fmt.Errorf("%s: %w", op, err)
		}
		return localOnly(op, state), nil
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (domain.LikeState, error) {
			state, err := s.gw.ToggleLike(ctx, id)
			if err != nil {
				return domain.LikeState{}, err
			}
			s.warnMerge(op, s.mutate(ctx, func(posts []domain.Post) ([]domain.Post, error) {
				if i := byKey(posts, postID, id); i >= 0 && posts[i].LikedBy(u.ID) != state.Liked {
					posts[i].ToggleLike(u.ID)
				}
				return posts, nil
			}))
			return state, nil
		},
		toggleLocal,
	)
}

func (s *FeedService) isLocal(ctx context.Context, id string) bool {
	if strings.HasPrefix(id, "local-") {
		return true
	}
	posts, err := s.store.Posts(ctx)
	if err != nil {
		return false
	}
	i := byKey(posts, postID, id)
	return i >= 0 && posts[i].Origin == domain.OriginLocal
}

// AddComment appends a comment. After a remote comment the post's comment
// list is refreshed, since feed payloads carry a truncated list.
func (s *FeedService) AddComment(ctx context.Context, id, text string) (domain.Result[*domain.Comment], error) {
	const op = "feed.comment"
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Result[*domain.Comment]{}, validation.Invalid("comment text is required")
	}
	u, err := s.sessionUser(ctx)
	if err != nil {
		return domain.Result[*domain.Comment]{}, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, u.ID+":"+id+":"+text)
	if err != nil {
		return domain.Result[*domain.Comment]{}, err
	}
	defer release()

	appendLocal := func(ctx context.Context) (*domain.Comment, error) {
		c := &domain.Comment{
			ID:         s.localID(),
			PostID:     id,
			AuthorID:   u.ID,
			AuthorName: u.DisplayName(),
			Text:       text,
			CreatedAt:  s.now(),
		}
		err := s.mutate(ctx, func(posts []domain.Post) ([]domain.Post, error) {
			i := byKey(posts, postID, id)
			if i < 0 {
				return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
			}
			posts[i].Comments = append(posts[i].Comments, *c)
			posts[i].CommentCount++
			return posts, nil
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	if s.isLocal(ctx, id) {
		c, err := appendLocal(ctx)
		if err != nil {
			return domain.Result[*domain.Comment]{}, fmt.Errorf("%s: %w", op, err)
		}
		return localOnly(op, c), nil
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Comment, error) {
			c, err := s.gw.AddComment(ctx, id, text)
			if err != nil {
				return nil, err
			}
			if c.AuthorID == "" {
				c.AuthorID, c.AuthorName = u.ID, u.DisplayName()
			}
			comments, err := s.gw.ListComments(ctx, id)
			if err != nil {
				s.log.Info().Err(err).Str("post", id).Msg("comment refresh failed")
				comments = nil
			}
			s.warnMerge(op, s.mergeComments(ctx, id, *c, comments))
			return c, nil
		},
		appendLocal,
	)
}

// mergeComments stores comments for the post, or appends c when no fresh
// list is available.
func (s *FeedService) mergeComments(ctx context.Context, id string, c domain.Comment, comments []domain.Comment) error {
	s.observe(ctx, commentAuthors(append(comments, c))...)
	return s.mutate(ctx, func(posts []domain.Post) ([]domain.Post, error) {
		i := byKey(posts, postID, id)
		if i < 0 {
			return posts, nil
		}
		if comments == nil {
			posts[i].Comments = append(posts[i].Comments, c)
			posts[i].CommentCount++
			return posts, nil
		}
		oldestFirst(comments, commentAt)
		posts[i].Comments = comments
		posts[i].CommentCount = len(comments)
		return posts, nil
	})
}

func commentAuthors(comments []domain.Comment) []domain.UserRef {
	refs := make([]domain.UserRef, 0, len(comments))
	for _, c := range comments {
		refs = append(refs, domain.UserRef{ID: c.AuthorID, Name: c.AuthorName})
	}
	return refs
}

// Comments returns the post's comments oldest first.
func (s *FeedService) Comments(ctx context.Context, id string) (domain.Result[[]domain.Comment], error) {
	const op = "feed.comments"
	if _, err := s.sessionUser(ctx); err != nil {
		return domain.Result[[]domain.Comment]{}, fmt.Errorf("%s: %w", op, err)
	}

	cached := func(ctx context.Context) ([]domain.Comment, error) {
		posts, err := s.store.Posts(ctx)
		if err != nil {
			return nil, err
		}
		i := byKey(posts, postID, id)
		if i < 0 {
			return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
		}
		out := slices.Clone(posts[i].Comments)
		oldestFirst(out, commentAt)
		return out, nil
	}

	if s.isLocal(ctx, id) {
		out, err := cached(ctx)
		if err != nil {
			return domain.Result[[]domain.Comment]{}, fmt.Errorf("%s: %w", op, err)
		}
		return localOnly(op, out), nil
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) ([]domain.Comment, error) {
			comments, err := s.gw.ListComments(ctx, id)
			if err != nil {
				return nil, err
			}
			oldestFirst(comments, commentAt)
			s.observe(ctx, commentAuthors(comments)...)
			s.warnMerge(op, s.mutate(ctx, func(posts []domain.Post) ([]domain.Post, error) {
				if i := byKey(posts, postID, id); i >= 0 {
					posts[i].Comments = slices.Clone(comments)
					posts[i].CommentCount = len(comments)
				}
				return posts, nil
			}))
			return comments, nil
		},
		cached,
	)
}
