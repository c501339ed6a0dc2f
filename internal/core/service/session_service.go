package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/validation"
)

// SessionService owns registration, login and the cached session.
type SessionService struct {
	base
	gw ports.AuthGateway
}

var _ ports.SessionService = (*SessionService)(nil)

func NewSessionService(gw ports.AuthGateway, deps Deps) *SessionService {
	return &SessionService{base: newBase(deps, "session"), gw: gw}
}

// Register creates the account remotely. Only when the backend cannot be
// reached is a local-only profile created, keyed by email.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (domain.Result[*domain.User], error) {
	const op = "session.register"
	if err := validation.Check(in); err != nil {
		return domain.Result[*domain.User]{}, err
	}
	release, err := s.acquire(ctx, op, strings.ToLower(in.Email))
	if err != nil {
		return domain.Result[*domain.User]{}, err
	}
	defer release()

	res, err := fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.User, error) { return s.gw.Register(ctx, in) },
		func(context.Context) (*domain.User, error) { return s.localProfile(in), nil },
	)
	if err != nil {
		return res, err
	}
	if err := s.establish(ctx, res.Value); err != nil {
		return domain.Result[*domain.User]{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *SessionService) localProfile(in ports.RegisterInput) *domain.User {
	u := &domain.User{
		ID:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:  domain.NormalizeUsername(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Role:      in.Role,
		Phone:     in.Phone,
		Origin:    domain.OriginLocal,
		CreatedAt: s.now(),
	}
	if in.Role == domain.RolePWD {
		u.Disability = in.Disability
		u.Skills = slices.Clone(in.Skills)
	} else {
		u.ClientType = in.ClientType
	}
	return u
}

// Login never falls back: without the backend no credential can be verified.
func (s *SessionService) Login(ctx context.Context, in ports.LoginInput) (domain.Result[*domain.User], error) {
	const op = "session.login"
	if err := validation.Check(in); err != nil {
		return domain.Result[*domain.User]{}, err
	}
	release, err := s.acquire(ctx, op, strings.ToLower(in.Email))
	if err != nil {
		return domain.Result[*domain.User]{}, err
	}
	defer release()

	res, err := fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.User, error) { return s.gw.Login(ctx, in) },
		nil,
	)
	if err != nil {
		return res, err
	}
	if err := s.establish(ctx, res.Value); err != nil {
		return domain.Result[*domain.User]{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// establish caches u and marks the session active, in that order.
func (s *SessionService) establish(ctx context.Context, u *domain.User) error {
	if err := s.store.SetCurrentUser(ctx, u); err != nil {
		return err
	}
	client := u
	if u.Role != domain.RoleClient {
		client = nil
	}
	if err := s.store.SetClientProfile(ctx, client); err != nil {
		return err
	}
	if err := s.store.SetSessionActive(ctx, true); err != nil {
		return err
	}
	s.observe(ctx, u.Ref())
	return nil
}

// Logout clears the session flag. The cached profile is kept.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.store.SetSessionActive(ctx, false); err != nil {
		return fmt.Errorf("session.logout: %w", err)
	}
	return nil
}

// Current validates the session. Local-only profiles are served from the
// cache; for backend accounts a 401/403 ends the session.
func (s *SessionService) Current(ctx context.Context) (domain.Result[*domain.User], error) {
	const op = "session.current"
	cached, err := s.sessionUser(ctx)
	if err != nil {
		return domain.Result[*domain.User]{}, fmt.Errorf("%s: %w", op, err)
	}
	if cached.Origin == domain.OriginLocal {
		return localOnly(op, cached), nil
	}

	res, err := fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.User, error) {
			u, err := s.gw.Me(ctx)
			if err != nil {
				return nil, err
			}
			s.warnMerge(op, s.store.SetCurrentUser(ctx, u))
			if u.Role == domain.RoleClient {
				s.warnMerge(op, s.store.SetClientProfile(ctx, u))
			}
			s.observe(ctx, u.Ref())
			return u, nil
		},
		func(context.Context) (*domain.User, error) { return cached, nil },
	)
	if err != nil {
		if ae, ok := domain.AsApplication(err); ok && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden) {
			if cerr := s.store.SetSessionActive(ctx, false); cerr != nil {
				s.log.Warn().Err(cerr).Msg("failed to clear expired session")
			}
			return domain.Result[*domain.User]{}, fmt.Errorf("%s: %w: %w", op, domain.ErrUnauthenticated, err)
		}
		return domain.Result[*domain.User]{}, err
	}
	return res, nil
}

// UpdateProfile edits a backend account remotely only; a local-only profile
// is edited in the cache.
func (s *SessionService) UpdateProfile(ctx context.Context, patch ports.ProfilePatch) (domain.Result[*domain.User], error) {
	const op = "session.profile"
	if err := validation.Check(patch); err != nil {
		return domain.Result[*domain.User]{}, err
	}
	u, err := s.sessionUser(ctx)
	if err != nil {
		return domain.Result[*domain.User]{}, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, u.ID)
	if err != nil {
		return domain.Result[*domain.User]{}, err
	}
	defer release()

	if u.Origin == domain.OriginLocal {
		applyProfilePatch(u, patch)
		if err := s.establish(ctx, u); err != nil {
			return domain.Result[*domain.User]{}, fmt.Errorf("%s: %w", op, err)
		}
		return localOnly(op, u), nil
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.User, error) {
			updated, err := s.gw.UpdateProfile(ctx, u.ID, patch)
			if err != nil {
				return nil, err
			}
			if updated.Role != u.Role {
				return nil, errors.New("backend changed the account role")
			}
			s.warnMerge(op, s.establish(ctx, updated))
			return updated, nil
		},
		nil,
	)
}

func applyProfilePatch(u *domain.User, p ports.ProfilePatch) {
	if p.Username != nil {
		u.Username = strings.TrimSpace(*p.Username)
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Disability != nil && u.Role == domain.RolePWD {
		u.Disability = *p.Disability
	}
	if p.Skills != nil && u.Role == domain.RolePWD {
		u.Skills = slices.Clone(p.Skills)
	}
}
