package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/metrics"
)

// Deps are the collaborators shared by every accessor service.
type Deps struct {
	Store     ports.LocalStore
	Directory ports.NameResolver
	Guard     InFlightGuard
	Log       zerolog.Logger
}

// base holds the shared collaborators plus the clock and id source.
type base struct {
	store ports.LocalStore
	dir   ports.NameResolver
	guard InFlightGuard
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

func newBase(d Deps, component string) base {
	guard := d.Guard
	if guard == nil {
		guard = NewMemoryInFlight()
	}
	return base{
		store: d.Store,
		dir:   d.Directory,
		guard: guard,
		log:   d.Log.With().Str("component", component).Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// localID marks identifiers that were never issued by the backend.
func (b *base) localID() string { return "local-" + b.newID() }

// sessionUser returns the logged-in user from the cache.
func (b *base) sessionUser(ctx context.Context) (*domain.User, error) {
	active, err := b.store.SessionActive(ctx)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrUnauthenticated
	}
	u, err := b.store.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

func (b *base) requireRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	u, err := b.sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, fmt.Errorf("%w: %s account required", domain.ErrForbidden, role)
	}
	return u, nil
}

// acquire takes the in-flight guard for op+key. A guard backend failure is
// logged and the write proceeds unguarded.
func (b *base) acquire(ctx context.Context, op, key string) (func(), error) {
	release, ok, err := b.guard.Acquire(ctx, op+":"+key)
	if err != nil {
		b.log.Warn().Err(err).Str("op", op).Msg("in-flight guard unavailable, proceeding")
		return func() {}, nil
	}
	if !ok {
		metrics.InFlightRejectionsTotal.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInFlight)
	}
	return release, nil
}

// observe feeds the identity directory when one is configured.
func (b *base) observe(ctx context.Context, refs ...domain.UserRef) {
	if b.dir != nil && len(refs) > 0 {
		b.dir.Observe(ctx, refs...)
	}
}

// fallback is the accessor contract: remote first; on a connectivity failure
// run local and tag the value as local; any other error is returned as is.
// A nil local means the operation has no offline equivalent and a
// connectivity failure surfaces as ErrUnavailable.
func fallback[T any](
	ctx context.Context,
	log zerolog.Logger,
	op string,
	remote func(context.Context) (T, error),
	local func(context.Context) (T, error),
) (domain.Result[T], error) {
	v, err := remote(ctx)
	if err == nil {
		metrics.AccessorResultsTotal.WithLabelValues(op, string(domain.OriginAPI)).Inc()
		return domain.FromAPI(v), nil
	}
	if !domain.IsConnectivity(err) {
		metrics.AccessorResultsTotal.WithLabelValues(op, "error").Inc()
		return domain.Result[T]{}, fmt.Errorf("%s: %w", op, err)
	}
	if local == nil {
		metrics.AccessorResultsTotal.WithLabelValues(op, "error").Inc()
		return domain.Result[T]{}, fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}

	log.Warn().Err(err).Str("op", op).Msg("backend unreachable, using local cache")
	metrics.AccessorFallbacksTotal.WithLabelValues(op).Inc()

	lv, lerr := local(ctx)
	if lerr != nil {
		metrics.AccessorResultsTotal.WithLabelValues(op, "error").Inc()
		return domain.Result[T]{}, fmt.Errorf("%s: local: %w", op, lerr)
	}
	metrics.AccessorResultsTotal.WithLabelValues(op, string(domain.OriginLocal)).Inc()
	return domain.FromLocal(lv), nil
}

// localOnly records an operation that never touched the backend.
func localOnly[T any](op string, v T) domain.Result[T] {
	metrics.AccessorResultsTotal.WithLabelValues(op, string(domain.OriginLocal)).Inc()
	return domain.FromLocal(v)
}

// warnMerge logs a failed cache merge after a successful remote call. The
// remote result stands; only cache warmth is lost.
func (b *base) warnMerge(op string, err error) {
	if err != nil {
		b.log.Warn().Err(err).Str("op", op).Msg("failed to mirror remote result into cache")
	}
}

func newestFirst[T any](items []T, at func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int { return at(b).Compare(at(a)) })
}

func oldestFirst[T any](items []T, at func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int { return at(a).Compare(at(b)) })
}

func byKey[T any, K cmp.Ordered](items []T, key func(T) K, want K) int {
	return slices.IndexFunc(items, func(it T) bool { return key(it) == want })
}
