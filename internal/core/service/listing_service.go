package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/validation"
)

// ListingService is the accessor for gigs, services, bids and bookings.
type ListingService struct {
	base
	gw ports.ListingGateway

	// mu serializes read-modify-write of the listings slot.
	mu sync.Mutex
}

var _ ports.ListingService = (*ListingService)(nil)

func NewListingService(gw ports.ListingGateway, deps Deps) *ListingService {
	return &ListingService{base: newBase(deps, "listings"), gw: gw}
}

func validKind(kind domain.ListingKind) error {
	if kind != domain.KindGig && kind != domain.KindService {
		return validation.Invalid(fmt.Sprintf("unknown listing kind %q", kind))
	}
	return nil
}

func listingAt(l domain.Listing) time.Time { return l.CreatedAt }

// List returns the public listings of kind. An unfiltered remote read
// replaces the cached backend copies of that kind.
func (s *ListingService) List(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) (domain.Result[[]domain.Listing], error) {
	const op = "listing.list"
	if err := validKind(kind); err != nil {
		return domain.Result[[]domain.Listing]{}, err
	}
	if status != "" && status != domain.StatusOpen && status != domain.StatusClosed {
		return domain.Result[[]domain.Listing]{}, validation.Invalid(fmt.Sprintf("unknown status %q", status))
	}
	if _, err := s.sessionUser(ctx); err != nil {
		return domain.Result[[]domain.Listing]{}, fmt.Errorf("%s: %w", op, err)
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) ([]domain.Listing, error) {
			items, err := s.gw.ListListings(ctx, kind, status)
			if err != nil {
				return nil, err
			}
			s.observeOwners(ctx, items)
			if status == "" {
				s.warnMerge(op, s.replaceRemote(ctx, items, kind))
			}
			return items, nil
		},
		func(ctx context.Context) ([]domain.Listing, error) {
			cached, err := s.store.Listings(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]domain.Listing, 0, len(cached))
			for _, l := range cached {
				if l.Kind == kind && (status == "" || l.Status == status) {
					out = append(out, l)
				}
			}
			newestFirst(out, listingAt)
			return out, nil
		},
	)
}

// ListMine returns both kinds owned by the session client, including
// drafts that exist only on this device.
func (s *ListingService) ListMine(ctx context.Context) (domain.Result[[]domain.Listing], error) {
	const op = "listing.mine"
	u, err := s.requireRole(ctx, domain.RoleClient)
	if err != nil {
		return domain.Result[[]domain.Listing]{}, fmt.Errorf("%s: %w", op, err)
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) ([]domain.Listing, error) {
			var gigs, services []domain.Listing
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				gigs, err = s.gw.ListListings(gctx, domain.KindGig, "")
				return err
			})
			g.Go(func() error {
				var err error
				services, err = s.gw.ListListings(gctx, domain.KindService, "")
				return err
			})
			if err := g.Wait(); err != nil {
				return nil, err
			}
			s.warnMerge(op, s.replaceRemote(ctx, gigs, domain.KindGig))
			s.warnMerge(op, s.replaceRemote(ctx, services, domain.KindService))

			out := ownedBy(append(gigs, services...), u.ID)
			cached, err := s.store.Listings(ctx)
			if err != nil {
				s.log.Warn().Err(err).Msg("drafts unavailable")
			}
			for _, l := range cached {
				if l.Origin == domain.OriginLocal && l.OwnerID == u.ID {
					out = append(out, l)
				}
			}
			newestFirst(out, listingAt)
			return out, nil
		},
		func(ctx context.Context) ([]domain.Listing, error) {
			cached, err := s.store.Listings(ctx)
			if err != nil {
				return nil, err
			}
			out := ownedBy(cached, u.ID)
			newestFirst(out, listingAt)
			return out, nil
		},
	)
}

func ownedBy(items []domain.Listing, ownerID string) []domain.Listing {
	out := make([]domain.Listing, 0, len(items))
	for _, l := range items {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out
}

func (s *ListingService) observeOwners(ctx context.Context, items []domain.Listing) {
	refs := make([]domain.UserRef, 0, len(items))
	for _, l := range items {
		if l.OwnerID != "" && l.OwnerName != "" {
			refs = append(refs, domain.UserRef{ID: l.OwnerID, Name: l.OwnerName, Role: domain.RoleClient})
		}
	}
	s.observe(ctx, refs...)
}

// replaceRemote swaps every cached backend copy of kind for items. Drafts
// (origin=local) are kept.
func (s *ListingService) replaceRemote(ctx context.Context, items []domain.Listing, kind domain.ListingKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.store.Listings(ctx)
	if err != nil && !errors.Is(err, domain.ErrCorruptCache) {
		return err
	}
	next := make([]domain.Listing, 0, len(cached)+len(items))
	for _, l := range cached {
		if l.Kind == kind && l.Origin == domain.OriginAPI {
			continue
		}
		next = append(next, l)
	}
	next = append(next, items...)
	return s.store.SetListings(ctx, next)
}

// upsert writes l over the cached record with the same kind and id.
func (s *ListingService) upsert(ctx context.Context, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.store.Listings(ctx)
	if err != nil {
		return err
	}
	if i := s.indexOf(cached, l.Kind, l.ID); i >= 0 {
		cached[i] = l
	} else {
		cached = append(cached, l)
	}
	return s.store.SetListings(ctx, cached)
}

func (s *ListingService) indexOf(items []domain.Listing, kind domain.ListingKind, id string) int {
	for i := range items {
		if items[i].Kind == kind && items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *ListingService) find(ctx context.Context, kind domain.ListingKind, id string) (domain.Listing, bool) {
	cached, err := s.store.Listings(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("listings cache unavailable")
		return domain.Listing{}, false
	}
	if i := s.indexOf(cached, kind, id); i >= 0 {
		return cached[i], true
	}
	return domain.Listing{}, false
}

// Create publishes a listing. Offline it becomes a draft: origin=local,
// status open, no views and no bids.
func (s *ListingService) Create(ctx context.Context, kind domain.ListingKind, in ports.ListingInput) (domain.Result[*domain.Listing], error) {
	const op = "listing.create"
	if err := validKind(kind); err != nil {
		return domain.Result[*domain.Listing]{}, err
	}
	if err := validation.Check(in); err != nil {
		return domain.Result[*domain.Listing]{}, err
	}
	u, err := s.requireRole(ctx, domain.RoleClient)
	if err != nil {
		return domain.Result[*domain.Listing]{}, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, u.ID+":"+string(kind)+":"+strings.ToLower(strings.TrimSpace(in.Title)))
	if err != nil {
		return domain.Result[*domain.Listing]{}, err
	}
	defer release()

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Listing, error) {
			l, err := s.gw.CreateListing(ctx, kind, in)
			if err != nil {
				return nil, err
			}
			if l.OwnerID == "" {
				l.OwnerID, l.OwnerName = u.ID, u.DisplayName()
			}
			s.warnMerge(op, s.upsert(ctx, *l))
			return l, nil
		},
		func(ctx context.Context) (*domain.Listing, error) {
			l := &domain.Listing{
				ID:           s.localID(),
				Kind:         kind,
				OwnerID:      u.ID,
				OwnerName:    u.DisplayName(),
				Title:        strings.TrimSpace(in.Title),
				Description:  in.Description,
				Price:        in.Price,
				Timeframe:    in.Timeframe,
				Requirements: in.Requirements,
				Status:       domain.StatusOpen,
				Origin:       domain.OriginLocal,
				CreatedAt:    s.now(),
			}
			if in.Document != nil {
				l.Document = in.Document.FileName
			}
			if err := s.upsert(ctx, *l); err != nil {
				return nil, err
			}
			return l, nil
		},
	)
}

// Update edits a listing. Drafts are edited in the cache; anything the
// backend has seen is edited remotely or not at all.
func (s *ListingService) Update(ctx context.Context, kind domain.ListingKind, id string, patch ports.ListingPatch) (domain.Result[*domain.Listing], error) {
	const op = "listing.update"
	if err := validKind(kind); err != nil {
		return domain.Result[*domain.Listing]{}, err
	}
	if err := validation.Check(patch); err != nil {
		return domain.Result[*domain.Listing]{}, err
	}
	u, err := s.requireRole(ctx, domain.RoleClient)
	if err != nil {
		return domain.Result[*domain.Listing]{}, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, string(kind)+":"+id)
	if err != nil {
		return domain.Result[*domain.Listing]{}, err
	}
	defer release()

	cached, found := s.find(ctx, kind, id)
	if found && cached.OwnerID != "" && cached.OwnerID != u.ID {
		return domain.Result[*domain.Listing]{}, fmt.Errorf("%s: %w", op, domain.ErrForbidden)
	}

	if found && cached.Origin == domain.OriginLocal {
		applyListingPatch(&cached, patch)
		cached.UpdatedAt = s.now()
		if err := s.upsert(ctx, cached); err != nil {
			return domain.Result[*domain.Listing]{}, fmt.Errorf("%s: %w", op, err)
		}
		return localOnly(op, &cached), nil
	}

	return fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Listing, error) {
			l, err := s.gw.UpdateListing(ctx, kind, id, patch)
			if err != nil {
				return nil, err
			}
			s.warnMerge(op, s.upsert(ctx, *l))
			return l, nil
		},
		nil,
	)
}

func applyListingPatch(l *domain.Listing, p ports.ListingPatch) {
	if p.Title != nil {
		l.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Timeframe != nil {
		l.Timeframe = *p.Timeframe
	}
	if p.Requirements != nil {
		l.Requirements = *p.Requirements
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
}

// PlaceBid submits a bid. There is no offline bidding: a bid that exists
// only on the bidder's device would never reach the gig owner.
func (s *ListingService) PlaceBid(ctx context.Context, gigID string, in ports.BidInput) (*domain.Bid, error) {
	const op = "listing.bid"
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	u, err := s.requireRole(ctx, domain.RolePWD)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireRemoteTarget(ctx, op, domain.KindGig, gigID); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, op, gigID+":"+u.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Bid, error) {
			b, err := s.gw.PlaceBid(ctx, gigID, in)
			if err != nil {
				return nil, err
			}
			if b.BidderID == "" {
				b.BidderID = u.ID
			}
			s.warnMerge(op, s.bumpEngagements(ctx, domain.KindGig, gigID))
			return b, nil
		},
		nil,
	)
	return res.Value, err
}

// BookService requests a service. Like bids, bookings need the backend.
func (s *ListingService) BookService(ctx context.Context, serviceID string, in ports.BookingInput) (*domain.Booking, error) {
	const op = "listing.book"
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	u, err := s.requireRole(ctx, domain.RolePWD)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireRemoteTarget(ctx, op, domain.KindService, serviceID); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, op, serviceID+":"+u.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := fallback(ctx, s.log, op,
		func(ctx context.Context) (*domain.Booking, error) {
			b, err := s.gw.BookService(ctx, serviceID, in)
			if err != nil {
				return nil, err
			}
			if b.BookerID == "" {
				b.BookerID = u.ID
			}
			s.warnMerge(op, s.bumpEngagements(ctx, domain.KindService, serviceID))
			return b, nil
		},
		nil,
	)
	return res.Value, err
}

// requireRemoteTarget rejects bids and bookings on drafts the backend has never seen.
func (s *ListingService) requireRemoteTarget(ctx context.Context, op string, kind domain.ListingKind, id string) error {
	if l, found := s.find(ctx, kind, id); found && l.Origin == domain.OriginLocal {
		return fmt.Errorf("%s: %w: %s %s is not published yet", op, domain.ErrUnavailable, kind, id)
	}
	return nil
}

func (s *ListingService) bumpEngagements(ctx context.Context, kind domain.ListingKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.store.Listings(ctx)
	if err != nil {
		return err
	}
	i := s.indexOf(cached, kind, id)
	if i < 0 {
		return nil
	}
	cached[i].Engagements++
	return s.store.SetListings(ctx, cached)
}

// SyncDrafts publishes the session client's drafts. A draft that the
// backend accepts is replaced by its backend copy. A connectivity failure
// stops the pass; rejected drafts stay local.
func (s *ListingService) SyncDrafts(ctx context.Context) (ports.SyncReport, error) {
	const op = "listing.sync"
	report := ports.SyncReport{Synced: []string{}, Failed: []string{}}

	u, err := s.requireRole(ctx, domain.RoleClient)
	if err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}
	release, err := s.acquire(ctx, op, u.ID)
	if err != nil {
		return report, err
	}
	defer release()

	cached, err := s.store.Listings(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}
	var drafts []domain.Listing
	for _, l := range cached {
		if l.Origin == domain.OriginLocal && l.OwnerID == u.ID {
			drafts = append(drafts, l)
		}
	}
	oldestFirst(drafts, listingAt)

	for i, d := range drafts {
		created, err := s.gw.CreateListing(ctx, d.Kind, ports.ListingInput{
			Title:        d.Title,
			Description:  d.Description,
			Price:        d.Price,
			Timeframe:    d.Timeframe,
			Requirements: d.Requirements,
		})
		if domain.IsConnectivity(err) {
			report.Pending = len(drafts) - i
			return report, fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
		}
		if err != nil {
			s.log.Info().Err(err).Str("draft", d.ID).Msg("backend rejected draft")
			report.Failed = append(report.Failed, d.ID)
			continue
		}
		if created.OwnerID == "" {
			created.OwnerID, created.OwnerName = u.ID, u.DisplayName()
		}
		if err := s.promote(ctx, d, *created); err != nil {
			s.log.Warn().Err(err).Str("draft", d.ID).Msg("draft published but cache not updated")
		}
		report.Synced = append(report.Synced, created.ID)
	}
	return report, nil
}

// promote replaces draft with its backend copy.
func (s *ListingService) promote(ctx context.Context, draft, created domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.store.Listings(ctx)
	if err != nil {
		return err
	}
	if i := s.indexOf(cached, draft.Kind, draft.ID); i >= 0 {
		cached = append(cached[:i], cached[i+1:]...)
	}
	cached = append(cached, created)
	return s.store.SetListings(ctx, cached)
}
