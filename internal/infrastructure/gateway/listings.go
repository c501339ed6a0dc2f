package gateway

import (
	"context"
	"net/http"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

func listingRoot(kind domain.ListingKind) string {
	if kind == domain.KindService {
		return "/services/"
	}
	return "/gigs/"
}

// timeframeField is "duration" on services and "timeframe" on gigs.
func timeframeField(kind domain.ListingKind) string {
	if kind == domain.KindService {
		return "duration"
	}
	return "timeframe"
}

func (c *Client) ListListings(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) ([]domain.Listing, error) {
	r := request{op: string(kind) + "s.list", method: http.MethodGet, path: listingRoot(kind)}
	if status != "" {
		r.query = map[string]string{"status": string(status)}
	}

	var page list[apiListing]
	if err := c.do(ctx, r, &page); err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, len(page))
	for i := range page {
		out = append(out, page[i].toDomain(kind))
	}
	return out, nil
}

func (c *Client) CreateListing(ctx context.Context, kind domain.ListingKind, in ports.ListingInput) (*domain.Listing, error) {
	r := request{
		op:     string(kind) + "s.create",
		method: http.MethodPost,
		path:   listingRoot(kind),
		form: map[string]string{
			"title":              in.Title,
			"description":        in.Description,
			"price":              formatPrice(in.Price),
			timeframeField(kind): in.Timeframe,
			"requirements":       in.Requirements,
		},
	}
	if in.Document != nil {
		r.files = []filePart{{field: "document", file: in.Document}}
	}

	var a apiListing
	if err := c.do(ctx, r, &a); err != nil {
		return nil, err
	}
	l := a.toDomain(kind)
	return &l, nil
}

func (c *Client) UpdateListing(ctx context.Context, kind domain.ListingKind, id string, patch ports.ListingPatch) (*domain.Listing, error) {
	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Price != nil {
		body["price"] = formatPrice(*patch.Price)
	}
	if patch.Timeframe != nil {
		body[timeframeField(kind)] = *patch.Timeframe
	}
	if patch.Requirements != nil {
		body["requirements"] = *patch.Requirements
	}
	if patch.Status != nil {
		body["status"] = string(*patch.Status)
	}

	var a apiListing
	err := c.do(ctx, request{
		op:     string(kind) + "s.update",
		method: http.MethodPatch,
		path:   idPath(listingRoot(kind), id, ""),
		json:   body,
	}, &a)
	if err != nil {
		return nil, err
	}
	l := a.toDomain(kind)
	return &l, nil
}

func (c *Client) PlaceBid(ctx context.Context, gigID string, in ports.BidInput) (*domain.Bid, error) {
	r := request{
		op:     "gigs.bid",
		method: http.MethodPost,
		path:   idPath("/gigs/", gigID, "bid/"),
		form: map[string]string{
			"amount":   formatPrice(in.Amount),
			"proposal": in.Proposal,
		},
	}
	if in.Document != nil {
		r.files = []filePart{{field: "document", file: in.Document}}
	}

	var a apiBid
	if err := c.do(ctx, r, &a); err != nil {
		return nil, err
	}
	return a.toDomain(gigID), nil
}

func (c *Client) BookService(ctx context.Context, serviceID string, in ports.BookingInput) (*domain.Booking, error) {
	r := request{
		op:     "services.book",
		method: http.MethodPost,
		path:   idPath("/services/", serviceID, "book/"),
		form:   map[string]string{"proposal": in.Proposal},
	}
	if in.Document != nil {
		r.files = []filePart{{field: "document", file: in.Document}}
	}

	var a apiBooking
	if err := c.do(ctx, r, &a); err != nil {
		return nil, err
	}
	return a.toDomain(serviceID), nil
}
