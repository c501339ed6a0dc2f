package domain

import "time"

// ListingKind distinguishes gigs (bid on) from services (booked).
type ListingKind string

const (
	KindGig     ListingKind = "gig"
	KindService ListingKind = "service"
)

// ListingStatus is open or closed; listings are closed, never deleted.
type ListingStatus string

const (
	StatusOpen   ListingStatus = "open"
	StatusClosed ListingStatus = "closed"
)

// Listing is a gig or a service owned by a client.
// Timeframe holds the gig timeframe or the service duration.
// Engagements counts bids on a gig or bookings on a service.
type Listing struct {
	ID           string        `json:"id" validate:"required"`
	Kind         ListingKind   `json:"kind" validate:"oneof=gig service"`
	OwnerID      string        `json:"owner_id"`
	OwnerName    string        `json:"owner_name,omitempty"`
	Title        string        `json:"title" validate:"required"`
	Description  string        `json:"description"`
	Price        float64       `json:"price" validate:"gte=0"`
	Timeframe    string        `json:"timeframe"`
	Requirements string        `json:"requirements,omitempty"`
	Status       ListingStatus `json:"status" validate:"oneof=open closed"`
	Views        int           `json:"views" validate:"gte=0"`
	Engagements  int           `json:"engagements" validate:"gte=0"`
	Document     string        `json:"document,omitempty"`
	Origin       Origin        `json:"origin" validate:"oneof=api local"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}

// Bid is a PWD user's offer on a gig. Immutable once placed.
type Bid struct {
	ID        string    `json:"id"`
	GigID     string    `json:"gig_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	Proposal  string    `json:"proposal"`
	Document  string    `json:"document,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking is a PWD user's request for a service. Immutable once placed.
type Booking struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"service_id"`
	BookerID  string    `json:"booker_id"`
	Proposal  string    `json:"proposal"`
	Document  string    `json:"document,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is an uploaded file carried by a multipart request.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}
