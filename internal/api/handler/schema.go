package handler

import (
	"time"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type sessionResponse struct {
	Token     string        `json:"token,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	User      *domain.User  `json:"user"`
	Source    domain.Origin `json:"source"`
}

// listingForm is the multipart form for gigs and services. Services send
// their timeframe as duration.
type listingForm struct {
	Title        string  `form:"title"`
	Description  string  `form:"description"`
	Price        float64 `form:"price"`
	Timeframe    string  `form:"timeframe"`
	Duration     string  `form:"duration"`
	Requirements string  `form:"requirements"`
}

type bidForm struct {
	Amount   float64 `form:"amount"`
	Proposal string  `form:"proposal"`
}

type bookingForm struct {
	Proposal string `form:"proposal"`
}

type postForm struct {
	Text string `form:"text"`
	Link string `form:"link"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type nameResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
