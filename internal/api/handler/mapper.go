package handler

import (
	"strings"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// --- Request → Service input ---

func toListingInput(f listingForm, doc *domain.Attachment) ports.ListingInput {
	timeframe := f.Timeframe
	if strings.TrimSpace(timeframe) == "" {
		timeframe = f.Duration
	}
	return ports.ListingInput{
		Title:        f.Title,
		Description:  f.Description,
		Price:        f.Price,
		Timeframe:    timeframe,
		Requirements: f.Requirements,
		Document:     doc,
	}
}

func toBidInput(f bidForm, doc *domain.Attachment) ports.BidInput {
	return ports.BidInput{Amount: f.Amount, Proposal: f.Proposal, Document: doc}
}

func toBookingInput(f bookingForm, doc *domain.Attachment) ports.BookingInput {
	return ports.BookingInput{Proposal: f.Proposal, Document: doc}
}

func toPostInput(f postForm, media *domain.Attachment) ports.PostInput {
	return ports.PostInput{Text: f.Text, Link: f.Link, Media: media}
}

// --- Service output → Response ---

func toSessionResponse(res domain.Result[*domain.User]) sessionResponse {
	return sessionResponse{User: res.Value, Source: res.Source}
}
