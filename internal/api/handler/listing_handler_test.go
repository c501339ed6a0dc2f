package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

type stubListingService struct {
	listFn   func(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) (domain.Result[[]domain.Listing], error)
	mineFn   func(ctx context.Context) (domain.Result[[]domain.Listing], error)
	createFn func(ctx context.Context, kind domain.ListingKind, in ports.ListingInput) (domain.Result[*domain.Listing], error)
	updateFn func(ctx context.Context, kind domain.ListingKind, id string, p ports.ListingPatch) (domain.Result[*domain.Listing], error)
	bidFn    func(ctx context.Context, gigID string, in ports.BidInput) (*domain.Bid, error)
	bookFn   func(ctx context.Context, serviceID string, in ports.BookingInput) (*domain.Booking, error)
	syncFn   func(ctx context.Context) (ports.SyncReport, error)
}

func (s *stubListingService) List(ctx context.Context, kind domain.ListingKind, status domain.ListingStatus) (domain.Result[[]domain.Listing], error) {
	return s.listFn(ctx, kind, status)
}

func (s *stubListingService) ListMine(ctx context.Context) (domain.Result[[]domain.Listing], error) {
	return s.mineFn(ctx)
}

func (s *stubListingService) Create(ctx context.Context, kind domain.ListingKind, in ports.ListingInput) (domain.Result[*domain.Listing], error) {
	return s.createFn(ctx, kind, in)
}

func (s *stubListingService) Update(ctx context.Context, kind domain.ListingKind, id string, p ports.ListingPatch) (domain.Result[*domain.Listing], error) {
	return s.updateFn(ctx, kind, id, p)
}

func (s *stubListingService) PlaceBid(ctx context.Context, gigID string, in ports.BidInput) (*domain.Bid, error) {
	return s.bidFn(ctx, gigID, in)
}

func (s *stubListingService) BookService(ctx context.Context, serviceID string, in ports.BookingInput) (*domain.Booking, error) {
	return s.bookFn(ctx, serviceID, in)
}

func (s *stubListingService) SyncDrafts(ctx context.Context) (ports.SyncReport, error) {
	return s.syncFn(ctx)
}

// multipartContext builds a multipart request with the given fields and an
// optional file under fileField.
func multipartContext(t *testing.T, target string, fields map[string]string, fileField, fileName string, data []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestListingHandler_Create_ServiceDurationAndDocument(t *testing.T) {
	stub := &stubListingService{
		createFn: func(_ context.Context, kind domain.ListingKind, in ports.ListingInput) (domain.Result[*domain.Listing], error) {
			if kind != domain.KindService {
				t.Fatalf("unexpected kind %s", kind)
			}
			if in.Title != "Sign interpretation" || in.Price != 1500 || in.Timeframe != "2 hours" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Document == nil || in.Document.FileName != "cv.pdf" || string(in.Document.Data) != "%PDF" {
				t.Fatalf("document not bound: %+v", in.Document)
			}
			return domain.FromLocal(&domain.Listing{ID: "local-1", Kind: kind, Title: in.Title, Origin: domain.OriginLocal}), nil
		},
	}
	h := NewListingHandler(stub)

	c, rec := multipartContext(t, "/v1/services", map[string]string{
		"title":       "Sign interpretation",
		"description": "KSL interpreter for meetings",
		"price":       "1500",
		"duration":    "2 hours",
	}, "document", "cv.pdf", []byte("%PDF"))

	if err := h.Create(domain.KindService)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestListingHandler_PlaceBid_PassesFormThrough(t *testing.T) {
	stub := &stubListingService{
		bidFn: func(_ context.Context, gigID string, in ports.BidInput) (*domain.Bid, error) {
			if gigID != "41" || in.Amount != 2500 || in.Proposal != "Ready to start" || in.Document != nil {
				t.Fatalf("unexpected bid: %s %+v", gigID, in)
			}
			return &domain.Bid{ID: "b1", GigID: gigID}, nil
		},
	}
	h := NewListingHandler(stub)

	c, rec := multipartContext(t, "/v1/gigs/41/bids", map[string]string{"amount": "2500", "proposal": "Ready to start"}, "", "", nil)
	c.SetParamNames("id")
	c.SetParamValues("41")

	if err := h.PlaceBid(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestListingHandler_Sync_PendingIs503WithReport(t *testing.T) {
	stub := &stubListingService{
		syncFn: func(context.Context) (ports.SyncReport, error) {
			return ports.SyncReport{Synced: []string{"9"}, Failed: []string{}, Pending: 2}, domain.ErrUnavailable
		},
	}
	h := NewListingHandler(stub)

	c, rec := jsonContext(http.MethodPost, "/v1/listings/sync", "")
	if err := h.Sync(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestListingHandler_List_PassesStatusFilter(t *testing.T) {
	stub := &stubListingService{
		listFn: func(_ context.Context, kind domain.ListingKind, status domain.ListingStatus) (domain.Result[[]domain.Listing], error) {
			if kind != domain.KindGig || status != domain.StatusClosed {
				t.Fatalf("unexpected filter: %s %s", kind, status)
			}
			return domain.Result[[]domain.Listing]{}, domain.ErrInvalidInput
		},
	}
	h := NewListingHandler(stub)

	c, _ := jsonContext(http.MethodGet, "/v1/gigs?status=closed", "")
	if err := h.List(domain.KindGig)(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected service error to propagate, got %v", err)
	}
}
