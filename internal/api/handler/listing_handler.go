package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// ListingHandler serves gigs and services. Routes are registered once per
// kind with the kind bound in.
type ListingHandler struct {
	svc ports.ListingService
}

func NewListingHandler(svc ports.ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

// List handles GET /v1/gigs and GET /v1/services.
//
// @Summary      List gigs or services
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        kind    path      string  true   "gigs or services"
// @Param        status  query     string  false  "open or closed"
// @Success      200     {object}  domain.Result[[]domain.Listing]
// @Failure      400     {object}  errorResponse
// @Router       /v1/{kind} [get]
func (h *ListingHandler) List(kind domain.ListingKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := h.svc.List(c.Request().Context(), kind, domain.ListingStatus(c.QueryParam("status")))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}

// Create handles POST /v1/gigs and POST /v1/services (multipart).
//
// @Summary      Create a gig or service
// @Tags         listings
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        kind          path      string  true   "gigs or services"
// @Param        title         formData  string  true   "Title"
// @Param        description   formData  string  true   "Description"
// @Param        price         formData  number  true   "Price"
// @Param        timeframe     formData  string  false  "Gig timeframe"
// @Param        duration      formData  string  false  "Service duration"
// @Param        requirements  formData  string  false  "Requirements"
// @Param        document      formData  file    false  "Supporting document"
// @Success      201           {object}  domain.Result[domain.Listing]
// @Failure      400           {object}  errorResponse
// @Failure      403           {object}  errorResponse
// @Router       /v1/{kind} [post]
func (h *ListingHandler) Create(kind domain.ListingKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var form listingForm
		if err := bind(c, &form); err != nil {
			return err
		}
		doc, err := attachment(c, "document")
		if err != nil {
			return err
		}

		res, err := h.svc.Create(c.Request().Context(), kind, toListingInput(form, doc))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, res)
	}
}

// Update handles PATCH /v1/gigs/:id and PATCH /v1/services/:id.
//
// @Summary      Update a gig or service
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string              true  "gigs or services"
// @Param        id    path      string              true  "Listing id"
// @Param        body  body      ports.ListingPatch  true  "Fields to change"
// @Success      200   {object}  domain.Result[domain.Listing]
// @Failure      403   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/{kind}/{id} [patch]
func (h *ListingHandler) Update(kind domain.ListingKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch ports.ListingPatch
		if err := bind(c, &patch); err != nil {
			return err
		}

		res, err := h.svc.Update(c.Request().Context(), kind, c.Param("id"), patch)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}

// Mine handles GET /v1/listings/mine.
//
// @Summary      The client's own gigs and services, drafts included
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Result[[]domain.Listing]
// @Router       /v1/listings/mine [get]
func (h *ListingHandler) Mine(c echo.Context) error {
	res, err := h.svc.ListMine(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Sync handles POST /v1/listings/sync.
//
// @Summary      Publish offline drafts
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.SyncReport
// @Failure      503  {object}  ports.SyncReport
// @Router       /v1/listings/sync [post]
func (h *ListingHandler) Sync(c echo.Context) error {
	report, err := h.svc.SyncDrafts(c.Request().Context())
	if err != nil && report.Pending > 0 {
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// PlaceBid handles POST /v1/gigs/:id/bids (multipart).
//
// @Summary      Bid on a gig
// @Tags         listings
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true   "Gig id"
// @Param        amount    formData  number  true   "Bid amount"
// @Param        proposal  formData  string  true   "Proposal"
// @Param        document  formData  file    false  "Supporting document"
// @Success      201       {object}  domain.Bid
// @Failure      400       {object}  errorResponse
// @Failure      503       {object}  errorResponse
// @Router       /v1/gigs/{id}/bids [post]
func (h *ListingHandler) PlaceBid(c echo.Context) error {
	var form bidForm
	if err := bind(c, &form); err != nil {
		return err
	}
	doc, err := attachment(c, "document")
	if err != nil {
		return err
	}

	bid, err := h.svc.PlaceBid(c.Request().Context(), c.Param("id"), toBidInput(form, doc))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, bid)
}

// Book handles POST /v1/services/:id/bookings (multipart).
//
// @Summary      Book a service
// @Tags         listings
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true   "Service id"
// @Param        proposal  formData  string  true   "Proposal"
// @Param        document  formData  file    false  "Supporting document"
// @Success      201       {object}  domain.Booking
// @Failure      400       {object}  errorResponse
// @Failure      503       {object}  errorResponse
// @Router       /v1/services/{id}/bookings [post]
func (h *ListingHandler) Book(c echo.Context) error {
	var form bookingForm
	if err := bind(c, &form); err != nil {
		return err
	}
	doc, err := attachment(c, "document")
	if err != nil {
		return err
	}

	booking, err := h.svc.BookService(c.Request().Context(), c.Param("id"), toBookingInput(form, doc))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, booking)
}
