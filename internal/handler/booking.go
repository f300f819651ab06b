package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// Bookings is the part of *service.BookingService the HTTP layer uses.
type Bookings interface {
	Create(ctx context.Context, id model.Identity, in service.CreateBookingInput) (*model.Booking, error)
	Edit(ctx context.Context, id model.Identity, bookingID uint64, p service.BookingPatch) (*model.Booking, error)
	Cancel(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	Delete(ctx context.Context, id model.Identity, bookingID uint64) error
	Get(ctx context.Context, id model.Identity, bookingID uint64) (*model.BookingView, error)
	ListMine(ctx context.Context, id model.Identity) ([]model.BookingView, error)
	ListAll(ctx context.Context, id model.Identity, email string) ([]model.BookingView, error)
}

type BookingHandler struct {
	svc Bookings
}

func NewBookingHandler(svc Bookings) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// Range rules (days <= max stay, rooms != 0) live in the service so the
// message is the same for every caller; the tags only reject what can
// never be valid.
type createBookingReq struct {
	AccommodationID uint64 `json:"accommodation_id" validate:"required"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Days            int    `json:"days" validate:"required"`
	Adults          int    `json:"adults" validate:"required"`
	Kids            int    `json:"kids"`
	Rooms           int    `json:"rooms"`
}

type editBookingReq struct {
	StartDate       *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Days            *int    `json:"days"`
	Adults          *int    `json:"adults"`
	Kids            *int    `json:"kids"`
	Rooms           *int    `json:"rooms"`
	Status          *string `json:"status" validate:"omitempty,oneof=confirmed pending canceled"`
	AccommodationID *uint64 `json:"accommodation_id"`
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	b, err := h.svc.Create(c.Request().Context(), caller, service.CreateBookingInput{
		AccommodationID: req.AccommodationID,
		StartDate:       req.StartDate,
		Days:            req.Days,
		Adults:          req.Adults,
		Kids:            req.Kids,
		Rooms:           req.Rooms,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// MyBookings handles GET /v1/my-bookings
func (h *BookingHandler) MyBookings(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListMine(c.Request().Context(), caller)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	v, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Edit handles PATCH /v1/bookings/:id and PATCH /v1/admin/bookings/:id.
// Whether status and accommodation may change is decided by the caller's
// identity, not the route.
func (h *BookingHandler) Edit(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var req editBookingReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	b, err := h.svc.Edit(c.Request().Context(), caller, id, service.BookingPatch{
		StartDate:       req.StartDate,
		Days:            req.Days,
		Adults:          req.Adults,
		Kids:            req.Kids,
		Rooms:           req.Rooms,
		Status:          req.Status,
		AccommodationID: req.AccommodationID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id
func (h *BookingHandler) Cancel(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	b, err := h.svc.Cancel(c.Request().Context(), caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// AdminList handles GET /v1/admin/bookings?email=
func (h *BookingHandler) AdminList(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListAll(c.Request().Context(), caller, c.QueryParam("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// AdminDelete handles DELETE /v1/admin/bookings/:id
func (h *BookingHandler) AdminDelete(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
