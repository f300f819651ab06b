package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// Accommodations is the part of *service.AccommodationService the HTTP
// layer uses.
type Accommodations interface {
	Create(ctx context.Context, id model.Identity, in service.AccommodationInput) (*model.Accommodation, error)
	Update(ctx context.Context, id model.Identity, accID uint64, p service.AccommodationPatch) (*model.Accommodation, error)
	Delete(ctx context.Context, id model.Identity, accID uint64) error
	List(ctx context.Context, f model.AccommodationFilter) ([]model.Accommodation, error)
	Get(ctx context.Context, accID uint64) (*model.Accommodation, error)
	Reconcile(ctx context.Context, id model.Identity, accID uint64) (*service.ReconcileReport, error)
}

type AccommodationHandler struct {
	svc Accommodations
}

func NewAccommodationHandler(svc Accommodations) *AccommodationHandler {
	return &AccommodationHandler{svc: svc}
}

type createAccommodationReq struct {
	Name         string         `json:"name" validate:"required,max=200"`
	Location     string         `json:"location" validate:"required,max=200"`
	Category     string         `json:"category" validate:"required,max=100"`
	ImageURL     string         `json:"image_url" validate:"required,url"`
	Availability map[string]int `json:"availability"`
}

type updateAccommodationReq struct {
	Name         *string        `json:"name" validate:"omitempty,max=200"`
	Location     *string        `json:"location" validate:"omitempty,max=200"`
	Category     *string        `json:"category" validate:"omitempty,max=100"`
	ImageURL     *string        `json:"image_url" validate:"omitempty,url"`
	Availability map[string]int `json:"availability"`
}

// List handles GET /v1/accommodations?category=&location=
func (h *AccommodationHandler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context(), model.AccommodationFilter{
		Category: c.QueryParam("category"),
		Location: c.QueryParam("location"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/accommodations/:id
func (h *AccommodationHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Create handles POST /v1/admin/accommodations
func (h *AccommodationHandler) Create(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var req createAccommodationReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	a, err := h.svc.Create(c.Request().Context(), caller, service.AccommodationInput{
		Name:         req.Name,
		Location:     req.Location,
		Category:     req.Category,
		ImageURL:     req.ImageURL,
		Availability: req.Availability,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Update handles PATCH /v1/admin/accommodations/:id
func (h *AccommodationHandler) Update(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var req updateAccommodationReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	a, err := h.svc.Update(c.Request().Context(), caller, id, service.AccommodationPatch{
		Name:         req.Name,
		Location:     req.Location,
		Category:     req.Category,
		ImageURL:     req.ImageURL,
		Availability: req.Availability,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /v1/admin/accommodations/:id
func (h *AccommodationHandler) Delete(c echo.Context) error {
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

// Reconcile handles POST /v1/admin/accommodations/:id/reconcile
func (h *AccommodationHandler) Reconcile(c echo.Context) error {
	caller, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	report, err := h.svc.Reconcile(c.Request().Context(), caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
