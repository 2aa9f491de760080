package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// ManagementHandler serves venue profile, menu and manager assignment
// endpoints.
type ManagementHandler struct {
	Venues *service.VenueManagement
	Log    *slog.Logger
}

func NewManagementHandler(m *service.VenueManagement, log *slog.Logger) *ManagementHandler {
	if m == nil {
		panic("nil venue management passed to NewManagementHandler")
	}
	return &ManagementHandler{Venues: m, Log: loggerOrDefault(log)}
}

type menuItemReq struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=2000"`
	Price       *float64 `json:"price" validate:"required"`
}

func (r menuItemReq) item() (model.MenuItem, error) {
	cents, err := model.PriceToCents(*r.Price)
	if err != nil {
		return model.MenuItem{}, err
	}
	return model.MenuItem{ID: r.ID, Name: r.Name, Description: r.Description, PriceCents: cents}, nil
}

// assignManagerReq accepts the venue and user under their current names or
// the *_uuid names used by the admin page.
type assignManagerReq struct {
	VenueID   uint64 `json:"restaurant_id"`
	VenueUUID uint64 `json:"restaurant_uuid"`
	User      string `json:"user"`
	Email     string `json:"email"`
	UserUUID  uint64 `json:"user_uuid"`
}

func (r assignManagerReq) target() (venueID uint64, user string) {
	venueID = r.VenueID
	if venueID == 0 {
		venueID = r.VenueUUID
	}
	switch {
	case r.User != "":
		user = r.User
	case r.Email != "":
		user = r.Email
	case r.UserUUID != 0:
		user = strconv.FormatUint(r.UserUUID, 10)
	}
	return venueID, user
}

type deleteVenueResp struct {
	VenueID                 uint64   `json:"venue_id"`
	CancelledReservationIDs []uint64 `json:"cancelled_reservation_ids"`
}

// UpdateVenue handles PUT /restaurant/:id with full-replace semantics.
func (h *ManagementHandler) UpdateVenue(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var profile model.VenueProfile
	if err := bind(c, &profile); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	v, err := h.Venues.UpdateProfile(ctx, id, profile, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *ManagementHandler) DeleteVenue(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	cancelled, err := h.Venues.DeleteVenue(ctx, id, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, deleteVenueResp{VenueID: id, CancelledReservationIDs: cancelled})
}

// UpsertMenuItem handles POST /restaurant/:id/menu: a body without an id
// creates an item, one with an id updates it.
func (h *ManagementHandler) UpsertMenuItem(c echo.Context) error {
	venueID, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	item, err := h.bindItem(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	created := item.ID == 0
	saved, err := h.Venues.UpsertMenuItem(ctx, venueID, item, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	if created {
		return c.JSON(http.StatusCreated, saved)
	}
	return c.JSON(http.StatusOK, saved)
}

// UpdateMenuItem handles PUT /menu/:id.
func (h *ManagementHandler) UpdateMenuItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	item, err := h.bindItem(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	item.ID = id
	ctx, cancel := withTimeout(c)
	defer cancel()

	saved, err := h.Venues.UpdateMenuItem(ctx, item, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *ManagementHandler) DeleteMenuItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Venues.DeleteMenuItem(ctx, id, principal(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// bindItem reports a missing or negative price as an invalid menu item
// rather than a generic input error.
func (h *ManagementHandler) bindItem(c echo.Context) (model.MenuItem, error) {
	var req menuItemReq
	if err := c.Bind(&req); err != nil {
		return model.MenuItem{}, fmt.Errorf("%w: name must be text and price a number", model.ErrInvalidMenuItem)
	}
	if req.Price == nil {
		return model.MenuItem{}, fmt.Errorf("%w: price is required", model.ErrInvalidMenuItem)
	}
	if err := c.Validate(&req); err != nil {
		return model.MenuItem{}, fmt.Errorf("%w: %v", model.ErrInvalidMenuItem, err)
	}
	return req.item()
}

// AssignManager handles POST /restaurant/manager.
func (h *ManagementHandler) AssignManager(c echo.Context) error {
	var req assignManagerReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	venueID, user := req.target()
	if venueID == 0 {
		return fail(c, h.Log, fmt.Errorf("%w: restaurant_id is required", model.ErrInvalidInput))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Venues.AssignManager(ctx, venueID, user, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ManagedVenues handles GET /manager/restaurants.
func (h *ManagementHandler) ManagedVenues(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	vs, err := h.Venues.ManagedVenues(ctx, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, vs)
}
