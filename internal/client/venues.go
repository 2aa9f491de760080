package client

import (
	"context"
	"net/http"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// SubmitRequest asks an administrator to create a venue.
func (c *Client) SubmitRequest(ctx context.Context, draft model.VenueDraft) (model.VenueRequest, error) {
	var r model.VenueRequest
	err := c.do(ctx, http.MethodPost, "/restaurant-request", draft, &r)
	return r, err
}

// Requests returns every request for an admin, otherwise the caller's own.
func (c *Client) Requests(ctx context.Context) ([]model.VenueRequest, error) {
	var rs []model.VenueRequest
	err := c.do(ctx, http.MethodGet, "/restaurant-requests", nil, &rs)
	return rs, err
}

func (c *Client) ReviewQueue(ctx context.Context) ([]model.VenueRequest, error) {
	var rs []model.VenueRequest
	err := c.do(ctx, http.MethodGet, "/restaurant-requests/queue", nil, &rs)
	return rs, err
}

// ApproveRequest returns the server's authoritative outcome, including the
// venue the approval created.
func (c *Client) ApproveRequest(ctx context.Context, id uint64) (service.Outcome, error) {
	var out service.Outcome
	err := c.do(ctx, http.MethodPost, idPath("/restaurant-requests/%d/approve", id), nil, &out)
	return out, err
}

func (c *Client) RejectRequest(ctx context.Context, id uint64) (service.Outcome, error) {
	var out service.Outcome
	err := c.do(ctx, http.MethodPost, idPath("/restaurant-requests/%d/reject", id), nil, &out)
	return out, err
}

// CreateVenue is the admin shortcut that submits and approves in one call.
func (c *Client) CreateVenue(ctx context.Context, draft model.VenueDraft) (model.Venue, error) {
	var v model.Venue
	err := c.do(ctx, http.MethodPost, "/restaurant", draft, &v)
	return v, err
}

func (c *Client) UpdateVenue(ctx context.Context, id uint64, profile model.VenueProfile) (model.Venue, error) {
	var v model.Venue
	err := c.do(ctx, http.MethodPut, idPath("/restaurant/%d", id), profile, &v)
	return v, err
}

// DeleteVenue returns the ids of the pending reservations cancelled with it.
func (c *Client) DeleteVenue(ctx context.Context, id uint64) ([]uint64, error) {
	var out struct {
		Cancelled []uint64 `json:"cancelled_reservation_ids"`
	}
	err := c.do(ctx, http.MethodDelete, idPath("/restaurant/%d", id), nil, &out)
	return out.Cancelled, err
}

type menuItemBody struct {
	ID          uint64  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// UpsertMenuItem creates the item when item.ID is 0, otherwise updates it.
func (c *Client) UpsertMenuItem(ctx context.Context, venueID uint64, item model.MenuItem) (model.MenuItem, error) {
	var saved model.MenuItem
	err := c.do(ctx, http.MethodPost, idPath("/restaurant/%d/menu", venueID), menuItemBody{
		ID: item.ID, Name: item.Name, Description: item.Description, Price: item.Price(),
	}, &saved)
	return saved, err
}

func (c *Client) DeleteMenuItem(ctx context.Context, itemID uint64) error {
	return c.do(ctx, http.MethodDelete, idPath("/menu/%d", itemID), nil, nil)
}

// AssignManager accepts a user's email or numeric id.
func (c *Client) AssignManager(ctx context.Context, venueID uint64, emailOrID string) (model.ManagerAssignment, error) {
	var a model.ManagerAssignment
	err := c.do(ctx, http.MethodPost, "/restaurant/manager", map[string]any{
		"restaurant_id": venueID, "user": emailOrID,
	}, &a)
	return a, err
}

func (c *Client) ManagedVenues(ctx context.Context) ([]model.Venue, error) {
	var vs []model.Venue
	err := c.do(ctx, http.MethodGet, "/manager/restaurants", nil, &vs)
	return vs, err
}
