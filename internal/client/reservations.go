package client

import (
	"context"
	"net/http"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

type reservationBody struct {
	Kind        string   `json:"kind"`
	DateTime    string   `json:"date_time,omitempty"`
	PartySize   int      `json:"party_size,omitempty"`
	Items       []uint64 `json:"preordered_item_ids,omitempty"`
	ContactName string   `json:"contact_name,omitempty"`
	Comment     string   `json:"comment,omitempty"`
}

// Reserve submits a reservation. in.VenueID selects the venue.
func (c *Client) Reserve(ctx context.Context, in service.SubmitReservation) (model.Reservation, error) {
	body := reservationBody{
		Kind:        in.Kind.String(),
		PartySize:   in.PartySize,
		Items:       in.PreorderedItemIDs,
		ContactName: in.ContactName,
		Comment:     in.Comment,
	}
	if !in.DateTime.IsZero() {
		body.DateTime = in.DateTime.UTC().Format(time.RFC3339)
	}
	var r model.Reservation
	err := c.do(ctx, http.MethodPost, idPath("/restaurant/%d/reservation", in.VenueID), body, &r)
	return r, err
}

// VenueReservations returns the venue's reservations visible to the caller.
func (c *Client) VenueReservations(ctx context.Context, venueID uint64) (model.ReservationPartition, error) {
	var p model.ReservationPartition
	err := c.do(ctx, http.MethodGet, idPath("/reservations/restaurant/%d", venueID), nil, &p)
	return p, err
}

func (c *Client) MyReservations(ctx context.Context) (model.ReservationPartition, error) {
	var p model.ReservationPartition
	err := c.do(ctx, http.MethodGet, "/reservations/me", nil, &p)
	return p, err
}

// Decide applies d and returns the reservation as stored by the server.
func (c *Client) Decide(ctx context.Context, reservationID uint64, d model.Decision) (model.Reservation, error) {
	var r model.Reservation
	err := c.do(ctx, http.MethodPost, idPath("/reservation/%d/decision", reservationID), map[string]string{"decision": d.String()}, &r)
	return r, err
}
