package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/queue"
)

// requirement describes who may decide an entity kind.
type requirement struct {
	roles       []model.Role // actor must hold one of these
	venueScoped bool         // actor must also be in the entity venue's managerIds
}

// requirements is the single authorization table for every
// pending -> decided transition.
var requirements = map[model.EntityKind]requirement{
	model.EntityVenueRequest: {roles: []model.Role{model.RoleAdmin}},
	model.EntityReservation:  {roles: []model.Role{model.RoleManager, model.RoleAdmin}, venueScoped: true},
}

func (r requirement) authorize(actor model.Principal, venue *model.Venue) error {
	if actor.IsAnonymous() {
		return fmt.Errorf("%w: sign in to decide", model.ErrForbidden)
	}
	allowed := false
	for _, role := range r.roles {
		if actor.Role == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: role %s may not decide", model.ErrForbidden, actor.Role)
	}
	if r.venueScoped && (venue == nil || !venue.IsManagedBy(actor.ID)) {
		return fmt.Errorf("%w: not a manager of this venue", model.ErrForbidden)
	}
	return nil
}

// Outcome is the authoritative state after a decision. Exactly one of
// Request or Reservation is set; Venue is set when a request approval
// materialized a new venue.
type Outcome struct {
	Kind        model.EntityKind    `json:"kind"`
	Request     *model.VenueRequest `json:"request,omitempty"`
	Reservation *model.Reservation  `json:"reservation,omitempty"`
	Venue       *model.Venue        `json:"venue,omitempty"`
}

// Gateway applies pending -> decided transitions for every workflow.
type Gateway struct {
	requests     RequestStore
	reservations ReservationStore
	venues       VenueStore
	events       EventPublisher
	log          *slog.Logger
	now          func() time.Time
}

func NewGateway(requests RequestStore, reservations ReservationStore, venues VenueStore, events EventPublisher, log *slog.Logger) *Gateway {
	if requests == nil || reservations == nil || venues == nil {
		panic("nil store passed to NewGateway")
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &Gateway{
		requests:     requests,
		reservations: reservations,
		venues:       venues,
		events:       events,
		log:          orDefault(log).With("component", "gateway"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Decide validates and applies decision to the entity (kind, id) on behalf
// of actor. Checks run in order: decision value, existence, authorization,
// pending status. The persistence layer repeats the pending check as a
// compare-and-swap, so a concurrent second decision surfaces as
// model.ErrAlreadyDecided instead of a second write.
func (g *Gateway) Decide(ctx context.Context, kind model.EntityKind, id uint64, decision model.Decision, actor model.Principal) (Outcome, error) {
	req, ok := requirements[kind]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown entity kind %s", model.ErrInvalidTransition, kind)
	}
	status, err := decision.StatusFor(kind)
	if err != nil {
		return Outcome{}, err
	}
	switch kind {
	case model.EntityVenueRequest:
		return g.decideRequest(ctx, req, id, status, actor)
	case model.EntityReservation:
		return g.decideReservation(ctx, req, id, status, actor)
	}
	return Outcome{}, fmt.Errorf("%w: unknown entity kind %s", model.ErrInvalidTransition, kind)
}

func (g *Gateway) decideRequest(ctx context.Context, req requirement, id uint64, status model.Status, actor model.Principal) (Outcome, error) {
	current, err := g.requests.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("venue request %d: %w", id, err)
	}
	if err := req.authorize(actor, nil); err != nil {
		return Outcome{}, err
	}
	if current.Status.Terminal() {
		return Outcome{}, fmt.Errorf("venue request %d is %s: %w", id, current.Status, model.ErrAlreadyDecided)
	}

	at := g.now()
	out := Outcome{Kind: model.EntityVenueRequest}
	switch status {
	case model.StatusApproved:
		updated, venue, err := g.requests.Approve(ctx, id, actor.ID, at)
		if err != nil {
			return Outcome{}, fmt.Errorf("venue request %d: %w", id, err)
		}
		out.Request, out.Venue = &updated, &venue
	default:
		updated, err := g.requests.Reject(ctx, id, actor.ID, at)
		if err != nil {
			return Outcome{}, fmt.Errorf("venue request %d: %w", id, err)
		}
		out.Request = &updated
	}

	ev := queue.DecisionMadeEvent{
		EntityKind: model.EntityVenueRequest.String(),
		EntityID:   id,
		Status:     out.Request.Status.String(),
		DecidedBy:  actor.ID,
		SubjectID:  out.Request.RequesterID,
		VenueName:  out.Request.Draft.Name,
		DecidedAt:  at.Format(time.RFC3339),
	}
	if out.Venue != nil {
		ev.VenueID = out.Venue.ID
	}
	publish(ctx, g.events, g.log, ev)
	g.log.Info("venue request decided", "request_id", id, "status", out.Request.Status.String(), "actor", actor.ID)
	return out, nil
}

func (g *Gateway) decideReservation(ctx context.Context, req requirement, id uint64, status model.Status, actor model.Principal) (Outcome, error) {
	current, err := g.reservations.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("reservation %d: %w", id, err)
	}
	venue, err := g.venues.GetByID(ctx, current.VenueID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Outcome{}, fmt.Errorf("reservation %d: venue gone: %w", id, model.ErrNotFound)
		}
		return Outcome{}, err
	}
	if err := req.authorize(actor, &venue); err != nil {
		return Outcome{}, err
	}
	if current.Status.Terminal() {
		return Outcome{}, fmt.Errorf("reservation %d is %s: %w", id, current.Status, model.ErrAlreadyDecided)
	}

	at := g.now()
	updated, err := g.reservations.Decide(ctx, id, status, actor.ID, at)
	if err != nil {
		return Outcome{}, fmt.Errorf("reservation %d: %w", id, err)
	}

	publish(ctx, g.events, g.log, queue.DecisionMadeEvent{
		EntityKind: model.EntityReservation.String(),
		EntityID:   id,
		Status:     updated.Status.String(),
		DecidedBy:  actor.ID,
		SubjectID:  updated.CustomerID,
		VenueID:    venue.ID,
		VenueName:  venue.Name,
		DecidedAt:  at.Format(time.RFC3339),
	})
	g.log.Info("reservation decided", "reservation_id", id, "status", updated.Status.String(), "actor", actor.ID)
	return Outcome{Kind: model.EntityReservation, Reservation: &updated}, nil
}
