// Package service holds the approval workflows and the rules that decide
// which principal may drive which transition. Persistence is reached
// through the store interfaces below; implementations must report a
// missing row as model.ErrNotFound and a lost compare-and-swap on a
// pending status as model.ErrAlreadyDecided.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/queue"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error // model.ErrEmailExists on duplicate email
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uint64, displayName, avatarRef string) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	// PromoteToManager raises a customer to manager; other roles are left unchanged.
	PromoteToManager(ctx context.Context, id uint64) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type VenueStore interface {
	GetByID(ctx context.Context, id uint64) (model.Venue, error)
	List(ctx context.Context, f model.VenueFilter) ([]model.Venue, error)
	ListByManager(ctx context.Context, userID uint64) ([]model.Venue, error)
	UpdateProfile(ctx context.Context, id uint64, p model.VenueProfile) (model.Venue, error)
	// Delete removes the venue with its menu, manager links and
	// reservations, returning the ids of reservations that were still pending.
	Delete(ctx context.Context, id uint64) ([]uint64, error)
	// AddManager is idempotent.
	AddManager(ctx context.Context, venueID, userID uint64) error
}

type MenuStore interface {
	ListByVenue(ctx context.Context, venueID uint64) ([]model.MenuItem, error)
	GetByID(ctx context.Context, id uint64) (model.MenuItem, error)
	Create(ctx context.Context, item *model.MenuItem) error
	Update(ctx context.Context, item *model.MenuItem) error
	Delete(ctx context.Context, id uint64) error
}

type RequestStore interface {
	Create(ctx context.Context, r *model.VenueRequest) error
	GetByID(ctx context.Context, id uint64) (model.VenueRequest, error)
	ListAll(ctx context.Context) ([]model.VenueRequest, error)
	ListByRequester(ctx context.Context, requesterID uint64) ([]model.VenueRequest, error)
	ListPending(ctx context.Context) ([]model.VenueRequest, error)
	// Approve flips a pending request to approved and materializes its
	// venue in the same atomic step.
	Approve(ctx context.Context, id, deciderID uint64, at time.Time) (model.VenueRequest, model.Venue, error)
	Reject(ctx context.Context, id, deciderID uint64, at time.Time) (model.VenueRequest, error)
}

type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	ListByVenue(ctx context.Context, venueID uint64) ([]model.Reservation, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error)
	Decide(ctx context.Context, id uint64, status model.Status, deciderID uint64, at time.Time) (model.Reservation, error)
}

// EventPublisher delivers domain events to the broker. Publishing is best
// effort: callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.Event) error { return nil }

func publish(ctx context.Context, p EventPublisher, log *slog.Logger, ev queue.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("event publish failed", "event", ev.EventType(), "err", err)
	}
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func requireSignedIn(p model.Principal) error {
	if p.IsAnonymous() {
		return model.ErrUnauthorized
	}
	return nil
}

func requireAdmin(p model.Principal) error {
	if err := requireSignedIn(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return model.ErrForbidden
	}
	return nil
}
