package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// SubmitReservation is the customer's input for a new reservation.
type SubmitReservation struct {
	VenueID           uint64
	Kind              model.ReservationKind
	DateTime          time.Time
	PartySize         int
	PreorderedItemIDs []uint64
	ContactName       string
	Comment           string
}

// ReservationWorkflow handles table bookings and pickup orders.
type ReservationWorkflow struct {
	reservations ReservationStore
	venues       VenueStore
	menu         MenuStore
	gateway      *Gateway
	log          *slog.Logger
}

func NewReservationWorkflow(reservations ReservationStore, venues VenueStore, menu MenuStore, gateway *Gateway, log *slog.Logger) *ReservationWorkflow {
	return &ReservationWorkflow{
		reservations: reservations,
		venues:       venues,
		menu:         menu,
		gateway:      gateway,
		log:          orDefault(log).With("component", "reservations"),
	}
}

const (
	maxContactName = 255
	maxComment     = 2000
)

func invalidReservation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidReservationRequest, fmt.Sprintf(format, args...))
}

// validateShape applies the per-kind field rules and returns the
// de-duplicated item ids.
func validateShape(in SubmitReservation) ([]uint64, error) {
	if in.Kind == 0 {
		return nil, invalidReservation("kind is required")
	}
	if in.DateTime.IsZero() {
		return nil, invalidReservation("date_time is required")
	}
	items := dedupe(in.PreorderedItemIDs)
	switch in.Kind {
	case model.KindTableOnly:
		if len(items) > 0 {
			return nil, invalidReservation("table_only reservations cannot pre-order items")
		}
	case model.KindPickupOnly, model.KindTableWithPreorder:
		if len(items) == 0 {
			return nil, invalidReservation("%s requires at least one menu item", in.Kind)
		}
	default:
		return nil, invalidReservation("unknown kind %s", in.Kind)
	}
	if in.Kind.NeedsTable() && in.PartySize < 1 {
		return nil, invalidReservation("party_size must be at least 1")
	}
	if utf8.RuneCountInString(in.ContactName) > maxContactName {
		return nil, invalidReservation("contact_name exceeds %d characters", maxContactName)
	}
	if utf8.RuneCountInString(in.Comment) > maxComment {
		return nil, invalidReservation("comment exceeds %d characters", maxComment)
	}
	return items, nil
}

func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Submit creates a pending reservation against the venue's current menu.
func (w *ReservationWorkflow) Submit(ctx context.Context, in SubmitReservation, customer model.Principal) (model.Reservation, error) {
	if err := requireSignedIn(customer); err != nil {
		return model.Reservation{}, err
	}
	items, err := validateShape(in)
	if err != nil {
		return model.Reservation{}, err
	}
	if _, err := w.venues.GetByID(ctx, in.VenueID); err != nil {
		return model.Reservation{}, fmt.Errorf("venue %d: %w", in.VenueID, err)
	}
	if len(items) > 0 {
		menu, err := w.menu.ListByVenue(ctx, in.VenueID)
		if err != nil {
			return model.Reservation{}, err
		}
		onMenu := make(map[uint64]struct{}, len(menu))
		for _, m := range menu {
			onMenu[m.ID] = struct{}{}
		}
		for _, id := range items {
			if _, ok := onMenu[id]; !ok {
				return model.Reservation{}, invalidReservation("item %d is not on this venue's menu", id)
			}
		}
	}

	r := model.Reservation{
		VenueID:           in.VenueID,
		CustomerID:        customer.ID,
		Kind:              in.Kind,
		DateTime:          in.DateTime.UTC(),
		PreorderedItemIDs: items,
		Status:            model.StatusPending,
		ContactName:       strings.TrimSpace(in.ContactName),
		Comment:           strings.TrimSpace(in.Comment),
	}
	if in.Kind.NeedsTable() {
		r.PartySize = in.PartySize
	}
	if err := w.reservations.Create(ctx, &r); err != nil {
		return model.Reservation{}, err
	}
	w.log.Info("reservation submitted", "reservation_id", r.ID, "venue_id", r.VenueID, "kind", r.Kind.String())
	return r, nil
}

// ListForVenue returns the venue's reservations visible to p, split into
// pending and decided history. Assigned managers and admins see all of
// them; anyone else only their own.
func (w *ReservationWorkflow) ListForVenue(ctx context.Context, venueID uint64, p model.Principal) (model.ReservationPartition, error) {
	if err := requireSignedIn(p); err != nil {
		return model.ReservationPartition{}, err
	}
	venue, err := w.venues.GetByID(ctx, venueID)
	if err != nil {
		return model.ReservationPartition{}, fmt.Errorf("venue %d: %w", venueID, err)
	}
	all, err := w.reservations.ListByVenue(ctx, venueID)
	if err != nil {
		return model.ReservationPartition{}, err
	}
	if !p.IsAdmin() && !venue.IsManagedBy(p.ID) {
		own := all[:0:0]
		for _, r := range all {
			if r.CustomerID == p.ID {
				own = append(own, r)
			}
		}
		all = own
	}
	return PartitionReservations(all), nil
}

// ListMine returns the caller's reservations across all venues.
func (w *ReservationWorkflow) ListMine(ctx context.Context, p model.Principal) (model.ReservationPartition, error) {
	if err := requireSignedIn(p); err != nil {
		return model.ReservationPartition{}, err
	}
	rs, err := w.reservations.ListByCustomer(ctx, p.ID)
	if err != nil {
		return model.ReservationPartition{}, err
	}
	return PartitionReservations(rs), nil
}

func (w *ReservationWorkflow) Decide(ctx context.Context, id uint64, d model.Decision, actor model.Principal) (Outcome, error) {
	return w.gateway.Decide(ctx, model.EntityReservation, id, d, actor)
}

// PartitionReservations splits rs into pending (oldest first) and history
// (most recently decided first).
func PartitionReservations(rs []model.Reservation) model.ReservationPartition {
	part := model.ReservationPartition{Pending: []model.Reservation{}, History: []model.Reservation{}}
	for _, r := range rs {
		if r.Status == model.StatusPending {
			part.Pending = append(part.Pending, r)
		} else {
			part.History = append(part.History, r)
		}
	}
	sort.SliceStable(part.Pending, func(i, j int) bool {
		a, b := part.Pending[i], part.Pending[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(part.History, func(i, j int) bool {
		a, b := part.History[i], part.History[j]
		ta, tb := decidedAt(a), decidedAt(b)
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return part
}

func decidedAt(r model.Reservation) time.Time {
	if r.DecidedAt != nil {
		return *r.DecidedAt
	}
	return r.CreatedAt
}
