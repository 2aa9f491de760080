package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

type Reservations struct{ db *DB }

func (s *Reservations) Create(_ context.Context, r *model.Reservation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.venues[r.VenueID]; !ok {
		return model.ErrNotFound
	}
	r.ID = s.db.nextID()
	r.Status = model.StatusPending
	r.CreatedAt = s.db.Now()
	r.DecidedBy, r.DecidedAt = nil, nil
	if r.PreorderedItemIDs == nil {
		r.PreorderedItemIDs = []uint64{}
	}
	s.db.reservations[r.ID] = cloneReservation(*r)
	return nil
}

func (s *Reservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	return cloneReservation(r), nil
}

func (s *Reservations) list(keep func(model.Reservation) bool) []model.Reservation {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.db.reservations {
		if keep(r) {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Reservations) ListByVenue(_ context.Context, venueID uint64) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.VenueID == venueID }), nil
}

func (s *Reservations) ListByCustomer(_ context.Context, customerID uint64) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.CustomerID == customerID }), nil
}

func (s *Reservations) Decide(_ context.Context, id uint64, status model.Status, deciderID uint64, at time.Time) (model.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	if r.Status != model.StatusPending {
		return model.Reservation{}, model.ErrAlreadyDecided
	}
	r.Status = status
	r.DecidedBy = &deciderID
	r.DecidedAt = &at
	s.db.reservations[id] = r
	return cloneReservation(r), nil
}
