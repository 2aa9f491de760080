package memory

import (
	"context"
	"sort"

	"github.com/iliyamo/venue-reservation/internal/model"
)

type Venues struct{ db *DB }

func (s *Venues) GetByID(_ context.Context, id uint64) (model.Venue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.venues[id]
	if !ok {
		return model.Venue{}, model.ErrNotFound
	}
	return cloneVenue(v), nil
}

func (s *Venues) List(_ context.Context, f model.VenueFilter) ([]model.Venue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Venue{}
	for _, v := range s.db.venues {
		if f.Matches(v) {
			out = append(out, cloneVenue(v))
		}
	}
	sortVenues(out)
	return out, nil
}

func (s *Venues) ListByManager(_ context.Context, userID uint64) ([]model.Venue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Venue{}
	for _, v := range s.db.venues {
		if v.IsManagedBy(userID) {
			out = append(out, cloneVenue(v))
		}
	}
	sortVenues(out)
	return out, nil
}

func (s *Venues) UpdateProfile(_ context.Context, id uint64, p model.VenueProfile) (model.Venue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.venues[id]
	if !ok {
		return model.Venue{}, model.ErrNotFound
	}
	v.VenueProfile = p
	v.UpdatedAt = s.db.Now()
	s.db.venues[id] = v
	return cloneVenue(v), nil
}

func (s *Venues) Delete(_ context.Context, id uint64) ([]uint64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.venues[id]; !ok {
		return nil, model.ErrNotFound
	}
	cancelled := []uint64{}
	for rid, r := range s.db.reservations {
		if r.VenueID != id {
			continue
		}
		if r.Status == model.StatusPending {
			cancelled = append(cancelled, rid)
		}
		delete(s.db.reservations, rid)
	}
	for mid, m := range s.db.menu {
		if m.VenueID == id {
			delete(s.db.menu, mid)
		}
	}
	delete(s.db.venues, id)
	sort.Slice(cancelled, func(i, j int) bool { return cancelled[i] < cancelled[j] })
	return cancelled, nil
}

func (s *Venues) AddManager(_ context.Context, venueID, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.venues[venueID]
	if !ok {
		return model.ErrNotFound
	}
	if v.IsManagedBy(userID) {
		return nil
	}
	v.ManagerIDs = append(copyIDs(v.ManagerIDs), userID)
	sort.Slice(v.ManagerIDs, func(i, j int) bool { return v.ManagerIDs[i] < v.ManagerIDs[j] })
	s.db.venues[venueID] = v
	return nil
}

// Seed inserts a venue directly, bypassing the request workflow. Intended
// for fixtures.
func (s *Venues) Seed(v model.Venue) model.Venue {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v.ID = s.db.nextID()
	if v.ManagerIDs == nil {
		v.ManagerIDs = []uint64{}
	}
	now := s.db.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	s.db.venues[v.ID] = cloneVenue(v)
	return cloneVenue(v)
}

type Menu struct{ db *DB }

func (s *Menu) ListByVenue(_ context.Context, venueID uint64) ([]model.MenuItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.MenuItem{}
	for _, m := range s.db.menu {
		if m.VenueID == venueID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Menu) GetByID(_ context.Context, id uint64) (model.MenuItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.menu[id]
	if !ok {
		return model.MenuItem{}, model.ErrNotFound
	}
	return m, nil
}

func (s *Menu) Create(_ context.Context, item *model.MenuItem) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.venues[item.VenueID]; !ok {
		return model.ErrNotFound
	}
	item.ID = s.db.nextID()
	s.db.menu[item.ID] = *item
	return nil
}

func (s *Menu) Update(_ context.Context, item *model.MenuItem) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.menu[item.ID]
	if !ok || existing.VenueID != item.VenueID {
		return model.ErrNotFound
	}
	s.db.menu[item.ID] = *item
	return nil
}

func (s *Menu) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.menu[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.db.menu, id)
	return nil
}
