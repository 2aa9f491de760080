package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

type Requests struct{ db *DB }

func (s *Requests) Create(_ context.Context, r *model.VenueRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = s.db.nextID()
	r.Status = model.StatusPending
	r.CreatedAt = s.db.Now()
	r.VenueID, r.DecidedBy, r.DecidedAt = nil, nil, nil
	s.db.requests[r.ID] = *r
	return nil
}

func (s *Requests) GetByID(_ context.Context, id uint64) (model.VenueRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok {
		return model.VenueRequest{}, model.ErrNotFound
	}
	return r, nil
}

func (s *Requests) list(keep func(model.VenueRequest) bool) []model.VenueRequest {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.VenueRequest{}
	for _, r := range s.db.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Requests) ListAll(context.Context) ([]model.VenueRequest, error) {
	return s.list(func(model.VenueRequest) bool { return true }), nil
}

func (s *Requests) ListByRequester(_ context.Context, requesterID uint64) ([]model.VenueRequest, error) {
	return s.list(func(r model.VenueRequest) bool { return r.RequesterID == requesterID }), nil
}

func (s *Requests) ListPending(context.Context) ([]model.VenueRequest, error) {
	return s.list(func(r model.VenueRequest) bool { return r.Status == model.StatusPending }), nil
}

// decide must be called with mu held.
func (s *Requests) decide(id uint64, status model.Status, deciderID uint64, at time.Time) (model.VenueRequest, error) {
	r, ok := s.db.requests[id]
	if !ok {
		return model.VenueRequest{}, model.ErrNotFound
	}
	if r.Status != model.StatusPending {
		return model.VenueRequest{}, model.ErrAlreadyDecided
	}
	r.Status = status
	r.DecidedBy = &deciderID
	r.DecidedAt = &at
	return r, nil
}

func (s *Requests) Approve(_ context.Context, id, deciderID uint64, at time.Time) (model.VenueRequest, model.Venue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, err := s.decide(id, model.StatusApproved, deciderID, at)
	if err != nil {
		return model.VenueRequest{}, model.Venue{}, err
	}
	v := model.FromDraft(r.Draft)
	v.ID = s.db.nextID()
	v.CreatedAt, v.UpdatedAt = at, at
	s.db.venues[v.ID] = v
	r.VenueID = &v.ID
	s.db.requests[id] = r
	return r, cloneVenue(v), nil
}

func (s *Requests) Reject(_ context.Context, id, deciderID uint64, at time.Time) (model.VenueRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, err := s.decide(id, model.StatusRejected, deciderID, at)
	if err != nil {
		return model.VenueRequest{}, err
	}
	s.db.requests[id] = r
	return r, nil
}
