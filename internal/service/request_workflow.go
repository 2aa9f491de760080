package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// RequestWorkflow handles venue creation requests.
type RequestWorkflow struct {
	requests RequestStore
	gateway  *Gateway
	log      *slog.Logger
}

func NewRequestWorkflow(requests RequestStore, gateway *Gateway, log *slog.Logger) *RequestWorkflow {
	return &RequestWorkflow{requests: requests, gateway: gateway, log: orDefault(log).With("component", "requests")}
}

// Submit records a new pending request. The draft carries no status, so
// whatever the client asked for is never stored.
func (w *RequestWorkflow) Submit(ctx context.Context, draft model.VenueDraft, requester model.Principal) (model.VenueRequest, error) {
	if err := requireSignedIn(requester); err != nil {
		return model.VenueRequest{}, err
	}
	draft = draft.Normalize()
	if draft.Name == "" {
		return model.VenueRequest{}, fmt.Errorf("%w: venue name is required", model.ErrInvalidInput)
	}
	r := model.VenueRequest{
		RequesterID: requester.ID,
		Draft:       draft,
		Status:      model.StatusPending,
	}
	if err := w.requests.Create(ctx, &r); err != nil {
		return model.VenueRequest{}, err
	}
	w.log.Info("venue request submitted", "request_id", r.ID, "requester", requester.ID)
	return r, nil
}

// List returns every request for an admin and the caller's own otherwise.
func (w *RequestWorkflow) List(ctx context.Context, p model.Principal) ([]model.VenueRequest, error) {
	if err := requireSignedIn(p); err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return w.requests.ListAll(ctx)
	}
	return w.requests.ListByRequester(ctx, p.ID)
}

// ReviewQueue returns pending requests oldest first.
func (w *RequestWorkflow) ReviewQueue(ctx context.Context, p model.Principal) ([]model.VenueRequest, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	pending, err := w.requests.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}

func (w *RequestWorkflow) Approve(ctx context.Context, id uint64, actor model.Principal) (Outcome, error) {
	return w.gateway.Decide(ctx, model.EntityVenueRequest, id, model.DecisionApprove, actor)
}

func (w *RequestWorkflow) Reject(ctx context.Context, id uint64, actor model.Principal) (Outcome, error) {
	return w.gateway.Decide(ctx, model.EntityVenueRequest, id, model.DecisionReject, actor)
}

// CreateDirect lets an admin list a venue in one step. It still goes
// through a request and its approval, which remains the only way a venue
// comes into existence.
func (w *RequestWorkflow) CreateDirect(ctx context.Context, draft model.VenueDraft, admin model.Principal) (Outcome, error) {
	if err := requireAdmin(admin); err != nil {
		return Outcome{}, err
	}
	r, err := w.Submit(ctx, draft, admin)
	if err != nil {
		return Outcome{}, err
	}
	return w.Approve(ctx, r.ID, admin)
}
