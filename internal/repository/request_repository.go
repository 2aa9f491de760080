package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// RequestRepo stores venue creation requests.
type RequestRepo struct{ db *sql.DB }

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const requestColumns = `id, requester_id, name, description, address, phone, image_url, open_time, close_time, venue_type, cuisine,
	status, venue_id, decided_by, decided_at, created_at`

func scanRequest(s scanner) (model.VenueRequest, error) {
	var (
		r         model.VenueRequest
		status    string
		venueID   sql.NullInt64
		decidedBy sql.NullInt64
		decidedAt sql.NullTime
		typ       string
	)
	d := &r.Draft
	if err := s.Scan(&r.ID, &r.RequesterID, &d.Name, &d.Description, &d.Address, &d.Phone, &d.ImageRef,
		&d.OpenTime, &d.CloseTime, &typ, &d.Cuisine, &status, &venueID, &decidedBy, &decidedAt, &r.CreatedAt); err != nil {
		return model.VenueRequest{}, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return model.VenueRequest{}, err
	}
	if d.Type, err = model.ParseVenueType(typ); err != nil {
		return model.VenueRequest{}, err
	}
	r.Status = st
	r.VenueID = nullID(venueID)
	r.DecidedBy = nullID(decidedBy)
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return r, nil
}

func nullID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

// Create stores r as pending regardless of r.Status.
func (rp *RequestRepo) Create(ctx context.Context, r *model.VenueRequest) error {
	now := time.Now().UTC().Truncate(time.Second)
	d := r.Draft
	res, err := rp.db.ExecContext(ctx,
		`INSERT INTO venue_requests (requester_id, name, description, address, phone, image_url, open_time, close_time, venue_type, cuisine, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,'pending',?)`,
		r.RequesterID, d.Name, d.Description, d.Address, d.Phone, d.ImageRef, d.OpenTime, d.CloseTime, storedType(d.Type), d.Cuisine, now)
	if err != nil {
		return notFound(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	r.Status = model.StatusPending
	r.CreatedAt = now
	r.VenueID, r.DecidedBy, r.DecidedAt = nil, nil, nil
	return nil
}

func (rp *RequestRepo) GetByID(ctx context.Context, id uint64) (model.VenueRequest, error) {
	r, err := scanRequest(rp.db.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM venue_requests WHERE id = ?", id))
	return r, notFound(err)
}

func (rp *RequestRepo) list(ctx context.Context, where string, args ...any) ([]model.VenueRequest, error) {
	q := "SELECT " + requestColumns + " FROM venue_requests"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY created_at, id"
	rows, err := rp.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VenueRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (rp *RequestRepo) ListAll(ctx context.Context) ([]model.VenueRequest, error) {
	return rp.list(ctx, "")
}

func (rp *RequestRepo) ListByRequester(ctx context.Context, requesterID uint64) ([]model.VenueRequest, error) {
	return rp.list(ctx, "requester_id = ?", requesterID)
}

func (rp *RequestRepo) ListPending(ctx context.Context) ([]model.VenueRequest, error) {
	return rp.list(ctx, "status = 'pending'")
}

// casDecide flips a pending request to status. When no row changes it
// tells a missing request apart from one that is already terminal.
func casDecide(ctx context.Context, tx *sql.Tx, table string, id uint64, status model.Status, deciderID uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET status = ?, decided_by = ?, decided_at = ? WHERE id = ? AND status = 'pending'",
		status.String(), deciderID, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var current string
	if err := tx.QueryRowContext(ctx, "SELECT status FROM "+table+" WHERE id = ?", id).Scan(&current); err != nil {
		return notFound(err)
	}
	return model.ErrAlreadyDecided
}

// Approve marks the request approved and inserts its venue in the same
// transaction.
func (rp *RequestRepo) Approve(ctx context.Context, id, deciderID uint64, at time.Time) (model.VenueRequest, model.Venue, error) {
	at = at.UTC().Truncate(time.Second)
	var (
		req   model.VenueRequest
		venue model.Venue
	)
	err := withTx(ctx, rp.db, func(tx *sql.Tx) error {
		if err := casDecide(ctx, tx, "venue_requests", id, model.StatusApproved, deciderID, at); err != nil {
			return err
		}
		var err error
		req, err = scanRequest(tx.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM venue_requests WHERE id = ?", id))
		if err != nil {
			return notFound(err)
		}
		venue = model.FromDraft(req.Draft)
		if err := insertVenue(ctx, tx, &venue, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE venue_requests SET venue_id = ? WHERE id = ?", venue.ID, id); err != nil {
			return err
		}
		req.VenueID = &venue.ID
		return nil
	})
	if err != nil {
		return model.VenueRequest{}, model.Venue{}, err
	}
	return req, venue, nil
}

func (rp *RequestRepo) Reject(ctx context.Context, id, deciderID uint64, at time.Time) (model.VenueRequest, error) {
	at = at.UTC().Truncate(time.Second)
	var req model.VenueRequest
	err := withTx(ctx, rp.db, func(tx *sql.Tx) error {
		if err := casDecide(ctx, tx, "venue_requests", id, model.StatusRejected, deciderID, at); err != nil {
			return err
		}
		var err error
		req, err = scanRequest(tx.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM venue_requests WHERE id = ?", id))
		return notFound(err)
	})
	return req, err
}
