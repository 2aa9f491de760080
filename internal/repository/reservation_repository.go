package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// ReservationRepo stores reservations and their pre-ordered items.
type ReservationRepo struct {
	db *sql.DB
}

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, venue_id, customer_id, kind, date_time, party_size, status, contact_name, comment,
	decided_by, decided_at, created_at`

func scanReservation(s scanner) (model.Reservation, error) {
	var (
		r         model.Reservation
		kind      string
		status    string
		decidedBy sql.NullInt64
		decidedAt sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.VenueID, &r.CustomerID, &kind, &r.DateTime, &r.PartySize, &status,
		&r.ContactName, &r.Comment, &decidedBy, &decidedAt, &r.CreatedAt); err != nil {
		return model.Reservation{}, err
	}
	k, err := model.ParseReservationKind(kind)
	if err != nil {
		return model.Reservation{}, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return model.Reservation{}, err
	}
	r.Kind, r.Status = k, st
	r.DecidedBy = nullID(decidedBy)
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	r.PreorderedItemIDs = []uint64{}
	return r, nil
}

// Create inserts the reservation and its items in one transaction. The
// row is always stored as pending.
func (rp *ReservationRepo) Create(ctx context.Context, r *model.Reservation) error {
	now := time.Now().UTC().Truncate(time.Second)
	return withTx(ctx, rp.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (venue_id, customer_id, kind, date_time, party_size, status, contact_name, comment, created_at)
			 VALUES (?,?,?,?,?,'pending',?,?,?)`,
			r.VenueID, r.CustomerID, r.Kind.String(), r.DateTime.UTC(), r.PartySize, r.ContactName, r.Comment, now)
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
		r.DecidedBy, r.DecidedAt = nil, nil
		if r.PreorderedItemIDs == nil {
			r.PreorderedItemIDs = []uint64{}
		}
		if len(r.PreorderedItemIDs) == 0 {
			return nil
		}
		// Build a bulk INSERT for reservation_items.
		q := "INSERT INTO reservation_items (reservation_id, menu_item_id) VALUES "
		args := make([]any, 0, 2*len(r.PreorderedItemIDs))
		for i, itemID := range r.PreorderedItemIDs {
			if i > 0 {
				q += ","
			}
			q += "(?,?)"
			args = append(args, r.ID, itemID)
		}
		_, err = tx.ExecContext(ctx, q, args...)
		return err
	})
}

func (rp *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := scanReservation(rp.db.QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	out := []model.Reservation{r}
	if err := rp.attachItems(ctx, out); err != nil {
		return model.Reservation{}, err
	}
	return out[0], nil
}

func (rp *ReservationRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.Reservation, error) {
	return rp.list(ctx, "venue_id = ?", venueID)
}

func (rp *ReservationRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error) {
	return rp.list(ctx, "customer_id = ?", customerID)
}

func (rp *ReservationRepo) list(ctx context.Context, where string, arg any) ([]model.Reservation, error) {
	rows, err := rp.db.QueryContext(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE "+where+" ORDER BY id", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := rp.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (rp *ReservationRepo) attachItems(ctx context.Context, rs []model.Reservation) error {
	if len(rs) == 0 {
		return nil
	}
	ids := make([]uint64, len(rs))
	index := make(map[uint64]int, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
		index[r.ID] = i
	}
	rows, err := rp.db.QueryContext(ctx,
		"SELECT reservation_id, menu_item_id FROM reservation_items WHERE reservation_id IN ("+placeholders(len(ids))+") ORDER BY reservation_id, menu_item_id",
		idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rid, itemID uint64
		if err := rows.Scan(&rid, &itemID); err != nil {
			return err
		}
		if i, ok := index[rid]; ok {
			rs[i].PreorderedItemIDs = append(rs[i].PreorderedItemIDs, itemID)
		}
	}
	return rows.Err()
}

// Decide moves a pending reservation to status. The UPDATE only matches
// pending rows, so of two concurrent deciders exactly one wins and the
// other gets model.ErrAlreadyDecided.
func (rp *ReservationRepo) Decide(ctx context.Context, id uint64, status model.Status, deciderID uint64, at time.Time) (model.Reservation, error) {
	at = at.UTC().Truncate(time.Second)
	err := withTx(ctx, rp.db, func(tx *sql.Tx) error {
		return casDecide(ctx, tx, "reservations", id, status, deciderID, at)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return rp.GetByID(ctx, id)
}
