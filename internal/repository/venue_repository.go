package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// VenueRepo encapsulates all database queries related to venues and their
// manager links.
type VenueRepo struct {
	db *sql.DB
}

func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

const venueColumns = "v.id, v.name, v.description, v.address, v.phone, v.image_url, v.open_time, v.close_time, v.venue_type, v.cuisine, v.rating, v.created_at, v.updated_at"

func scanVenue(s scanner) (model.Venue, error) {
	var (
		v   model.Venue
		typ string
	)
	if err := s.Scan(&v.ID, &v.Name, &v.Description, &v.Address, &v.Phone, &v.ImageRef,
		&v.OpenTime, &v.CloseTime, &typ, &v.Cuisine, &v.Rating, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return model.Venue{}, err
	}
	t, err := model.ParseVenueType(typ)
	if err != nil {
		return model.Venue{}, err
	}
	v.Type = t
	v.ManagerIDs = []uint64{}
	return v, nil
}

// insertVenue writes a new venue row inside tx. Used by request approval.
func insertVenue(ctx context.Context, tx *sql.Tx, v *model.Venue, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO venues (name, description, address, phone, image_url, open_time, close_time, venue_type, cuisine, rating, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.Name, v.Description, v.Address, v.Phone, v.ImageRef, v.OpenTime, v.CloseTime, storedType(v.Type), v.Cuisine, v.Rating, at, at)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	v.CreatedAt, v.UpdatedAt = at, at
	if v.ManagerIDs == nil {
		v.ManagerIDs = []uint64{}
	}
	return nil
}

// GetByID fetches a venue with its manager ids.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx, "SELECT "+venueColumns+" FROM venues v WHERE v.id = ?", id))
	if err != nil {
		return model.Venue{}, notFound(err)
	}
	out := []model.Venue{v}
	if err := r.attachManagers(ctx, out); err != nil {
		return model.Venue{}, err
	}
	return out[0], nil
}

// storedType writes an unset type as restaurant, the column default.
func storedType(t model.VenueType) string {
	if t == 0 {
		return model.VenueRestaurant.String()
	}
	return t.String()
}

// List returns venues matching f ordered by id. Name is a case-insensitive
// substring; cuisine an exact case-insensitive match.
func (r *VenueRepo) List(ctx context.Context, f model.VenueFilter) ([]model.Venue, error) {
	var (
		where []string
		args  []any
	)
	if n := strings.TrimSpace(f.Name); n != "" {
		where = append(where, "LOWER(v.name) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(n))+"%")
	}
	if f.Type != 0 {
		where = append(where, "v.venue_type = ?")
		args = append(args, f.Type.String())
	}
	if c := strings.TrimSpace(f.Cuisine); c != "" {
		where = append(where, "LOWER(v.cuisine) = ?")
		args = append(args, strings.ToLower(c))
	}
	q := "SELECT " + venueColumns + " FROM venues v"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY v.id"
	return r.query(ctx, q, args...)
}

// ListByManager returns the venues userID manages ordered by id.
func (r *VenueRepo) ListByManager(ctx context.Context, userID uint64) ([]model.Venue, error) {
	const q = "SELECT " + venueColumns + ` FROM venues v
	           JOIN venue_managers vm ON vm.venue_id = v.id
	           WHERE vm.user_id = ? ORDER BY v.id`
	return r.query(ctx, q, userID)
}

func (r *VenueRepo) query(ctx context.Context, q string, args ...any) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachManagers(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachManagers loads manager ids for every venue in vs with one query.
func (r *VenueRepo) attachManagers(ctx context.Context, vs []model.Venue) error {
	if len(vs) == 0 {
		return nil
	}
	ids := make([]uint64, len(vs))
	index := make(map[uint64]int, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
		index[v.ID] = i
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT venue_id, user_id FROM venue_managers WHERE venue_id IN ("+placeholders(len(ids))+") ORDER BY venue_id, user_id",
		idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var venueID, userID uint64
		if err := rows.Scan(&venueID, &userID); err != nil {
			return err
		}
		if i, ok := index[venueID]; ok {
			vs[i].ManagerIDs = append(vs[i].ManagerIDs, userID)
		}
	}
	return rows.Err()
}

// UpdateProfile replaces the mutable profile columns.
func (r *VenueRepo) UpdateProfile(ctx context.Context, id uint64, p model.VenueProfile) (model.Venue, error) {
	const q = `UPDATE venues
	           SET name = ?, description = ?, address = ?, phone = ?, image_url = ?, open_time = ?, close_time = ?, updated_at = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Description, p.Address, p.Phone, p.ImageRef, p.OpenTime, p.CloseTime, time.Now().UTC(), id)
	if err != nil {
		return model.Venue{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Venue{}, model.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a venue and all dependent records (reservation items,
// reservations, menu items, manager links) in one transaction and returns
// the ids of reservations that were still pending. Requests that created
// the venue keep their row with venue_id cleared.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) ([]uint64, error) {
	cancelled := []uint64{}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked uint64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM venues WHERE id = ? FOR UPDATE", id).Scan(&locked); err != nil {
			return notFound(err)
		}
		rows, err := tx.QueryContext(ctx,
			"SELECT id FROM reservations WHERE venue_id = ? AND status = 'pending' ORDER BY id", id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var rid uint64
			if err := rows.Scan(&rid); err != nil {
				rows.Close()
				return err
			}
			cancelled = append(cancelled, rid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		stmts := []string{
			`DELETE ri FROM reservation_items ri JOIN reservations r ON r.id = ri.reservation_id WHERE r.venue_id = ?`,
			`DELETE FROM reservations WHERE venue_id = ?`,
			`DELETE FROM menu_items WHERE venue_id = ?`,
			`DELETE FROM venue_managers WHERE venue_id = ?`,
			`UPDATE venue_requests SET venue_id = NULL WHERE venue_id = ?`,
			`DELETE FROM venues WHERE id = ?`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// AddManager links userID to the venue. Existing links are left alone.
func (r *VenueRepo) AddManager(ctx context.Context, venueID, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO venue_managers (venue_id, user_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE user_id = user_id", venueID, userID)
	return notFound(err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
