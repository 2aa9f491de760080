package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-reservation/internal/model"
)

type MenuRepo struct{ db *sql.DB }

func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

func scanMenuItem(s scanner) (model.MenuItem, error) {
	var m model.MenuItem
	err := s.Scan(&m.ID, &m.VenueID, &m.Name, &m.Description, &m.PriceCents)
	return m, err
}

// ListByVenue returns the venue's menu ordered by name.
func (r *MenuRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, venue_id, name, description, price_cents FROM menu_items WHERE venue_id = ? ORDER BY name, id", venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MenuRepo) GetByID(ctx context.Context, id uint64) (model.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRowContext(ctx,
		"SELECT id, venue_id, name, description, price_cents FROM menu_items WHERE id = ?", id))
	return m, notFound(err)
}

func (r *MenuRepo) Create(ctx context.Context, item *model.MenuItem) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO menu_items (venue_id, name, description, price_cents) VALUES (?, ?, ?, ?)",
		item.VenueID, item.Name, item.Description, item.PriceCents)
	if err != nil {
		return notFound(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = uint64(id)
	return nil
}

// Update rewrites the item. The venue_id condition keeps an item from being
// edited through another venue.
func (r *MenuRepo) Update(ctx context.Context, item *model.MenuItem) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE menu_items SET name = ?, description = ?, price_cents = ? WHERE id = ? AND venue_id = ?",
		item.Name, item.Description, item.PriceCents, item.ID, item.VenueID)
	if err != nil {
		return err
	}
	// unchanged rows report 0 affected, so confirm ownership with a read
	existing, err := r.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	if existing.VenueID != item.VenueID {
		return model.ErrNotFound
	}
	return nil
}

func (r *MenuRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM menu_items WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
