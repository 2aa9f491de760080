package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// Directory serves the public venue listings.
type Directory struct {
	venues VenueStore
	menu   MenuStore
}

func NewDirectory(venues VenueStore, menu MenuStore) *Directory {
	return &Directory{venues: venues, menu: menu}
}

func (d *Directory) List(ctx context.Context, f model.VenueFilter) ([]model.Venue, error) {
	return d.venues.List(ctx, f)
}

func (d *Directory) Get(ctx context.Context, id uint64) (model.Venue, error) {
	v, err := d.venues.GetByID(ctx, id)
	if err != nil {
		return model.Venue{}, fmt.Errorf("venue %d: %w", id, err)
	}
	return v, nil
}

// Menu returns the venue's items ordered by name.
func (d *Directory) Menu(ctx context.Context, venueID uint64) ([]model.MenuItem, error) {
	if _, err := d.Get(ctx, venueID); err != nil {
		return nil, err
	}
	items, err := d.menu.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
