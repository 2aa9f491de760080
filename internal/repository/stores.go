package repository

import (
	"database/sql"

	"github.com/iliyamo/venue-reservation/internal/service"
)

// NewStores returns the MySQL implementation of every service store.
func NewStores(db *sql.DB) service.Stores {
	return service.Stores{
		Users:        NewUserRepo(db),
		Tokens:       NewTokenRepo(db),
		Venues:       NewVenueRepo(db),
		Menu:         NewMenuRepo(db),
		Requests:     NewRequestRepo(db),
		Reservations: NewReservationRepo(db),
	}
}
