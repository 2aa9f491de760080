// Package memory is an in-process implementation of the service stores.
// A single mutex guards all tables, so the pending-status compare-and-swap
// behaves exactly like the conditional UPDATE of the SQL repositories.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// DB holds every table. Use the accessor methods to get the typed stores.
type DB struct {
	mu sync.Mutex

	// Now stamps created/decided times. Defaults to time.Now in UTC.
	Now func() time.Time

	seq          uint64
	users        map[uint64]model.User
	refresh      map[string]refreshRow
	venues       map[uint64]model.Venue
	menu         map[uint64]model.MenuItem
	requests     map[uint64]model.VenueRequest
	reservations map[uint64]model.Reservation
}

func New() *DB {
	return &DB{
		Now:          func() time.Time { return time.Now().UTC() },
		users:        map[uint64]model.User{},
		refresh:      map[string]refreshRow{},
		venues:       map[uint64]model.Venue{},
		menu:         map[uint64]model.MenuItem{},
		requests:     map[uint64]model.VenueRequest{},
		reservations: map[uint64]model.Reservation{},
	}
}

func (db *DB) Users() *Users { return &Users{db} }
func (db *DB) Tokens() *Tokens { return &Tokens{db} }
func (db *DB) Venues() *Venues { return &Venues{db} }
func (db *DB) Menu() *Menu { return &Menu{db} }
func (db *DB) Requests() *Requests { return &Requests{db} }
func (db *DB) Reservations() *Reservations { return &Reservations{db} }

// Stores returns every table as a service store.
func (db *DB) Stores() service.Stores {
	return service.Stores{
		Users:        db.Users(),
		Tokens:       db.Tokens(),
		Venues:       db.Venues(),
		Menu:         db.Menu(),
		Requests:     db.Requests(),
		Reservations: db.Reservations(),
	}
}

// nextID must be called with mu held. Ids are unique across tables.
func (db *DB) nextID() uint64 {
	db.seq++
	return db.seq
}

func copyIDs(ids []uint64) []uint64 {
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

func cloneVenue(v model.Venue) model.Venue {
	v.ManagerIDs = copyIDs(v.ManagerIDs)
	return v
}

func cloneReservation(r model.Reservation) model.Reservation {
	r.PreorderedItemIDs = copyIDs(r.PreorderedItemIDs)
	return r
}

func sortVenues(vs []model.Venue) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
}
