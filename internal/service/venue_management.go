package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/queue"
)

// VenueManagement covers the edits managers and admins make to venues.
type VenueManagement struct {
	venues VenueStore
	menu   MenuStore
	users  UserStore
	events EventPublisher
	log    *slog.Logger
}

func NewVenueManagement(venues VenueStore, menu MenuStore, users UserStore, events EventPublisher, log *slog.Logger) *VenueManagement {
	if events == nil {
		events = NopPublisher{}
	}
	return &VenueManagement{
		venues: venues,
		menu:   menu,
		users:  users,
		events: events,
		log:    orDefault(log).With("component", "venues"),
	}
}

// authorizeVenue loads the venue and checks that p manages it or is an admin.
func (m *VenueManagement) authorizeVenue(ctx context.Context, venueID uint64, p model.Principal) (model.Venue, error) {
	if err := requireSignedIn(p); err != nil {
		return model.Venue{}, err
	}
	v, err := m.venues.GetByID(ctx, venueID)
	if err != nil {
		return model.Venue{}, fmt.Errorf("venue %d: %w", venueID, err)
	}
	if !p.IsAdmin() && !v.IsManagedBy(p.ID) {
		return model.Venue{}, fmt.Errorf("%w: not a manager of venue %d", model.ErrForbidden, venueID)
	}
	return v, nil
}

// UpdateProfile replaces every mutable profile field of the venue.
func (m *VenueManagement) UpdateProfile(ctx context.Context, venueID uint64, profile model.VenueProfile, actor model.Principal) (model.Venue, error) {
	if _, err := m.authorizeVenue(ctx, venueID, actor); err != nil {
		return model.Venue{}, err
	}
	profile = profile.Normalize()
	if profile.Name == "" {
		return model.Venue{}, fmt.Errorf("%w: venue name is required", model.ErrInvalidInput)
	}
	v, err := m.venues.UpdateProfile(ctx, venueID, profile)
	if err != nil {
		return model.Venue{}, err
	}
	m.log.Info("venue profile updated", "venue_id", venueID, "actor", actor.ID)
	return v, nil
}

// UpsertMenuItem creates item when its ID is zero and updates it otherwise.
func (m *VenueManagement) UpsertMenuItem(ctx context.Context, venueID uint64, item model.MenuItem, actor model.Principal) (model.MenuItem, error) {
	if _, err := m.authorizeVenue(ctx, venueID, actor); err != nil {
		return model.MenuItem{}, err
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)
	if err := item.Validate(); err != nil {
		return model.MenuItem{}, err
	}
	item.VenueID = venueID

	if item.ID == 0 {
		if err := m.menu.Create(ctx, &item); err != nil {
			return model.MenuItem{}, err
		}
		m.log.Info("menu item created", "venue_id", venueID, "item_id", item.ID)
		return item, nil
	}

	existing, err := m.menu.GetByID(ctx, item.ID)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %d: %w", item.ID, err)
	}
	if existing.VenueID != venueID {
		return model.MenuItem{}, fmt.Errorf("menu item %d: %w", item.ID, model.ErrNotFound)
	}
	if err := m.menu.Update(ctx, &item); err != nil {
		return model.MenuItem{}, err
	}
	return item, nil
}

// UpdateMenuItem edits an item addressed only by its id.
func (m *VenueManagement) UpdateMenuItem(ctx context.Context, item model.MenuItem, actor model.Principal) (model.MenuItem, error) {
	if err := requireSignedIn(actor); err != nil {
		return model.MenuItem{}, err
	}
	existing, err := m.menu.GetByID(ctx, item.ID)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %d: %w", item.ID, err)
	}
	return m.UpsertMenuItem(ctx, existing.VenueID, item, actor)
}

func (m *VenueManagement) DeleteMenuItem(ctx context.Context, itemID uint64, actor model.Principal) error {
	if err := requireSignedIn(actor); err != nil {
		return err
	}
	item, err := m.menu.GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("menu item %d: %w", itemID, err)
	}
	if _, err := m.authorizeVenue(ctx, item.VenueID, actor); err != nil {
		return err
	}
	if err := m.menu.Delete(ctx, itemID); err != nil {
		return err
	}
	m.log.Info("menu item deleted", "venue_id", item.VenueID, "item_id", itemID)
	return nil
}

// DeleteVenue removes a venue for good. Pending reservations at the venue
// are cancelled and reported in a venue.deleted event.
func (m *VenueManagement) DeleteVenue(ctx context.Context, venueID uint64, admin model.Principal) ([]uint64, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	v, err := m.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("venue %d: %w", venueID, err)
	}
	cancelled, err := m.venues.Delete(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		cancelled = []uint64{}
	}
	publish(ctx, m.events, m.log, queue.VenueDeletedEvent{
		VenueID:                 venueID,
		VenueName:               v.Name,
		DeletedBy:               admin.ID,
		CancelledReservationIDs: cancelled,
		DeletedAt:               time.Now().UTC().Format(time.RFC3339),
	})
	m.log.Info("venue deleted", "venue_id", venueID, "cancelled", len(cancelled), "actor", admin.ID)
	return cancelled, nil
}

// AssignManager makes the user identified by emailOrID a manager of the
// venue. Customers are promoted to the manager role; assigning twice is a
// no-op.
func (m *VenueManagement) AssignManager(ctx context.Context, venueID uint64, emailOrID string, admin model.Principal) (model.ManagerAssignment, error) {
	if err := requireAdmin(admin); err != nil {
		return model.ManagerAssignment{}, err
	}
	u, err := m.resolveUser(ctx, emailOrID)
	if err != nil {
		return model.ManagerAssignment{}, err
	}
	if _, err := m.venues.GetByID(ctx, venueID); err != nil {
		return model.ManagerAssignment{}, fmt.Errorf("venue %d: %w", venueID, err)
	}
	if u.Role == model.RoleCustomer || u.Role == model.RoleGuest {
		if err := m.users.PromoteToManager(ctx, u.ID); err != nil {
			return model.ManagerAssignment{}, err
		}
	}
	if err := m.venues.AddManager(ctx, venueID, u.ID); err != nil {
		return model.ManagerAssignment{}, err
	}
	m.log.Info("manager assigned", "venue_id", venueID, "user_id", u.ID, "actor", admin.ID)
	return model.ManagerAssignment{UserID: u.ID, VenueID: venueID}, nil
}

func (m *VenueManagement) resolveUser(ctx context.Context, emailOrID string) (model.User, error) {
	key := strings.TrimSpace(emailOrID)
	if key == "" {
		return model.User{}, fmt.Errorf("%w: email or user id is required", model.ErrInvalidInput)
	}
	var (
		u   model.User
		err error
	)
	if id, perr := strconv.ParseUint(key, 10, 64); perr == nil {
		u, err = m.users.GetByID(ctx, id)
	} else {
		u, err = m.users.GetByEmail(ctx, strings.ToLower(key))
	}
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("%q: %w", key, model.ErrUserNotFound)
	}
	return u, err
}

// ManagedVenues lists venues p manages; admins get every venue.
func (m *VenueManagement) ManagedVenues(ctx context.Context, p model.Principal) ([]model.Venue, error) {
	if err := requireSignedIn(p); err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return m.venues.List(ctx, model.VenueFilter{})
	}
	return m.venues.ListByManager(ctx, p.ID)
}
