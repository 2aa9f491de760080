package model

import (
	"fmt"
	"strings"
	"time"
)

// VenueType tells restaurants and cafes apart in the directory. The zero
// value means unset: drafts default it to restaurant, filters treat it as
// any type.
type VenueType uint8

const (
	VenueRestaurant VenueType = iota + 1
	VenueCafe
)

func (t VenueType) String() string {
	switch t {
	case VenueRestaurant:
		return "restaurant"
	case VenueCafe:
		return "cafe"
	}
	return ""
}

// ParseVenueType is case-insensitive so the directory's "Restaurant" and
// "Cafe" labels are accepted as-is. An empty string is the zero value.
func ParseVenueType(s string) (VenueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "restaurant":
		return VenueRestaurant, nil
	case "cafe":
		return VenueCafe, nil
	}
	return 0, fmt.Errorf("%w: unknown venue type %q", ErrInvalidInput, s)
}

func (t VenueType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *VenueType) UnmarshalText(b []byte) error {
	v, err := ParseVenueType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// VenueProfile holds the fields a manager may replace on an existing venue.
type VenueProfile struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Address     string `json:"address" validate:"max=512"`
	Phone       string `json:"phone" validate:"max=64"`
	ImageRef    string `json:"image_url" validate:"max=1024"`
	OpenTime    string `json:"open_time" validate:"max=16"`
	CloseTime   string `json:"close_time" validate:"max=16"`
}

// Normalize trims surrounding whitespace from every field.
func (p VenueProfile) Normalize() VenueProfile {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Address = strings.TrimSpace(p.Address)
	p.Phone = strings.TrimSpace(p.Phone)
	p.ImageRef = strings.TrimSpace(p.ImageRef)
	p.OpenTime = strings.TrimSpace(p.OpenTime)
	p.CloseTime = strings.TrimSpace(p.CloseTime)
	return p
}

// VenueDraft is the proposed venue carried by a creation request.
type VenueDraft struct {
	VenueProfile
	Type    VenueType `json:"type"`
	Cuisine string    `json:"cuisine" validate:"max=128"`
}

func (d VenueDraft) Normalize() VenueDraft {
	d.VenueProfile = d.VenueProfile.Normalize()
	d.Cuisine = strings.TrimSpace(d.Cuisine)
	if d.Type == 0 {
		d.Type = VenueRestaurant
	}
	return d
}

// Venue is a restaurant or cafe listed in the directory. ManagerIDs is
// sorted ascending and never contains duplicates.
type Venue struct {
	ID uint64 `json:"id"`
	VenueProfile
	Type       VenueType `json:"type"`
	Cuisine    string    `json:"cuisine"`
	Rating     float64   `json:"rating"`
	ManagerIDs []uint64  `json:"manager_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FromDraft builds the venue materialized by an approved request.
func FromDraft(d VenueDraft) Venue {
	return Venue{VenueProfile: d.VenueProfile, Type: d.Type, Cuisine: d.Cuisine, ManagerIDs: []uint64{}}
}

// IsManagedBy reports whether userID is in the venue's manager set.
func (v Venue) IsManagedBy(userID uint64) bool {
	if userID == 0 {
		return false
	}
	for _, id := range v.ManagerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// VenueFilter narrows directory listings. Empty fields match everything.
type VenueFilter struct {
	Name    string    // case-insensitive substring
	Type    VenueType // zero matches every type
	Cuisine string    // case-insensitive exact match
}

// Matches applies the filter to a single venue.
func (f VenueFilter) Matches(v Venue) bool {
	if f.Type != 0 && f.Type != v.Type {
		return false
	}
	if f.Cuisine != "" && !strings.EqualFold(strings.TrimSpace(f.Cuisine), v.Cuisine) {
		return false
	}
	if n := strings.ToLower(strings.TrimSpace(f.Name)); n != "" && !strings.Contains(strings.ToLower(v.Name), n) {
		return false
	}
	return true
}

// VenueRequest asks an administrator to create a new venue.
type VenueRequest struct {
	ID          uint64     `json:"id"`
	RequesterID uint64     `json:"requester_id"`
	Draft       VenueDraft `json:"proposed_venue"`
	Status      Status     `json:"status"`
	VenueID     *uint64    `json:"venue_id,omitempty"`
	DecidedBy   *uint64    `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ManagerAssignment links a manager to a venue.
type ManagerAssignment struct {
	UserID  uint64 `json:"user_id"`
	VenueID uint64 `json:"venue_id"`
}
