package model

import (
	"fmt"
	"strings"
	"time"
)

// ReservationKind selects which fields a reservation must carry.
type ReservationKind uint8

const (
	KindTableOnly ReservationKind = iota + 1
	KindPickupOnly
	KindTableWithPreorder
)

func (k ReservationKind) String() string {
	switch k {
	case KindTableOnly:
		return "table_only"
	case KindPickupOnly:
		return "pickup_only"
	case KindTableWithPreorder:
		return "table_with_preorder"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseReservationKind also accepts the action names used by the venue
// page: reservation, pickup and reservation_preorder.
func ParseReservationKind(s string) (ReservationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table_only", "reservation":
		return KindTableOnly, nil
	case "pickup_only", "pickup":
		return KindPickupOnly, nil
	case "table_with_preorder", "reservation_preorder":
		return KindTableWithPreorder, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidReservationRequest, s)
}

func (k ReservationKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ReservationKind) UnmarshalText(b []byte) error {
	v, err := ParseReservationKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// NeedsTable reports whether the kind seats a party.
func (k ReservationKind) NeedsTable() bool { return k == KindTableOnly || k == KindTableWithPreorder }

// NeedsItems reports whether the kind carries a pre-order.
func (k ReservationKind) NeedsItems() bool { return k == KindPickupOnly || k == KindTableWithPreorder }

// Reservation is a customer's table booking, pickup order, or both.
type Reservation struct {
	ID                uint64          `json:"id"`
	VenueID           uint64          `json:"venue_id"`
	CustomerID        uint64          `json:"customer_id"`
	Kind              ReservationKind `json:"kind"`
	DateTime          time.Time       `json:"date_time"`
	PartySize         int             `json:"party_size,omitempty"`
	PreorderedItemIDs []uint64        `json:"preordered_item_ids"`
	Status            Status          `json:"status"`
	ContactName       string          `json:"contact_name,omitempty"`
	Comment           string          `json:"comment,omitempty"`
	DecidedBy         *uint64         `json:"decided_by,omitempty"`
	DecidedAt         *time.Time      `json:"decided_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ReservationPartition splits a venue's reservations for display.
type ReservationPartition struct {
	Pending []Reservation `json:"pending"`
	History []Reservation `json:"history"`
}
