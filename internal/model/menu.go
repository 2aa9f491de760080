package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MenuItem is a dish offered by exactly one venue. Prices are kept in
// integer cents; the JSON price is expressed in currency units.
type MenuItem struct {
	ID          uint64 `json:"id"`
	VenueID     uint64 `json:"venue_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
}

// Price returns the price in currency units.
func (m MenuItem) Price() float64 { return float64(m.PriceCents) / 100 }

// MarshalJSON adds the decimal "price" next to price_cents.
func (m MenuItem) MarshalJSON() ([]byte, error) {
	type plain MenuItem
	return json.Marshal(struct {
		plain
		Price float64 `json:"price"`
	}{plain(m), m.Price()})
}

// Validate enforces a non-empty name and a non-negative price.
func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMenuItem)
	}
	if m.PriceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidMenuItem)
	}
	return nil
}

// PriceToCents converts a decimal price to cents, rounding half away from
// zero. NaN, infinities and negative values are rejected.
func PriceToCents(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price is not a number", ErrInvalidMenuItem)
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: price must not be negative", ErrInvalidMenuItem)
	}
	if price > math.MaxInt64/100 {
		return 0, fmt.Errorf("%w: price too large", ErrInvalidMenuItem)
	}
	return int64(math.Round(price * 100)), nil
}
