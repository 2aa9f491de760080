package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state shared by venue requests and reservations.
// Only pending is non-terminal; transitions never leave a terminal state.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusApproved
	StatusDeclined
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusDeclined:
		return "declined"
	case StatusRejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s != StatusPending }

// ParseStatus is strict: the stored vocabulary is lower-case only, and an
// unknown value is an error rather than a silently ignored row.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "declined":
		return StatusDeclined, nil
	case "rejected":
		return StatusRejected, nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

func (s Status) MarshalText() ([]byte, error) {
	if s < StatusPending || s > StatusRejected {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Decision is the verdict applied to a pending entity.
type Decision uint8

const (
	DecisionApprove Decision = iota + 1
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	}
	return fmt.Sprintf("decision(%d)", uint8(d))
}

// ParseDecision maps the verbs used by the different front-end pages onto a
// Decision. Both the imperative and past-tense forms are accepted, and
// "decline" is a synonym of reject.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected", "decline", "declined":
		return DecisionReject, nil
	}
	return 0, fmt.Errorf("%w: unrecognized decision %q", ErrInvalidTransition, s)
}

// StatusFor returns the terminal status the decision produces for kind.
func (d Decision) StatusFor(kind EntityKind) (Status, error) {
	switch d {
	case DecisionApprove:
		return StatusApproved, nil
	case DecisionReject:
		switch kind {
		case EntityVenueRequest:
			return StatusRejected, nil
		case EntityReservation:
			return StatusDeclined, nil
		}
		return 0, fmt.Errorf("%w: unknown entity kind %s", ErrInvalidTransition, kind)
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidTransition, d)
}

// EntityKind names an entity that goes through the approval workflow.
type EntityKind uint8

const (
	EntityVenueRequest EntityKind = iota + 1
	EntityReservation
)

func (k EntityKind) String() string {
	switch k {
	case EntityVenueRequest:
		return "venue_request"
	case EntityReservation:
		return "reservation"
	}
	return fmt.Sprintf("entity(%d)", uint8(k))
}

func (k EntityKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EntityKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "venue_request":
		*k = EntityVenueRequest
	case "reservation":
		*k = EntityReservation
	default:
		return fmt.Errorf("unknown entity kind %q", b)
	}
	return nil
}
