// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and the background consumer.
package queue

// Event is a payload that can be published. EventType doubles as the queue
// name and the routing key on the default exchange.
type Event interface {
	EventType() string
}

const (
	DecisionMadeQueue = "decision.made"
	VenueDeletedQueue = "venue.deleted"
)

// DecisionMadeEvent is published after a pending venue request or
// reservation reaches a terminal status. It carries enough context for
// downstream consumers to notify the requester without querying the
// primary database.
type DecisionMadeEvent struct {
	EntityKind string `json:"entity_kind"`
	EntityID   uint64 `json:"entity_id"`
	Status     string `json:"status"`
	DecidedBy  uint64 `json:"decided_by"`
	SubjectID  uint64 `json:"subject_id"` // requester or customer
	VenueID    uint64 `json:"venue_id,omitempty"`
	VenueName  string `json:"venue_name,omitempty"`
	DecidedAt  string `json:"decided_at"`
}

func (DecisionMadeEvent) EventType() string { return DecisionMadeQueue }

// VenueDeletedEvent is published after an administrator removes a venue.
// CancelledReservationIDs lists the pending reservations dropped with it.
type VenueDeletedEvent struct {
	VenueID                 uint64   `json:"venue_id"`
	VenueName               string   `json:"venue_name"`
	DeletedBy               uint64   `json:"deleted_by"`
	CancelledReservationIDs []uint64 `json:"cancelled_reservation_ids"`
	DeletedAt               string   `json:"deleted_at"`
}

func (VenueDeletedEvent) EventType() string { return VenueDeletedQueue }
