package model

import "github.com/google/uuid"

type EventKind string

const (
	EventUserRegistered  EventKind = "user_registered"
	EventRequestCreated  EventKind = "request_created"
	EventRequestApproved EventKind = "request_approved"
	EventRequestRejected EventKind = "request_rejected"
	EventBonusCredited   EventKind = "bonus_credited"
	EventBonusClaimed    EventKind = "bonus_claimed"
)

// Event is emitted exactly once per committed state transition. Delivery is
// fire-and-forget; the ledger never blocks on a subscriber.
type Event struct {
	UserID uuid.UUID `json:"user_id"`
	Kind   EventKind `json:"kind"`
	Amount int64     `json:"amount,omitempty"`
	Reason string    `json:"reason,omitempty"`
}
