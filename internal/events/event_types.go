package events

import (
	"time"

	"github.com/spec-kit/ticket-notify/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReplyAdded        EventType = "reply_added"
	EventSubscriberAdded   EventType = "subscriber_added"
	EventSubscriberRemoved EventType = "subscriber_removed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   domain.SubjectType `json:"type"`
	Handle string             `json:"handle"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReplyAddedPayload carries the ledger entry for a new reply. The
// notification engine consumes it to resolve recipients and enqueue
// dispatch; publication happens after the ledger write has succeeded.
type ReplyAddedPayload struct {
	Update domain.Update `json:"update"`
}

// SubscriberAddedPayload payload.
type SubscriberAddedPayload struct {
	StaffHandle string `json:"staff_handle"`
	Implicit    bool   `json:"implicit"`
}

// SubscriberRemovedPayload payload.
type SubscriberRemovedPayload struct {
	StaffHandle string `json:"staff_handle"`
}
