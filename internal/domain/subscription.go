package domain

import "time"

// Subscription records one staff member's interest in one ticket.
// At most one record exists per (ticket, staff) pair; re-subscribing
// reactivates the existing record instead of creating a duplicate.
// Records are never deleted, only flipped inactive.
type Subscription struct {
	ID             string
	TicketID       string
	StaffHandle    string
	Active         bool
	SubscribedAt   time.Time
	UnsubscribedAt *time.Time
}
