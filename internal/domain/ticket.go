package domain

import "time"

// Ticket is the engine's reference copy of an upstream support ticket.
// The CRUD system owns the authoritative record; the engine only needs
// identity, the subject line for notification rendering, and the player
// contact for eligibility.
type Ticket struct {
	ID           string
	Subject      string
	PlayerHandle string
	PlayerEmail  string
	CreatedAt    time.Time
}
