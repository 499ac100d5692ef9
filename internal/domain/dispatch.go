package domain

import "time"

// DispatchState tracks the delivery state machine for one (update,
// recipient) pair: PENDING -> SENT, or PENDING -> FAILED_RETRYABLE ->
// PENDING (retry) -> ... -> FAILED_TERMINAL.
type DispatchState string

const (
	DispatchStatePending         DispatchState = "PENDING"
	DispatchStateSent            DispatchState = "SENT"
	DispatchStateFailedRetryable DispatchState = "FAILED_RETRYABLE"
	DispatchStateFailedTerminal  DispatchState = "FAILED_TERMINAL"
)

// Resolved reports whether the state machine has reached a terminal state.
func (s DispatchState) Resolved() bool {
	return s == DispatchStateSent || s == DispatchStateFailedTerminal
}

// Recipient is one party eligible for a notification about an update.
type Recipient struct {
	Handle  string
	Address string
	Kind    SubjectType
}

// DispatchOutcome is the durable record of one (update, recipient)
// delivery attempt chain. It is written PENDING before the first
// transport call so a crash mid-send retries instead of losing the
// notification, and it is the dedup check that keeps repeated Dispatch
// invocations from sending twice.
type DispatchOutcome struct {
	ID        string
	UpdateID  string
	Recipient Recipient
	State     DispatchState
	Attempts  int
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingDispatch joins an unresolved outcome with the ledger data needed
// to rebuild its notification after a restart.
type PendingDispatch struct {
	Outcome       DispatchOutcome
	Update        Update
	TicketSubject string
}
