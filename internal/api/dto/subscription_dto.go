package dto

// SubscriptionStatusResponse reports one staff member's subscription state.
type SubscriptionStatusResponse struct {
	TicketID   string `json:"ticket_id"`
	Subscribed bool   `json:"subscribed"`
}

// SubscribersResponse lists a ticket's active subscribers.
type SubscribersResponse struct {
	TicketID    string   `json:"ticket_id"`
	Subscribers []string `json:"subscribers"`
}
