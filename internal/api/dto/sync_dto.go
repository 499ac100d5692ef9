package dto

// UpsertTicketRequest mirrors the upstream ticket fields the engine keeps.
type UpsertTicketRequest struct {
	Subject      string `json:"subject"`
	PlayerHandle string `json:"player_handle"`
	PlayerEmail  string `json:"player_email"`
}

// UpsertStaffContactRequest maintains the staff directory.
type UpsertStaffContactRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
