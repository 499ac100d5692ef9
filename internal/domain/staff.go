package domain

import "time"

// StaffContact maps a staff handle to a deliverable address. The engine
// keeps this directory only to render and address notifications; staff
// accounts themselves live in the upstream system.
type StaffContact struct {
	Handle      string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}
