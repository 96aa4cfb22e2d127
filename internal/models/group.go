package models

import "time"

// Group is an optional organizational tag for tickets. Groups live in the
// shared database alongside tickets so that a ticket's group reference
// resolves from any session or device.
type Group struct {
	ID        string `gorm:"primaryKey;size:8"` // code court, ex: "A1B2C3D4"
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
