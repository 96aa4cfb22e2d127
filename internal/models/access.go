package models

import "time"

// AccessGrant authorizes an unauthenticated visitor to view and fill one
// ticket's intervention form. Grants are server-issued and expire; the
// visitor holds only a signed cookie carrying the token.
type AccessGrant struct {
	ID          uint   `gorm:"primaryKey"`
	Token       string `gorm:"unique;not null;index"`
	TicketID    string `gorm:"not null;size:36;index"`
	Ticket      Ticket `gorm:"foreignKey:TicketID"`
	FirstName   string `gorm:"not null"`
	LastName    string `gorm:"not null"`
	CompanyName string `gorm:"not null"`
	AccessedAt  time.Time
	ExpiresAt   time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the grant is past its validity window.
func (g *AccessGrant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}
