package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket statuses. The column is a free string by convention, not a closed
// enum: companies may introduce their own workflow states.
const (
	StatusPending    = "En attente"
	StatusInProgress = "En cours"
	StatusDone       = "Terminé"
)

// DefaultType is stored when a ticket is created without an explicit type.
const DefaultType = "Non spécifié"

// Ticket is the central entity: one intervention/work request.
type Ticket struct {
	ID          string `gorm:"primaryKey;size:36"`
	Title       string `gorm:"not null;index"`
	Description string
	Status      string `gorm:"not null;default:'En attente';index"`
	Type        string
	Priority    string
	AssignedTo  string // nom du technicien assigné
	CreatedBy   uint   `gorm:"not null;index"` // FK vers User
	Creator     User   `gorm:"foreignKey:CreatedBy"`
	GroupID     string `gorm:"size:8;index"` // FK vers Group, optionnel
	FormData    string // blob JSON sérialisé (champs dynamiques + valeurs)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeCreate assigns the UUID identifier. The 36-char form matters: the
// access gate matches on 8..35-char prefixes and on the full value.
func (t *Ticket) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ShortRef returns the 8-char reference shown to visitors and used in
// exported file names.
func (t *Ticket) ShortRef() string {
	if len(t.ID) < 8 {
		return t.ID
	}
	return t.ID[:8]
}
