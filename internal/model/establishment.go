package model

import (
	"time"

	"github.com/google/uuid"
)

// Establishment is reference data identifying the business that owns the
// registers. Read by the closure document header; not mutated by this core.
type Establishment struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name    string    `gorm:"not null"`
	TaxID   string    `gorm:"type:varchar(20);not null"`
	Address *string
	// LogoRef is an opaque reference resolved by the frontend/renderer
	LogoRef   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CashRegister identifies a physical register. Immutable reference data.
type CashRegister struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name            string    `gorm:"not null"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time
}
