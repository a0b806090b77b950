package model

import (
	"time"

	"github.com/google/uuid"
)

// User stores back-office users with role-based access.
// Role: "operator" | "supervisor" | "admin"
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	// EstablishmentID scopes the user to one establishment
	EstablishmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
