package model

import (
	"time"

	"github.com/google/uuid"
)

// ClosureDocument is the immutable, hashed snapshot produced for one closure
// cycle of a session. Written exactly once per (session, closure_seq); the
// only permitted post-creation mutation is the download counter.
type ClosureDocument struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashSessionID uuid.UUID `gorm:"type:uuid;not null;index"`
	// ClosureSeq ties the document to one closure cycle of the session.
	// Unique (cash_session_id, closure_seq) — see infra schema patches.
	ClosureSeq      int       `gorm:"not null"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	// DocumentNumber is sequential per establishment, assigned under a
	// serialized counter increment
	DocumentNumber int64     `gorm:"not null"`
	GeneratedBy    uuid.UUID `gorm:"type:uuid;not null"`
	GeneratedAt    time.Time
	// ArtifactLocation is the opaque artifact-store reference of the render
	ArtifactLocation string `gorm:"not null"`
	// Hash is the SHA-256 hex digest of the artifact bytes — re-hashing the
	// stored artifact must reproduce it exactly
	Hash string `gorm:"type:varchar(64);not null"`
	// Metadata is the frozen JSON snapshot of session/financials/counts/
	// establishment at generation time
	Metadata      string `gorm:"type:jsonb;not null"`
	DownloadCount int64  `gorm:"not null;default:0"`
	CreatedAt     time.Time
}

// DocumentCounter backs per-establishment sequential numbering. Rows are
// advanced with a single serialized upsert so two concurrent closures can
// never receive the same number.
type DocumentCounter struct {
	EstablishmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastNumber      int64     `gorm:"not null;default:0"`
	UpdatedAt       time.Time
}
