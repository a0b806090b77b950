package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session status values. A session is "open-equivalent" (accepts ledger
// entries and may be closed) while open, received or reopened.
const (
	SessionOpen        = "open"
	SessionClosed      = "closed"
	SessionTransferred = "transferred"
	SessionReceived    = "received"
	SessionReopened    = "reopened"
)

// Transaction types. OPENING and CLOSING bracket the shift; ADJUSTMENT
// entries are audit corrections and never enter the balance arithmetic.
const (
	TxSale       = "sale"
	TxWithdrawal = "withdrawal"
	TxSupply     = "supply"
	TxOpening    = "opening"
	TxClosing    = "closing"
	TxAdjustment = "adjustment"
)

// Payment methods, meaningful only for sale entries.
const (
	PayCash    = "cash"
	PayDebit   = "debit"
	PayCredit  = "credit"
	PayPix     = "pix"
	PayVoucher = "voucher"
	PayOther   = "other"
)

// CashSession is one operator's custody of one register for one shift.
// Expected/counted/difference stay nil until the session is closed.
type CashSession struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashRegisterID uuid.UUID       `gorm:"type:uuid;not null;index"`
	OperatorID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	OpeningAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ExpectedAmount is computed on close from the transaction ledger
	ExpectedAmount    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedAmount     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DifferencePercent *decimal.Decimal `gorm:"type:decimal(7,2)"`
	// Classification: "normal" | "warning" | "alert"
	Classification *string `gorm:"type:varchar(20)"`
	Status         string  `gorm:"type:varchar(20);not null;default:'open'"`
	// ClosureSeq counts closure cycles; it increments on every close so a
	// reopened-and-reclosed session gets its own closure document.
	ClosureSeq int     `gorm:"not null;default:0"`
	Notes      *string
	OpenedAt   time.Time
	ClosedAt   *time.Time

	Transactions []CashTransaction `gorm:"foreignKey:SessionID"`
	Counts       []CashCount       `gorm:"foreignKey:SessionID"`
}

// IsOpenEquivalent reports whether the session still accepts ledger entries.
func (s *CashSession) IsOpenEquivalent() bool {
	switch s.Status {
	case SessionOpen, SessionReceived, SessionReopened:
		return true
	}
	return false
}

// CashTransaction is an immutable entry in the session ledger.
// Entries are NEVER updated or deleted — corrections insert adjustment
// entries. Amounts are stored positive; the type carries the sign semantics.
type CashTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null"`
	Type      string    `gorm:"type:varchar(20);not null"`
	// PaymentMethod is required for sale entries, nil otherwise
	PaymentMethod *string         `gorm:"type:varchar(20)"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description   string          `gorm:"not null"`
	// SaleID links back to the originating upstream sale, when any
	SaleID    *uuid.UUID `gorm:"type:uuid"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// CashCount is one denomination line of the physical count at closing.
// Total must equal Denomination × Quantity on write.
type CashCount struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null"`
	// ClosureSeq ties the line to the closure cycle that counted it; a
	// reopened-and-reclosed session keeps both tallies, each under its own
	// cycle
	ClosureSeq   int             `gorm:"not null;default:0"`
	Denomination decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity     int             `gorm:"not null"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time
}
