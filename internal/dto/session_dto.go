package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	CashRegisterID string          `json:"cash_register_id" validate:"required,uuid"`
	OpeningAmount  decimal.Decimal `json:"opening_amount"   validate:"required"`
	Notes          *string         `json:"notes"`
}

// RecordSaleRequest appends a sale ledger entry from the upstream order flow.
// Amounts arrive already computed.
type RecordSaleRequest struct {
	SessionID     string          `json:"session_id"     validate:"required,uuid"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash debit credit pix voucher other"`
	Amount        decimal.Decimal `json:"amount"         validate:"required"`
	Description   string          `json:"description"    validate:"required,min=3"`
	SaleID        *string         `json:"sale_id"        validate:"omitempty,uuid"`
}

// CashMovementRequest records a withdrawal or supply. Reason is mandatory —
// the minimum length guards against "ok"-grade audit trails.
type CashMovementRequest struct {
	SessionID string          `json:"session_id" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"     validate:"required"`
	Reason    string          `json:"reason"     validate:"required,min=5"`
}

type CountLineRequest struct {
	Denomination decimal.Decimal `json:"denomination" validate:"required"`
	Quantity     int             `json:"quantity"     validate:"min=0"`
	Total        decimal.Decimal `json:"total"        validate:"required"`
}

type CloseSessionRequest struct {
	SessionID     string             `json:"session_id"     validate:"required,uuid"`
	CountedAmount decimal.Decimal    `json:"counted_amount" validate:"required"`
	Counts        []CountLineRequest `json:"counts"         validate:"dive"`
	Notes         *string            `json:"notes"`
}

type ReopenSessionRequest struct {
	SessionID     string `json:"session_id"    validate:"required,uuid"`
	Justification string `json:"justification" validate:"required,min=5"`
}

type TransferSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TransactionResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	SaleID        *string         `json:"sale_id,omitempty"`
	UserID        string          `json:"user_id"`
	CreatedAt     string          `json:"created_at"`
}

type CountLineResponse struct {
	Denomination decimal.Decimal `json:"denomination"`
	Quantity     int             `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
}

type SessionResponse struct {
	ID                string           `json:"id"`
	CashRegisterID    string           `json:"cash_register_id"`
	OperatorID        string           `json:"operator_id"`
	Status            string           `json:"status"`
	OpeningAmount     decimal.Decimal  `json:"opening_amount"`
	ExpectedAmount    *decimal.Decimal `json:"expected_amount,omitempty"`
	CountedAmount     *decimal.Decimal `json:"counted_amount,omitempty"`
	Difference        *decimal.Decimal `json:"difference,omitempty"`
	DifferencePercent *decimal.Decimal `json:"difference_percent,omitempty"`
	Classification    *string          `json:"classification,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	OpenedAt          string           `json:"opened_at"`
	ClosedAt          *string          `json:"closed_at,omitempty"`
}
