package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"easypos/internal/ledger"
)

// ─── Closure document ────────────────────────────────────────────────────────

// EstablishmentInfo is the identity block rendered on closure documents.
type EstablishmentInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Address string `json:"address,omitempty"`
	LogoRef string `json:"logo_ref,omitempty"`
}

// ClosureRenderData is everything the artifact renderer needs. It is also
// serialized verbatim as the document's frozen metadata snapshot, so the
// record stays meaningful even if the source rows change later.
type ClosureRenderData struct {
	Establishment  EstablishmentInfo       `json:"establishment"`
	DocumentNumber int64                   `json:"document_number"`
	SessionID      string                  `json:"session_id"`
	ClosureSeq     int                     `json:"closure_seq"`
	RegisterName   string                  `json:"register_name"`
	OperatorName   string                  `json:"operator_name"`
	OpenedAt       time.Time               `json:"opened_at"`
	ClosedAt       time.Time               `json:"closed_at"`
	Summary        ledger.FinancialSummary `json:"summary"`
	Classification string                  `json:"classification"`
	Counts         []CountLineResponse     `json:"counts"`
	CountsTotal    decimal.Decimal         `json:"counts_total"`
	Notes          string                  `json:"notes,omitempty"`
}

type ClosureDocumentResponse struct {
	ID               string `json:"id"`
	CashSessionID    string `json:"cash_session_id"`
	DocumentNumber   int64  `json:"document_number"`
	GeneratedBy      string `json:"generated_by"`
	GeneratedAt      string `json:"generated_at"`
	ArtifactLocation string `json:"artifact_location"`
	Hash             string `json:"hash"`
	DownloadCount    int64  `json:"download_count"`
}

type VerifyDocumentResponse struct {
	DocumentID   string `json:"document_id"`
	StoredHash   string `json:"stored_hash"`
	ComputedHash string `json:"computed_hash"`
	Valid        bool   `json:"valid"`
}

// ─── Closure history ─────────────────────────────────────────────────────────

// HistoryFilter narrows the closure history query. Classification is a
// derived value and therefore post-filtered, not pushed into SQL.
type HistoryFilter struct {
	From           *time.Time
	To             *time.Time
	OperatorID     *string
	RegisterID     *string
	Classification *string
	Page           int
	Limit          int
}

// ClosureSummary is one row of the closure history list. DocumentNumber is
// looked up opportunistically; sessions without a generated document carry
// the fallback label.
type ClosureSummary struct {
	SessionID         string          `json:"session_id"`
	RegisterID        string          `json:"register_id"`
	OperatorID        string          `json:"operator_id"`
	ClosedAt          string          `json:"closed_at"`
	ExpectedCash      decimal.Decimal `json:"expected_cash"`
	CountedAmount     decimal.Decimal `json:"counted_amount"`
	Difference        decimal.Decimal `json:"difference"`
	DifferencePercent decimal.Decimal `json:"difference_percent"`
	Classification    string          `json:"classification"`
	DocumentLabel     string          `json:"document_label"`
}

// HistoryStatistics aggregates over the whole matched set, not the page.
type HistoryStatistics struct {
	Total         int             `json:"total"`
	Normal        int             `json:"normal"`
	Warning       int             `json:"warning"`
	Alert         int             `json:"alert"`
	DifferenceSum decimal.Decimal `json:"difference_sum"`
}

type HistoryPage struct {
	Data       []ClosureSummary  `json:"data"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Statistics HistoryStatistics `json:"statistics"`
}

// ClosureDetails is the full reconstruction of one closed session.
type ClosureDetails struct {
	Session      SessionResponse          `json:"session"`
	Summary      ledger.FinancialSummary  `json:"summary"`
	Transactions []TransactionResponse    `json:"transactions"`
	Counts       []CountLineResponse      `json:"counts"`
	Document     *ClosureDocumentResponse `json:"document,omitempty"`
}
