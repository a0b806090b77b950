package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/ledger"
	"easypos/internal/model"
	"easypos/internal/repository"
)

// HistoryService is the read model over closed sessions. Both operations
// are strictly read-only: they derive summaries from the ledger and never
// touch session, transaction or document state.
type HistoryService interface {
	List(ctx context.Context, filter dto.HistoryFilter) (*dto.HistoryPage, error)
	Details(ctx context.Context, sessionID uuid.UUID) (*dto.ClosureDetails, error)
}

type historyService struct {
	sessions   repository.SessionRepository
	closures   repository.ClosureRepository
	thresholds ledger.Thresholds
}

func NewHistoryService(sessions repository.SessionRepository, closures repository.ClosureRepository, thresholds ledger.Thresholds) HistoryService {
	return &historyService{sessions: sessions, closures: closures, thresholds: thresholds}
}

func (s *historyService) List(ctx context.Context, filter dto.HistoryFilter) (*dto.HistoryPage, error) {
	q := repository.HistoryQuery{From: filter.From, To: filter.To}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apierror.New(apierror.KindInvalidInput, "date range end precedes start")
	}
	if filter.OperatorID != nil {
		id, err := uuid.Parse(*filter.OperatorID)
		if err != nil {
			return nil, apierror.New(apierror.KindInvalidInput, "invalid operator id: %s", *filter.OperatorID)
		}
		q.OperatorID = &id
	}
	if filter.RegisterID != nil {
		id, err := uuid.Parse(*filter.RegisterID)
		if err != nil {
			return nil, apierror.New(apierror.KindInvalidInput, "invalid register id: %s", *filter.RegisterID)
		}
		q.RegisterID = &id
	}

	sessions, err := s.sessions.ListClosed(ctx, q)
	if err != nil {
		return nil, err
	}

	// Classification is derived, not a queryable column — summarize every
	// matched session, then post-filter by tier.
	summaries := make([]dto.ClosureSummary, 0, len(sessions))
	stats := dto.HistoryStatistics{}
	for i := range sessions {
		sess := &sessions[i]
		summary := s.summarize(ctx, sess)

		// Statistics describe the whole matched set — neither the page
		// slice nor the tier filter narrows them
		stats.Total++
		switch summary.Classification {
		case ledger.ClassNormal:
			stats.Normal++
		case ledger.ClassWarning:
			stats.Warning++
		case ledger.ClassAlert:
			stats.Alert++
		}
		stats.DifferenceSum = stats.DifferenceSum.Add(summary.Difference)

		if filter.Classification != nil && summary.Classification != *filter.Classification {
			continue
		}
		summaries = append(summaries, summary)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	start := (page - 1) * limit
	var data []dto.ClosureSummary
	if start < len(summaries) {
		end := start + limit
		if end > len(summaries) {
			end = len(summaries)
		}
		data = summaries[start:end]
	}

	return &dto.HistoryPage{Data: data, Page: page, Limit: limit, Statistics: stats}, nil
}

func (s *historyService) Details(ctx context.Context, sessionID uuid.UUID) (*dto.ClosureDetails, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apierror.New(apierror.KindSessionNotFound, "session %s not found", sessionID)
	}

	counted := decimal.Zero
	if session.CountedAmount != nil {
		counted = *session.CountedAmount
	}
	summary := ledger.Summarize(session.OpeningAmount, session.Transactions, counted)

	txs := make([]dto.TransactionResponse, len(session.Transactions))
	for i, t := range session.Transactions {
		txs[i] = dto.TransactionResponse{
			ID:            t.ID.String(),
			Type:          t.Type,
			PaymentMethod: t.PaymentMethod,
			Amount:        t.Amount,
			Description:   t.Description,
			UserID:        t.UserID.String(),
			CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.SaleID != nil {
			id := t.SaleID.String()
			txs[i].SaleID = &id
		}
	}

	// Counts from the latest closure cycle only; superseded tallies stay in
	// their own cycle's document
	counts := make([]dto.CountLineResponse, 0, len(session.Counts))
	for _, c := range session.Counts {
		if c.ClosureSeq != session.ClosureSeq {
			continue
		}
		counts = append(counts, dto.CountLineResponse{Denomination: c.Denomination, Quantity: c.Quantity, Total: c.Total})
	}

	details := &dto.ClosureDetails{
		Session:      *buildSessionResponse(session),
		Summary:      summary,
		Transactions: txs,
		Counts:       counts,
	}
	if doc, err := s.closures.FindLatestBySession(ctx, sessionID); err == nil {
		details.Document = buildClosureResponse(doc)
	}
	return details, nil
}

// summarize builds one history row, preferring the figures persisted at
// close time and falling back to a fresh ledger reduction for legacy rows.
func (s *historyService) summarize(ctx context.Context, sess *model.CashSession) dto.ClosureSummary {
	counted := decimal.Zero
	if sess.CountedAmount != nil {
		counted = *sess.CountedAmount
	}
	summary := ledger.Summarize(sess.OpeningAmount, sess.Transactions, counted)
	classification := ledger.Classify(summary.DifferencePercent, s.thresholds)

	closedAt := ""
	if sess.ClosedAt != nil {
		closedAt = sess.ClosedAt.UTC().Format(time.RFC3339)
	}

	// Document number is looked up opportunistically; sessions closed
	// without a generated document still appear.
	label := "pending"
	if doc, err := s.closures.FindLatestBySession(ctx, sess.ID); err == nil {
		label = fmt.Sprintf("#%06d", doc.DocumentNumber)
	}

	return dto.ClosureSummary{
		SessionID:         sess.ID.String(),
		RegisterID:        sess.CashRegisterID.String(),
		OperatorID:        sess.OperatorID.String(),
		ClosedAt:          closedAt,
		ExpectedCash:      summary.ExpectedCash,
		CountedAmount:     counted,
		Difference:        summary.Difference,
		DifferencePercent: summary.DifferencePercent,
		Classification:    classification,
		DocumentLabel:     label,
	}
}
