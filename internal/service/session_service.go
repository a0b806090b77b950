package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/ledger"
	"easypos/internal/model"
	"easypos/internal/repository"
)

// SessionConfig carries the business tunables of the lifecycle manager.
type SessionConfig struct {
	OpeningMin decimal.Decimal
	OpeningMax decimal.Decimal
	Thresholds ledger.Thresholds
}

// SessionService enforces the session state machine and guards the
// append-only transaction ledger. Every illegal transition is a typed
// fault, never a silent no-op.
type SessionService interface {
	Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	RecordSale(ctx context.Context, userID uuid.UUID, req dto.RecordSaleRequest) error
	RecordWithdrawal(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) error
	RecordSupply(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) error
	Close(ctx context.Context, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error)
	Transfer(ctx context.Context, req dto.TransferSessionRequest) (*dto.SessionResponse, error)
	Receive(ctx context.Context, receiverID uuid.UUID, req dto.TransferSessionRequest) (*dto.SessionResponse, error)
	Reopen(ctx context.Context, userID uuid.UUID, req dto.ReopenSessionRequest) (*dto.SessionResponse, error)
	Active(ctx context.Context, operatorID uuid.UUID) (*dto.SessionResponse, error)
	Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	registers repository.RegisterRepository
	cfg       SessionConfig
}

func NewSessionService(repo repository.SessionRepository, registers repository.RegisterRepository, cfg SessionConfig) SessionService {
	return &sessionService{repo: repo, registers: registers, cfg: cfg}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *sessionService) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	registerID, err := uuid.Parse(req.CashRegisterID)
	if err != nil {
		return nil, apierror.New(apierror.KindInvalidInput, "invalid cash_register_id: %s", req.CashRegisterID)
	}
	if _, err := s.registers.FindByID(ctx, registerID); err != nil {
		return nil, apierror.New(apierror.KindRegisterNotFound, "cash register %s not found", registerID)
	}

	if req.OpeningAmount.LessThan(s.cfg.OpeningMin) || req.OpeningAmount.GreaterThan(s.cfg.OpeningMax) {
		return nil, apierror.New(apierror.KindInvalidOpeningAmount,
			"opening amount %s outside admissible range [%s, %s]",
			req.OpeningAmount.StringFixed(2), s.cfg.OpeningMin.StringFixed(2), s.cfg.OpeningMax.StringFixed(2))
	}

	// Guard: at most one open-equivalent session per register. The partial
	// unique index closes the race this pre-check leaves open.
	if existing, err := s.repo.FindOpenByRegister(ctx, registerID); err == nil && existing != nil {
		return nil, apierror.New(apierror.KindRegisterAlreadyOpen,
			"register %s already has session %s in status %s", registerID, existing.ID, existing.Status)
	}

	session := &model.CashSession{
		CashRegisterID: registerID,
		OperatorID:     operatorID,
		OpeningAmount:  req.OpeningAmount,
		Status:         model.SessionOpen,
		Notes:          req.Notes,
		OpenedAt:       time.Now(),
	}
	opening := &model.CashTransaction{
		Type:        model.TxOpening,
		Amount:      req.OpeningAmount,
		Description: "session opening float",
		UserID:      operatorID,
	}
	if err := s.repo.Open(ctx, session, opening); err != nil {
		// The partial unique index is the authoritative guard; losing that
		// race is the only error that means "already open"
		if isUniqueViolation(err) {
			return nil, apierror.New(apierror.KindRegisterAlreadyOpen,
				"register %s already has an open session", registerID)
		}
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("register_id", registerID.String()).
		Str("operator_id", operatorID.String()).
		Str("opening_amount", req.OpeningAmount.StringFixed(2)).
		Msg("cash session opened")

	return buildSessionResponse(session), nil
}

// ── Ledger entries ────────────────────────────────────────────────────────────
// Entries are immutable: the repository exposes no update or delete, and
// corrections only ever append adjustment entries.

func (s *sessionService) RecordSale(ctx context.Context, userID uuid.UUID, req dto.RecordSaleRequest) error {
	session, err := s.loadOpen(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return apierror.New(apierror.KindInvalidInput, "sale amount must be positive")
	}

	var saleID *uuid.UUID
	if req.SaleID != nil {
		id, err := uuid.Parse(*req.SaleID)
		if err != nil {
			return apierror.New(apierror.KindInvalidInput, "invalid sale_id: %s", *req.SaleID)
		}
		saleID = &id
	}

	method := req.PaymentMethod
	return s.repo.CreateTransaction(ctx, &model.CashTransaction{
		SessionID:     session.ID,
		Type:          model.TxSale,
		PaymentMethod: &method,
		Amount:        req.Amount,
		Description:   req.Description,
		SaleID:        saleID,
		UserID:        userID,
	})
}

func (s *sessionService) RecordWithdrawal(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) error {
	session, err := s.loadOpen(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if err := validReason(req.Reason); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return apierror.New(apierror.KindInvalidInput, "withdrawal amount must be positive")
	}

	// You cannot withdraw more than has accumulated beyond the float.
	withdrawable := ledger.WithdrawableBalance(session.OpeningAmount, session.Transactions)
	if req.Amount.GreaterThan(withdrawable) {
		return apierror.New(apierror.KindInsufficientWithdrawal,
			"withdrawal of %s exceeds withdrawable balance %s",
			req.Amount.StringFixed(2), withdrawable.StringFixed(2))
	}

	err = s.repo.CreateTransaction(ctx, &model.CashTransaction{
		SessionID:   session.ID,
		Type:        model.TxWithdrawal,
		Amount:      req.Amount,
		Description: req.Reason,
		UserID:      userID,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("withdrawal recorded")
	return nil
}

func (s *sessionService) RecordSupply(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) error {
	session, err := s.loadOpen(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if err := validReason(req.Reason); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return apierror.New(apierror.KindInvalidInput, "supply amount must be positive")
	}

	err = s.repo.CreateTransaction(ctx, &model.CashTransaction{
		SessionID:   session.ID,
		Type:        model.TxSupply,
		Amount:      req.Amount,
		Description: req.Reason,
		UserID:      userID,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("supply recorded")
	return nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Close(ctx context.Context, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.loadOpen(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	counts, err := buildCounts(session.ID, req.Counts, req.CountedAmount)
	if err != nil {
		return nil, err
	}

	summary := ledger.Summarize(session.OpeningAmount, session.Transactions, req.CountedAmount)
	classification := ledger.Classify(summary.DifferencePercent, s.cfg.Thresholds)

	now := time.Now()
	expected := summary.ExpectedCash
	counted := req.CountedAmount
	difference := summary.Difference
	pct := summary.DifferencePercent
	session.ExpectedAmount = &expected
	session.CountedAmount = &counted
	session.Difference = &difference
	session.DifferencePercent = &pct
	session.Classification = &classification
	session.Status = model.SessionClosed
	session.ClosedAt = &now
	session.ClosureSeq++
	for i := range counts {
		counts[i].ClosureSeq = session.ClosureSeq
	}
	if req.Notes != nil {
		session.Notes = req.Notes
	}

	closing := &model.CashTransaction{
		SessionID:   session.ID,
		Type:        model.TxClosing,
		Amount:      req.CountedAmount,
		Description: "session closing count",
		UserID:      userID,
	}
	if err := s.repo.Close(ctx, session, closing, counts); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("expected_cash", expected.StringFixed(2)).
		Str("counted_amount", counted.StringFixed(2)).
		Str("difference", difference.StringFixed(2)).
		Str("classification", classification).
		Int("closure_seq", session.ClosureSeq).
		Msg("cash session closed")

	return buildSessionResponse(session), nil
}

// ── Custody handoff ───────────────────────────────────────────────────────────
// Transfer/receive pass custody between operators without a count; the
// ledger continues unbroken under the same session id.

func (s *sessionService) Transfer(ctx context.Context, req dto.TransferSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.loadOpen(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	session.Status = model.SessionTransferred
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", session.ID.String()).Msg("cash session transferred")
	return buildSessionResponse(session), nil
}

func (s *sessionService) Receive(ctx context.Context, receiverID uuid.UUID, req dto.TransferSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionTransferred {
		return nil, apierror.StateFault(apierror.KindSessionNotOpen, model.SessionTransferred, session.Status)
	}
	session.Status = model.SessionReceived
	session.OperatorID = receiverID
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", session.ID.String()).
		Str("receiver_id", receiverID.String()).
		Msg("cash session received")
	return buildSessionResponse(session), nil
}

// ── Reopen ────────────────────────────────────────────────────────────────────

// Reopen is the audited exception path for a closed session. It never
// touches prior ledger entries or an existing closure document; a later
// re-close starts a fresh closure cycle with its own document.
func (s *sessionService) Reopen(ctx context.Context, userID uuid.UUID, req dto.ReopenSessionRequest) (*dto.SessionResponse, error) {
	if len(strings.TrimSpace(req.Justification)) < minReasonLen {
		return nil, apierror.New(apierror.KindReasonTooShort,
			"reopen justification must be at least %d characters", minReasonLen)
	}
	session, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionClosed {
		return nil, apierror.StateFault(apierror.KindSessionMustBeClosed, model.SessionClosed, session.Status)
	}

	session.Status = model.SessionReopened
	note := "reopened: " + req.Justification
	if session.Notes != nil && *session.Notes != "" {
		note = *session.Notes + "\n" + note
	}
	session.Notes = &note
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	log.Warn().
		Str("session_id", session.ID.String()).
		Str("user_id", userID.String()).
		Str("justification", req.Justification).
		Msg("closed cash session reopened")

	return buildSessionResponse(session), nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Active(ctx context.Context, operatorID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.repo.FindOpenByOperator(ctx, operatorID)
	if err != nil || session == nil {
		return nil, nil
	}
	return buildSessionResponse(session), nil
}

func (s *sessionService) Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apierror.New(apierror.KindSessionNotFound, "session %s not found", sessionID)
	}
	return buildSessionResponse(session), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

const minReasonLen = 5

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key value")
}

func validReason(reason string) error {
	if len(strings.TrimSpace(reason)) < minReasonLen {
		return apierror.New(apierror.KindReasonTooShort,
			"reason must be at least %d characters", minReasonLen)
	}
	return nil
}

func (s *sessionService) load(ctx context.Context, rawID string) (*model.CashSession, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apierror.New(apierror.KindInvalidInput, "invalid session_id: %s", rawID)
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.New(apierror.KindSessionNotFound, "session %s not found", id)
	}
	return session, nil
}

func (s *sessionService) loadOpen(ctx context.Context, rawID string) (*model.CashSession, error) {
	session, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpenEquivalent() {
		return nil, apierror.StateFault(apierror.KindSessionNotOpen, model.SessionOpen, session.Status)
	}
	return session, nil
}

// buildCounts validates the denomination lines: each total must equal
// denomination × quantity and, when lines are supplied, their grand total
// must match the declared counted amount.
func buildCounts(sessionID uuid.UUID, lines []dto.CountLineRequest, countedAmount decimal.Decimal) ([]model.CashCount, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	counts := make([]model.CashCount, 0, len(lines))
	sum := decimal.Zero
	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, apierror.New(apierror.KindInvalidCountLine,
				"count quantity for denomination %s is negative", line.Denomination.StringFixed(2))
		}
		expected := line.Denomination.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if !line.Total.Equal(expected) {
			return nil, apierror.New(apierror.KindInvalidCountLine,
				"count line %s x%d: total %s does not equal %s",
				line.Denomination.StringFixed(2), line.Quantity,
				line.Total.StringFixed(2), expected.StringFixed(2))
		}
		sum = sum.Add(line.Total)
		counts = append(counts, model.CashCount{
			SessionID:    sessionID,
			Denomination: line.Denomination,
			Quantity:     line.Quantity,
			Total:        line.Total,
		})
	}
	if !sum.Equal(countedAmount) {
		return nil, apierror.New(apierror.KindInvalidCountLine,
			"count lines sum to %s but counted amount is %s",
			sum.StringFixed(2), countedAmount.StringFixed(2))
	}
	return counts, nil
}

func buildSessionResponse(s *model.CashSession) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:                s.ID.String(),
		CashRegisterID:    s.CashRegisterID.String(),
		OperatorID:        s.OperatorID.String(),
		Status:            s.Status,
		OpeningAmount:     s.OpeningAmount,
		ExpectedAmount:    s.ExpectedAmount,
		CountedAmount:     s.CountedAmount,
		Difference:        s.Difference,
		DifferencePercent: s.DifferencePercent,
		Classification:    s.Classification,
		Notes:             s.Notes,
		OpenedAt:          s.OpenedAt.UTC().Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.UTC().Format(time.RFC3339)
		resp.ClosedAt = &t
	}
	return resp
}
