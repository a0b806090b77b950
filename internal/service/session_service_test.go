package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/ledger"
	"easypos/internal/model"
	"easypos/internal/repository"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── In-memory SessionRepository ───────────────────────────────────────────────

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*model.CashSession
	txs      []model.CashTransaction
	counts   []model.CashCount
	// openErr, when set, is returned by Open before any write
	openErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*model.CashSession)}
}

func (r *fakeSessionRepo) Open(_ context.Context, s *model.CashSession, opening *model.CashTransaction) error {
	if r.openErr != nil {
		return r.openErr
	}
	// Mirrors the partial unique index on open-equivalent sessions
	for _, existing := range r.sessions {
		if existing.CashRegisterID == s.CashRegisterID && existing.IsOpenEquivalent() {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	opening.SessionID = s.ID
	return r.CreateTransaction(context.Background(), opening)
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	s.Transactions = nil
	for _, tx := range r.txs {
		if tx.SessionID == id {
			s.Transactions = append(s.Transactions, tx)
		}
	}
	s.Counts = nil
	for _, c := range r.counts {
		if c.SessionID == id {
			s.Counts = append(s.Counts, c)
		}
	}
	return s, nil
}

func (r *fakeSessionRepo) FindOpenByRegister(_ context.Context, registerID uuid.UUID) (*model.CashSession, error) {
	for _, s := range r.sessions {
		if s.CashRegisterID == registerID && s.IsOpenEquivalent() {
			return s, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeSessionRepo) FindOpenByOperator(_ context.Context, operatorID uuid.UUID) (*model.CashSession, error) {
	for _, s := range r.sessions {
		if s.OperatorID == operatorID && s.IsOpenEquivalent() {
			return s, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeSessionRepo) Update(_ context.Context, s *model.CashSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) Close(_ context.Context, s *model.CashSession, closing *model.CashTransaction, counts []model.CashCount) error {
	r.sessions[s.ID] = s
	if err := r.CreateTransaction(context.Background(), closing); err != nil {
		return err
	}
	r.counts = append(r.counts, counts...)
	return nil
}

func (r *fakeSessionRepo) CreateTransaction(_ context.Context, t *model.CashTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	r.txs = append(r.txs, *t)
	return nil
}

func (r *fakeSessionRepo) ListTransactions(_ context.Context, sessionID uuid.UUID) ([]model.CashTransaction, error) {
	var result []model.CashTransaction
	for _, tx := range r.txs {
		if tx.SessionID == sessionID {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (r *fakeSessionRepo) ListCounts(_ context.Context, sessionID uuid.UUID) ([]model.CashCount, error) {
	var result []model.CashCount
	for _, c := range r.counts {
		if c.SessionID == sessionID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *fakeSessionRepo) ListClosed(_ context.Context, q repository.HistoryQuery) ([]model.CashSession, error) {
	var result []model.CashSession
	for _, s := range r.sessions {
		if s.Status != model.SessionClosed {
			continue
		}
		if q.From != nil && s.ClosedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && s.ClosedAt.After(*q.To) {
			continue
		}
		if q.OperatorID != nil && s.OperatorID != *q.OperatorID {
			continue
		}
		if q.RegisterID != nil && s.CashRegisterID != *q.RegisterID {
			continue
		}
		snapshot := *s
		snapshot.Transactions, _ = r.ListTransactions(context.Background(), s.ID)
		result = append(result, snapshot)
	}
	return result, nil
}

// ── In-memory RegisterRepository ──────────────────────────────────────────────

type fakeRegisterRepo struct {
	registers map[uuid.UUID]*model.CashRegister
}

func newFakeRegisterRepo() *fakeRegisterRepo {
	return &fakeRegisterRepo{registers: make(map[uuid.UUID]*model.CashRegister)}
}

func (r *fakeRegisterRepo) Create(_ context.Context, reg *model.CashRegister) error {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	r.registers[reg.ID] = reg
	return nil
}

func (r *fakeRegisterRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashRegister, error) {
	reg, ok := r.registers[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return reg, nil
}

func (r *fakeRegisterRepo) ListByEstablishment(_ context.Context, establishmentID uuid.UUID) ([]model.CashRegister, error) {
	var result []model.CashRegister
	for _, reg := range r.registers {
		if reg.EstablishmentID == establishmentID {
			result = append(result, *reg)
		}
	}
	return result, nil
}

// ── Fixtures ──────────────────────────────────────────────────────────────────

func testConfig() SessionConfig {
	return SessionConfig{
		OpeningMin: d("50.00"),
		OpeningMax: d("500.00"),
		Thresholds: ledger.DefaultThresholds(),
	}
}

func newTestSessionService() (SessionService, *fakeSessionRepo, uuid.UUID) {
	repo := newFakeSessionRepo()
	registers := newFakeRegisterRepo()
	register := &model.CashRegister{EstablishmentID: uuid.New(), Name: "Register 1", Active: true}
	_ = registers.Create(context.Background(), register)
	return NewSessionService(repo, registers, testConfig()), repo, register.ID
}

func openSession(t *testing.T, svc SessionService, registerID uuid.UUID, operatorID uuid.UUID, amount string) *dto.SessionResponse {
	t.Helper()
	resp, err := svc.Open(context.Background(), operatorID, dto.OpenSessionRequest{
		CashRegisterID: registerID.String(),
		OpeningAmount:  d(amount),
	})
	require.NoError(t, err)
	return resp
}

func kindOf(t *testing.T, err error) apierror.Kind {
	t.Helper()
	var fault *apierror.Fault
	require.ErrorAs(t, err, &fault)
	return fault.Kind
}

// ── Open ──────────────────────────────────────────────────────────────────────

func TestOpenRejectsAmountOutsideRange(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()

	for _, amount := range []string{"49.99", "500.01", "0.00"} {
		_, err := svc.Open(context.Background(), operator, dto.OpenSessionRequest{
			CashRegisterID: registerID.String(),
			OpeningAmount:  d(amount),
		})
		assert.Equal(t, apierror.KindInvalidOpeningAmount, kindOf(t, err), "amount %s", amount)
	}
}

func TestOpenAcceptsRangeEndpoints(t *testing.T) {
	operator := uuid.New()
	for _, amount := range []string{"50.00", "500.00"} {
		svc, _, registerID := newTestSessionService()
		resp := openSession(t, svc, registerID, operator, amount)
		assert.Equal(t, model.SessionOpen, resp.Status)
	}
}

func TestOpenRejectsUnknownRegister(t *testing.T) {
	svc, _, _ := newTestSessionService()
	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenSessionRequest{
		CashRegisterID: uuid.NewString(),
		OpeningAmount:  d("100.00"),
	})
	assert.Equal(t, apierror.KindRegisterNotFound, kindOf(t, err))
}

func TestOpenRejectsSecondSessionOnRegister(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	openSession(t, svc, registerID, uuid.New(), "100.00")

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenSessionRequest{
		CashRegisterID: registerID.String(),
		OpeningAmount:  d("100.00"),
	})
	assert.Equal(t, apierror.KindRegisterAlreadyOpen, kindOf(t, err))
}

func TestOpenMapsUniqueViolationToAlreadyOpen(t *testing.T) {
	// The pre-check can race a concurrent open; losing at the index still
	// reads as "already open"
	svc, repo, registerID := newTestSessionService()
	repo.openErr = errors.New(`duplicate key value violates unique constraint "uni_open_session_per_register"`)

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenSessionRequest{
		CashRegisterID: registerID.String(),
		OpeningAmount:  d("100.00"),
	})
	assert.Equal(t, apierror.KindRegisterAlreadyOpen, kindOf(t, err))
}

func TestOpenSurfacesStorageFailures(t *testing.T) {
	svc, repo, registerID := newTestSessionService()
	repo.openErr = errors.New("connection refused")

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenSessionRequest{
		CashRegisterID: registerID.String(),
		OpeningAmount:  d("100.00"),
	})
	require.Error(t, err)
	var fault *apierror.Fault
	assert.False(t, errors.As(err, &fault), "outage must not masquerade as a state fault: %v", err)
}

func TestOpenAppendsOpeningEntry(t *testing.T) {
	svc, repo, registerID := newTestSessionService()
	resp := openSession(t, svc, registerID, uuid.New(), "100.00")

	sessionID := uuid.MustParse(resp.ID)
	txs, _ := repo.ListTransactions(context.Background(), sessionID)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxOpening, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(d("100.00")))
}

// ── Ledger entries ────────────────────────────────────────────────────────────

func TestRecordSaleOnClosedSessionFails(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	_, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("100.00"),
	})
	require.NoError(t, err)

	err = svc.RecordSale(context.Background(), operator, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: model.PayCash,
		Amount:        d("10.00"),
		Description:   "order 123",
	})
	assert.Equal(t, apierror.KindSessionNotOpen, kindOf(t, err))
}

func TestWithdrawalCannotExceedAccumulatedCash(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	require.NoError(t, svc.RecordSale(context.Background(), operator, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: model.PayCash,
		Amount:        d("50.00"),
		Description:   "order 123",
	}))

	// The opening float is untouchable: only the 50 beyond it may leave
	err := svc.RecordWithdrawal(context.Background(), operator, dto.CashMovementRequest{
		SessionID: resp.ID,
		Amount:    d("60.00"),
		Reason:    "bank deposit",
	})
	assert.Equal(t, apierror.KindInsufficientWithdrawal, kindOf(t, err))

	require.NoError(t, svc.RecordWithdrawal(context.Background(), operator, dto.CashMovementRequest{
		SessionID: resp.ID,
		Amount:    d("50.00"),
		Reason:    "bank deposit",
	}))

	// Drawer is back at the float; even one cent more must be refused
	err = svc.RecordWithdrawal(context.Background(), operator, dto.CashMovementRequest{
		SessionID: resp.ID,
		Amount:    d("0.01"),
		Reason:    "petty cash",
	})
	assert.Equal(t, apierror.KindInsufficientWithdrawal, kindOf(t, err))
}

func TestCardSalesDoNotFundWithdrawals(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	require.NoError(t, svc.RecordSale(context.Background(), operator, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: model.PayCredit,
		Amount:        d("500.00"),
		Description:   "order 124",
	}))

	err := svc.RecordWithdrawal(context.Background(), operator, dto.CashMovementRequest{
		SessionID: resp.ID,
		Amount:    d("10.00"),
		Reason:    "bank deposit",
	})
	assert.Equal(t, apierror.KindInsufficientWithdrawal, kindOf(t, err))
}

func TestMovementRejectsShortReason(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	err := svc.RecordSupply(context.Background(), operator, dto.CashMovementRequest{
		SessionID: resp.ID,
		Amount:    d("10.00"),
		Reason:    "ok  ",
	})
	assert.Equal(t, apierror.KindReasonTooShort, kindOf(t, err))
}

// ── Close ─────────────────────────────────────────────────────────────────────

func TestCloseComputesSummaryAndClassifies(t *testing.T) {
	svc, repo, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	require.NoError(t, svc.RecordSale(context.Background(), operator, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: model.PayCash,
		Amount:        d("50.00"),
		Description:   "order 125",
	}))

	// Expected 150, counted 145 → difference −5, −3.33% → alert
	closed, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("145.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionClosed, closed.Status)
	require.NotNil(t, closed.ExpectedAmount)
	assert.True(t, closed.ExpectedAmount.Equal(d("150.00")))
	assert.True(t, closed.Difference.Equal(d("-5.00")))
	assert.True(t, closed.DifferencePercent.Equal(d("-3.33")))
	assert.Equal(t, ledger.ClassAlert, *closed.Classification)
	assert.NotNil(t, closed.ClosedAt)

	// Closing entry appended; ledger now opening + sale + closing
	txs, _ := repo.ListTransactions(context.Background(), uuid.MustParse(resp.ID))
	require.Len(t, txs, 3)
	assert.Equal(t, model.TxClosing, txs[2].Type)
}

func TestCloseValidatesCountLines(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	// Line total disagrees with denomination × quantity
	_, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("100.00"),
		Counts: []dto.CountLineRequest{
			{Denomination: d("20.00"), Quantity: 5, Total: d("90.00")},
		},
	})
	assert.Equal(t, apierror.KindInvalidCountLine, kindOf(t, err))

	// Lines reconcile individually but not with the declared total
	_, err = svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("100.00"),
		Counts: []dto.CountLineRequest{
			{Denomination: d("20.00"), Quantity: 4, Total: d("80.00")},
		},
	})
	assert.Equal(t, apierror.KindInvalidCountLine, kindOf(t, err))
}

func TestCloseWithCountLines(t *testing.T) {
	svc, repo, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	closed, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("100.00"),
		Counts: []dto.CountLineRequest{
			{Denomination: d("20.00"), Quantity: 4, Total: d("80.00")},
			{Denomination: d("10.00"), Quantity: 2, Total: d("20.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.ClassNormal, *closed.Classification)

	counts, _ := repo.ListCounts(context.Background(), uuid.MustParse(resp.ID))
	assert.Len(t, counts, 2)
}

// ── Custody handoff ───────────────────────────────────────────────────────────

func TestTransferReceiveFlow(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	receiver := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")

	transferred, err := svc.Transfer(context.Background(), dto.TransferSessionRequest{SessionID: resp.ID})
	require.NoError(t, err)
	assert.Equal(t, model.SessionTransferred, transferred.Status)

	// While in transfer the session accepts no entries
	err = svc.RecordSale(context.Background(), operator, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: model.PayCash,
		Amount:        d("10.00"),
		Description:   "order 126",
	})
	assert.Equal(t, apierror.KindSessionNotOpen, kindOf(t, err))

	received, err := svc.Receive(context.Background(), receiver, dto.TransferSessionRequest{SessionID: resp.ID})
	require.NoError(t, err)
	assert.Equal(t, model.SessionReceived, received.Status)
	assert.Equal(t, receiver.String(), received.OperatorID)

	// Custody passed; the new operator's entries land in the same ledger
	require.NoError(t, svc.RecordSale(context.Background(), receiver, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: model.PayCash,
		Amount:        d("10.00"),
		Description:   "order 127",
	}))
}

func TestReceiveRequiresTransferredStatus(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	resp := openSession(t, svc, registerID, uuid.New(), "100.00")

	_, err := svc.Receive(context.Background(), uuid.New(), dto.TransferSessionRequest{SessionID: resp.ID})
	assert.Equal(t, apierror.KindSessionNotOpen, kindOf(t, err))
}

// ── Reopen ────────────────────────────────────────────────────────────────────

func TestReopenOnlyClosedSessions(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	supervisor := uuid.New()
	resp := openSession(t, svc, registerID, uuid.New(), "100.00")

	_, err := svc.Reopen(context.Background(), supervisor, dto.ReopenSessionRequest{
		SessionID:     resp.ID,
		Justification: "count was wrong",
	})
	assert.Equal(t, apierror.KindSessionMustBeClosed, kindOf(t, err))
}

func TestReopenRequiresJustification(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")
	_, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("100.00"),
	})
	require.NoError(t, err)

	_, err = svc.Reopen(context.Background(), uuid.New(), dto.ReopenSessionRequest{
		SessionID:     resp.ID,
		Justification: "  no ",
	})
	assert.Equal(t, apierror.KindReasonTooShort, kindOf(t, err))
}

func TestReopenAndRecloseStartsNewClosureCycle(t *testing.T) {
	svc, repo, registerID := newTestSessionService()
	operator := uuid.New()
	resp := openSession(t, svc, registerID, operator, "100.00")
	sessionID := uuid.MustParse(resp.ID)

	_, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.sessions[sessionID].ClosureSeq)

	reopened, err := svc.Reopen(context.Background(), uuid.New(), dto.ReopenSessionRequest{
		SessionID:     resp.ID,
		Justification: "missed a supply entry",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionReopened, reopened.Status)
	require.NotNil(t, reopened.Notes)
	assert.Contains(t, *reopened.Notes, "missed a supply entry")

	require.NoError(t, svc.RecordSupply(context.Background(), operator, dto.CashMovementRequest{
		SessionID: resp.ID,
		Amount:    d("25.00"),
		Reason:    "change fund top-up",
	}))

	reclosed, err := svc.Close(context.Background(), operator, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("125.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.ClassNormal, *reclosed.Classification)
	assert.Equal(t, 2, repo.sessions[sessionID].ClosureSeq)
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func TestActiveReturnsNilWithoutSession(t *testing.T) {
	svc, _, _ := newTestSessionService()
	resp, err := svc.Active(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestActiveFindsOperatorSession(t *testing.T) {
	svc, _, registerID := newTestSessionService()
	operator := uuid.New()
	opened := openSession(t, svc, registerID, operator, "100.00")

	resp, err := svc.Active(context.Background(), operator)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, opened.ID, resp.ID)
}
