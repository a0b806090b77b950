package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"easypos/internal/model"
)

// HistoryQuery is the SQL-pushable part of a closure history filter.
// Classification is derived from the ledger and filtered in the service.
type HistoryQuery struct {
	From       *time.Time
	To         *time.Time
	OperatorID *uuid.UUID
	RegisterID *uuid.UUID
}

type SessionRepository interface {
	// Open inserts the session and its opening ledger entry in one
	// transaction. The partial unique index on open-equivalent sessions
	// makes concurrent opens for one register fail here, not race.
	Open(ctx context.Context, s *model.CashSession, opening *model.CashTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashSession, error)
	FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*model.CashSession, error)
	Update(ctx context.Context, s *model.CashSession) error
	// Close persists the session's closing figures, the closing ledger
	// entry and the denomination counts in one transaction.
	Close(ctx context.Context, s *model.CashSession, closing *model.CashTransaction, counts []model.CashCount) error
	CreateTransaction(ctx context.Context, t *model.CashTransaction) error
	ListTransactions(ctx context.Context, sessionID uuid.UUID) ([]model.CashTransaction, error)
	ListCounts(ctx context.Context, sessionID uuid.UUID) ([]model.CashCount, error)
	// ListClosed returns every closed session matching the query, ledger
	// preloaded, newest first. The service derives classification and
	// paginates after post-filtering.
	ListClosed(ctx context.Context, q HistoryQuery) ([]model.CashSession, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Open(ctx context.Context, s *model.CashSession, opening *model.CashTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		opening.SessionID = s.ID
		return tx.Create(opening).Error
	})
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Counts").
		First(&s, id).Error
	return &s, err
}

func (r *sessionRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("cash_register_id = ? AND status IN ?", registerID,
			[]string{model.SessionOpen, model.SessionReceived, model.SessionReopened}).
		First(&s).Error
	return &s, err
}

func (r *sessionRepo) FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("operator_id = ? AND status IN ?", operatorID,
			[]string{model.SessionOpen, model.SessionReceived, model.SessionReopened}).
		First(&s).Error
	return &s, err
}

func (r *sessionRepo) Update(ctx context.Context, s *model.CashSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) Close(ctx context.Context, s *model.CashSession, closing *model.CashTransaction, counts []model.CashCount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(s).Error; err != nil {
			return err
		}
		if err := tx.Create(closing).Error; err != nil {
			return err
		}
		if len(counts) > 0 {
			if err := tx.Create(&counts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sessionRepo) CreateTransaction(ctx context.Context, t *model.CashTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *sessionRepo) ListTransactions(ctx context.Context, sessionID uuid.UUID) ([]model.CashTransaction, error) {
	var txs []model.CashTransaction
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

func (r *sessionRepo) ListCounts(ctx context.Context, sessionID uuid.UUID) ([]model.CashCount, error) {
	var counts []model.CashCount
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("denomination DESC").
		Find(&counts).Error
	return counts, err
}

func (r *sessionRepo) ListClosed(ctx context.Context, q HistoryQuery) ([]model.CashSession, error) {
	query := r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("status = ?", model.SessionClosed)

	if q.From != nil {
		query = query.Where("closed_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("closed_at <= ?", *q.To)
	}
	if q.OperatorID != nil {
		query = query.Where("operator_id = ?", *q.OperatorID)
	}
	if q.RegisterID != nil {
		query = query.Where("cash_register_id = ?", *q.RegisterID)
	}

	var sessions []model.CashSession
	err := query.Order("closed_at DESC").Find(&sessions).Error
	return sessions, err
}
