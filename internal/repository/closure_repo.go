package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"easypos/internal/model"
)

type ClosureRepository interface {
	// FindBySessionAndSeq returns (nil, nil) when no document exists for
	// that closure cycle — the generator's idempotency probe.
	FindBySessionAndSeq(ctx context.Context, sessionID uuid.UUID, seq int) (*model.ClosureDocument, error)
	// FindLatestBySession returns the highest-sequence document of a session.
	FindLatestBySession(ctx context.Context, sessionID uuid.UUID) (*model.ClosureDocument, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.ClosureDocument, error)
	// CreateWithNumber advances the per-establishment counter, hands the
	// drawn number to build (which renders and assembles the document),
	// and inserts the result — all in one transaction. The counter upsert
	// is serialized by the row lock, so concurrent closures can never draw
	// the same number; any build error or unique-index violation from a
	// concurrent generate for the same cycle rolls everything back,
	// leaving no partial document row.
	CreateWithNumber(ctx context.Context, establishmentID uuid.UUID, build func(number int64) (*model.ClosureDocument, error)) (*model.ClosureDocument, error)
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) error
}

type closureRepo struct{ db *gorm.DB }

func NewClosureRepository(db *gorm.DB) ClosureRepository { return &closureRepo{db: db} }

func (r *closureRepo) FindBySessionAndSeq(ctx context.Context, sessionID uuid.UUID, seq int) (*model.ClosureDocument, error) {
	var doc model.ClosureDocument
	err := r.db.WithContext(ctx).
		Where("cash_session_id = ? AND closure_seq = ?", sessionID, seq).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *closureRepo) FindLatestBySession(ctx context.Context, sessionID uuid.UUID) (*model.ClosureDocument, error) {
	var doc model.ClosureDocument
	err := r.db.WithContext(ctx).
		Where("cash_session_id = ?", sessionID).
		Order("closure_seq DESC").
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *closureRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ClosureDocument, error) {
	var doc model.ClosureDocument
	err := r.db.WithContext(ctx).First(&doc, id).Error
	return &doc, err
}

func (r *closureRepo) CreateWithNumber(ctx context.Context, establishmentID uuid.UUID, build func(number int64) (*model.ClosureDocument, error)) (*model.ClosureDocument, error) {
	var doc *model.ClosureDocument
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int64
		err := tx.Raw(`
			INSERT INTO document_counters (establishment_id, last_number, updated_at)
			VALUES (?, 1, NOW())
			ON CONFLICT (establishment_id)
			DO UPDATE SET last_number = document_counters.last_number + 1, updated_at = NOW()
			RETURNING last_number`, establishmentID).Scan(&next).Error
		if err != nil {
			return err
		}
		doc, err = build(next)
		if err != nil {
			return err
		}
		return tx.Create(doc).Error
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *closureRepo) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.ClosureDocument{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}
