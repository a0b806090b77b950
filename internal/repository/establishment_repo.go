package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"easypos/internal/model"
)

// EstablishmentDirectory resolves establishment identity for closure
// document headers.
type EstablishmentDirectory interface {
	Create(ctx context.Context, e *model.Establishment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Establishment, error)
}

type establishmentRepo struct{ db *gorm.DB }

func NewEstablishmentDirectory(db *gorm.DB) EstablishmentDirectory {
	return &establishmentRepo{db: db}
}

func (r *establishmentRepo) Create(ctx context.Context, e *model.Establishment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *establishmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Establishment, error) {
	var e model.Establishment
	err := r.db.WithContext(ctx).First(&e, id).Error
	return &e, err
}
