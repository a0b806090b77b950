package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"easypos/internal/model"
)

type RegisterRepository interface {
	Create(ctx context.Context, r *model.CashRegister) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]model.CashRegister, error)
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) Create(ctx context.Context, reg *model.CashRegister) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *registerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	err := r.db.WithContext(ctx).First(&reg, id).Error
	return &reg, err
}

func (r *registerRepo) ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]model.CashRegister, error) {
	var regs []model.CashRegister
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND active", establishmentID).
		Order("name ASC").
		Find(&regs).Error
	return regs, err
}
