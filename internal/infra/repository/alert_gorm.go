package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type alertGormRepository struct {
	db *gorm.DB
}

func NewAlertGormRepository(db *gorm.DB) repo.AlertRepository {
	return &alertGormRepository{db: db}
}

func (r *alertGormRepository) Create(ctx context.Context, a model.ReconciliationAlert) error {
	if err := r.db.WithContext(ctx).Create(&a).Error; err != nil {
		return err
	}
	return nil
}

func (r *alertGormRepository) List(ctx context.Context, limit int, offset int) ([]model.ReconciliationAlert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var alerts []model.ReconciliationAlert
	err := r.db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&alerts).Error
	if err != nil {
		return []model.ReconciliationAlert{}, err
	}
	return alerts, nil
}
