package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type PopularProductGormRepository struct {
	db *gorm.DB
}

func NewPopularProductGormRepository(db *gorm.DB) *PopularProductGormRepository {
	return &PopularProductGormRepository{db: db}
}

func (r *PopularProductGormRepository) FindByProductID(ctx context.Context, productID int64) (model.PopularProduct, bool, error) {
	var p model.PopularProduct
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PopularProduct{}, false, nil
	}
	if err != nil {
		return model.PopularProduct{}, false, err
	}
	return p, true, nil
}

func (r *PopularProductGormRepository) Create(ctx context.Context, p model.PopularProduct) error {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return err
	}
	return nil
}

func (r *PopularProductGormRepository) Update(ctx context.Context, p model.PopularProduct) error {
	res := r.db.WithContext(ctx).
		Model(&model.PopularProduct{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"quantity_sold":     p.QuantitySold,
			"last_purchased_at": p.LastPurchasedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PopularProductGormRepository) ListByMinQuantitySold(ctx context.Context, min int64, limit int) ([]model.PopularProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var items []model.PopularProduct
	err := r.db.WithContext(ctx).
		Where("quantity_sold >= ?", min).
		Order("quantity_sold desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.PopularProduct{}, err
	}
	return items, nil
}
