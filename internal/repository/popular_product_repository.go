package repository

import (
	"context"

	"app/internal/domain/model"
)

type PopularProductRepository interface {
	FindByProductID(ctx context.Context, productID int64) (model.PopularProduct, bool, error)
	Create(ctx context.Context, p model.PopularProduct) error
	Update(ctx context.Context, p model.PopularProduct) error

	//しきい値以上の商品一覧
	ListByMinQuantitySold(ctx context.Context, min int64, limit int) ([]model.PopularProduct, error)
}
