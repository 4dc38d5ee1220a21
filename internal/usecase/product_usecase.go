package usecase

import (
	"context"
	"net/http"
	"time"

	repo "app/internal/repository"
)

// 商品カタログの参照系。読み取りだけなのでトランザクションを張らない。
type ProductUsecase struct {
	products  repo.ProductRepository
	popular   repo.PopularProductRepository
	threshold int64
}

func NewProductUsecase(products repo.ProductRepository, popular repo.PopularProductRepository, popularityThreshold int64) *ProductUsecase {
	return &ProductUsecase{products: products, popular: popular, threshold: popularityThreshold}
}

type ProductOutput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
}

type ProductListOutput struct {
	Products []ProductOutput `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type PopularProductOutput struct {
	ProductID       int64     `json:"product_id"`
	Name            string    `json:"name"`
	Price           int64     `json:"price"`
	QuantitySold    int64     `json:"quantity_sold"`
	LastPurchasedAt time.Time `json:"last_purchased_at"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, q repo.ProductListQuery) (ProductListOutput, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	products, total, err := u.products.ListPublic(ctx, q)
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]ProductOutput, 0, len(products))
	for _, p := range products {
		outs = append(outs, ProductOutput{
			ID:          p.ID,
			Name:        p.Name,
			Brand:       p.Brand,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
		})
	}

	return ProductListOutput{Products: outs, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, id int64) (ProductOutput, error) {
	if id <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.products.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		//非公開商品は存在しない扱い
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	return ProductOutput{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}, nil
}

// 累計販売数がしきい値以上の商品を売れ筋として返す。
func (u *ProductUsecase) ListPopularProducts(ctx context.Context, limit int) ([]PopularProductOutput, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	pops, err := u.popular.ListByMinQuantitySold(ctx, u.threshold, limit)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]PopularProductOutput, 0, len(pops))
	for _, pp := range pops {
		p, err := u.products.FindByID(ctx, pp.ProductID)
		if err == repo.ErrNotFound {
			//商品が消えていたらスキップ
			continue
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = append(outs, PopularProductOutput{
			ProductID:       p.ID,
			Name:            p.Name,
			Price:           p.Price,
			QuantitySold:    pp.QuantitySold,
			LastPurchasedAt: pp.LastPurchasedAt,
		})
	}
	return outs, nil
}
