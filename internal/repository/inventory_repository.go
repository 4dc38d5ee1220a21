package repository

import "context"

type InventoryRepository interface {
	// 在庫が足りるときだけ減算。足りなければ false（エラーではない）。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 累計販売数を加算
	IncrementTotalSold(ctx context.Context, productID int64, qty int64) error
}
