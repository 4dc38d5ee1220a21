package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	//支払い確定用。行ロック（SELECT ... FOR UPDATE）付きで取得する。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//チェックアウトセッション作成後にsession IDを保存してPAYMENT_PENDINGへ。
	SetCheckoutSession(ctx context.Context, orderID int64, sessionID string) error

	//出荷・配達の記録。タイムスタンプは上書き可。
	MarkShipped(ctx context.Context, orderID int64, trackingNumber string, shippedAt time.Time) error
	MarkDelivered(ctx context.Context, orderID int64, deliveredAt time.Time) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
