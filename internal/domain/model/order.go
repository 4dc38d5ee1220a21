package model

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCanceled       OrderStatus = "CANCELED"
)

// 支払い確定のガードで使う。PENDING / PAYMENT_PENDING のときだけ確定できる。
func (s OrderStatus) IsPayable() bool {
	return s == OrderStatusPending || s == OrderStatusPaymentPending
}

// 注文は確定時点のカートのスナップショット。
// 明細の価格は注文時点で固定され、以後の商品価格変更の影響を受けない。
type Order struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64       `gorm:"not null;index" json:"user_id"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice      int64       `gorm:"not null" json:"total_price"`
	StripeSessionID string      `gorm:"type:varchar(255);index" json:"stripe_session_id"`
	TrackingNumber  string      `gorm:"type:varchar(64)" json:"tracking_number"`
	ShippedAt       *time.Time  `json:"shipped_at"`
	DeliveredAt     *time.Time  `json:"delivered_at"`
	IdempotencyKey  string      `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt       time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
