package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// 支払いレコード。注文と1:1。
// TransactionRefはStripeのsession/intent IDで、重複通知の排除キーになる。
type Payment struct {
	ID              int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64         `gorm:"not null;uniqueIndex" json:"order_id"`
	Amount          int64         `gorm:"not null" json:"amount"`
	Method          PaymentMethod `gorm:"type:varchar(30);not null" json:"method"`
	Status          PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionRef  string        `gorm:"type:varchar(255);not null;uniqueIndex" json:"transaction_ref"`
	TransactionTime *time.Time    `json:"transaction_time"`
	Message         string        `gorm:"type:varchar(255)" json:"message"`
	CreatedAt       time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
