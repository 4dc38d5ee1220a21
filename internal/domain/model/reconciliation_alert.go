package model

import "time"

// 確定処理で検出した致命的な不整合の種類。
type AlertReason string

const (
	//transactionRefに対応する支払いレコードが無い
	AlertReasonPaymentNotFound AlertReason = "PAYMENT_NOT_FOUND"
	//支払い済みなのに在庫が足りない
	AlertReasonInsufficientStock AlertReason = "INSUFFICIENT_STOCK"
)

// 支払い確定トランザクションがロールバックした後に残す運用者向けの記録。
// 確定側はPAYMENT_PENDINGのまま止まるので、ここを見て手動で突き合わせる。
type ReconciliationAlert struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64       `gorm:"index" json:"order_id"`
	TransactionRef string      `gorm:"type:varchar(255);index" json:"transaction_ref"`
	Reason         AlertReason `gorm:"type:varchar(50);not null;index" json:"reason"`
	Detail         string      `gorm:"type:text" json:"detail"`
	CreatedAt      time.Time   `gorm:"not null;index" json:"created_at"`
}
