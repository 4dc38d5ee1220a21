package usecase

import (
	"errors"
	"fmt"
)

// handler側でHTTPステータスに変換されるエラー。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 支払い確定時の致命的な不整合。
// HTTPエラーとは別扱いで、アラート記録と運用者対応の対象になる。
var (
	//transactionRefに対応する支払いレコードが無い。
	//このシステムがセッションを作っていない注文へのWebhookなので、推測で処理しない。
	ErrPaymentNotFound = errors.New("payment not found for transaction ref")

	//支払い完了後なのに在庫が足りない。入金済みのため手動での突き合わせが必要。
	ErrStockInconsistency = errors.New("insufficient stock at payment confirmation")
)
