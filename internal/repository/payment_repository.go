package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)

	//transactionRefは完全一致で引く。重複Webhookの排除はこのキーが前提。
	FindByTransactionRef(ctx context.Context, ref string) (model.Payment, error)

	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)

	//SUCCESSにして取引時刻を刻む
	MarkSuccess(ctx context.Context, paymentID int64, at time.Time) error
}
