package usecase

import "context"

// 決済プロバイダから返るチェックアウトセッション。
type CheckoutSession struct {
	ID  string
	URL string
}

// 決済プロバイダから返るPaymentIntent。
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// 外部決済プロバイダ（Stripe想定）との約束。
// amountは最小通貨単位。実装は internal/infra/stripe。
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, orderID int64, amount int64) (CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, orderID int64, amount int64) (PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error)
}

// 確定後の通知先（pub/sub）。配信失敗は実装側で握りつぶす約束。
type Notifier interface {
	Publish(ctx context.Context, topic string, key string, payload interface{})
}

// 通知トピック
const (
	TopicOrderUpdated     = "order.updated"
	TopicInventoryUpdated = "inventory.updated"
)
