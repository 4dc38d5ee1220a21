package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// チェックアウト：注文確定→Stripeセッション作成→PENDING支払いレコードの永続化。
// セッション作成が失敗したら注文はPENDINGのまま、支払いレコードは作らない。
type CheckoutUsecase struct {
	tx      repo.TransactionManager
	orders  *OrderUsecase
	gateway PaymentGateway
}

func NewCheckoutUsecase(tx repo.TransactionManager, orders *OrderUsecase, gateway PaymentGateway) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, orders: orders, gateway: gateway}
}

type CheckoutInput struct {
	IdempotencyKey string
}

type CheckoutOutput struct {
	OrderID     int64  `json:"order_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type PaymentIntentOutput struct {
	OrderID         int64  `json:"order_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

// カートから注文を確定し、ホスト型チェックアウトセッションを作る。
func (u *CheckoutUsecase) CreateCheckoutSession(ctx context.Context, userID int64, in CheckoutInput) (CheckoutOutput, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	//注文確定（在庫チェックのみ、減算なし）
	order, err := u.orders.PlaceOrder(ctx, userID, PlaceOrderInput{IdempotencyKey: key})
	if err != nil {
		return CheckoutOutput{}, err
	}

	//外部呼び出し。ここで失敗しても注文PENDING以外は何も書いていない。
	sess, err := u.gateway.CreateCheckoutSession(ctx, order.ID, order.TotalPrice)
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	//session IDと支払いレコードを同一トランザクションで永続化。
	//これ以降、PENDINGの支払い行が「支払い進行中」の耐久記録になる。
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().SetCheckoutSession(ctx, order.ID, sess.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()
		_, err := r.Payments().Create(ctx, model.Payment{
			OrderID:         order.ID,
			Amount:          order.TotalPrice,
			Method:          model.PaymentMethodCreditCard,
			Status:          model.PaymentStatusPending,
			TransactionRef:  sess.ID,
			TransactionTime: &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}

	return CheckoutOutput{
		OrderID:     order.ID,
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	}, nil
}

// 既存注文に対してPaymentIntent（client secretフロー）を作る。
func (u *CheckoutUsecase) CreatePaymentIntent(ctx context.Context, userID int64, orderID int64) (PaymentIntentOutput, error) {
	if userID <= 0 {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var order model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if !o.Status.IsPayable() {
			return NewHTTPError(http.StatusBadRequest, "order not payable")
		}

		//支払いは注文と1:1。既に進行中なら二重に作らない。
		_, err = r.Payments().FindByOrderID(ctx, o.ID)
		if err == nil {
			return NewHTTPError(http.StatusConflict, "payment already initiated")
		}
		if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order = o
		return nil
	})
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	pi, err := u.gateway.CreatePaymentIntent(ctx, order.ID, order.TotalPrice)
	if err != nil {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().SetCheckoutSession(ctx, order.ID, pi.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()
		_, err := r.Payments().Create(ctx, model.Payment{
			OrderID:         order.ID,
			Amount:          order.TotalPrice,
			Method:          model.PaymentMethodCreditCard,
			Status:          model.PaymentStatusPending,
			TransactionRef:  pi.ID,
			TransactionTime: &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	return PaymentIntentOutput{
		OrderID:         order.ID,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
	}, nil
}
