package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"app/internal/infra/stripe"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	checkout      *usecase.CheckoutUsecase
	payments      *usecase.PaymentUsecase
	webhookSecret string
}

func NewPaymentHandler(checkout *usecase.CheckoutUsecase, payments *usecase.PaymentUsecase, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		checkout:      checkout,
		payments:      payments,
		webhookSecret: webhookSecret,
	}
}

type createCheckoutRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// POST /payments/checkout-session
// カートを注文に確定してホスト型チェックアウトのURLを返す。
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req createCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	out, err := h.checkout.CreateCheckoutSession(c.Request().Context(), userID, usecase.CheckoutInput{
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /payments/orders/:orderId/intent
// 既存注文へのclient secretフロー。
func (h *PaymentHandler) CreatePaymentIntent(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}

	out, err := h.checkout.CreatePaymentIntent(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /payments/confirm/:paymentIntentId
// フロントからのポーリング確認。プロバイダに状態を問い合わせてから確定する。
func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	if _, ok := getUserIDFromContext(c); !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	intentID := strings.TrimSpace(c.Param("paymentIntentId"))
	if intentID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payment intent id"})
	}

	if err := h.payments.ConfirmByPaymentIntent(c.Request().Context(), intentID); err != nil {
		if errors.Is(err, usecase.ErrStockInconsistency) {
			//入金済みの在庫不整合。アラート記録済み、ここでは内部エラー扱い。
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "confirmed"})
}

// POST /webhooks/stripe
// 署名検証→イベント種別で振り分け。確定処理は冪等なので再配送は安全。
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payload"})
	}

	ev, err := stripe.ConstructEvent(payload, c.Request().Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid signature"})
	}

	switch ev.Type {
	case stripe.EventCheckoutSessionCompleted, stripe.EventPaymentIntentSucceeded:
		err := h.payments.ConfirmByTransactionRef(c.Request().Context(), ev.Data.Object.ID)
		if err != nil {
			//一時的なDBエラーだけ5xxで返して再配送してもらう。
			//業務上の不整合（支払いレコード無し・在庫不足）はアラート記録済みで、
			//再配送しても解決しないので200で受ける。
			if he, ok := usecase.AsHTTPError(err); ok && he.Status >= http.StatusInternalServerError {
				return c.JSON(he.Status, ErrorResponse{Error: he.Message})
			}
		}
	default:
		//関知しないイベントはそのまま受ける
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
