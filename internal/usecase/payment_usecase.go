package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 支払い確定（Webhookとポーリングの両方がここに集約される）。
// 在庫減算・人気集計・カート削除・支払い/注文ステータスを1トランザクションで確定する。
type PaymentUsecase struct {
	tx        repo.TransactionManager
	gateway   PaymentGateway
	alerts    repo.AlertRepository
	notifier  Notifier
	threshold int64
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	gateway PaymentGateway,
	alerts repo.AlertRepository,
	notifier Notifier,
	popularityThreshold int64,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:        tx,
		gateway:   gateway,
		alerts:    alerts,
		notifier:  notifier,
		threshold: popularityThreshold,
	}
}

// 通知ペイロード
type OrderUpdatedEvent struct {
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
}

type InventoryUpdatedEvent struct {
	ProductID int64 `json:"product_id"`
	Delta     int64 `json:"delta"`
}

// ConfirmByTransactionRefが支払い確定の唯一の入口。
//
// 順序が重要：注文行のロックを取ってからステータスを判定する。
// ロック前に判定すると、同じ注文への同時確定が両方PENDINGを観測して
// 在庫を二重に減らせてしまう。確定が成功するのは注文ごとに生涯一度だけで、
// それ以外の呼び出しはロック内の判定で no-op になる。
func (u *PaymentUsecase) ConfirmByTransactionRef(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid transaction ref")
	}

	var (
		confirmed bool
		order     model.Order
		deltas    []InventoryUpdatedEvent
		failOrder int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//支払いレコードをtransactionRef完全一致で引く。
		//無ければこちらが作っていないセッションへの通知。処理しない。
		payment, err := r.Payments().FindByTransactionRef(ctx, ref)
		if err == repo.ErrNotFound {
			return ErrPaymentNotFound
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		failOrder = payment.OrderID

		//注文行をロック（SELECT ... FOR UPDATE）
		o, err := r.Orders().FindByIDForUpdate(ctx, payment.OrderID)
		if err == repo.ErrNotFound {
			return fmt.Errorf("order %d missing: %w", payment.OrderID, ErrPaymentNotFound)
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//ロック内の冪等ガード。確定済みなら成功扱いのno-op。
		if !o.Status.IsPayable() {
			return nil
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()

		//在庫の再チェック＋減算。
		//ここで足りないのは入金済みの致命的不整合（通常の業務エラーではない）。
		for _, it := range items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return fmt.Errorf("product %d (%s) qty %d: %w",
					it.ProductID, it.ProductNameSnapshot, it.Quantity, ErrStockInconsistency)
			}
			deltas = append(deltas, InventoryUpdatedEvent{ProductID: it.ProductID, Delta: -it.Quantity})
		}

		//人気集計。しきい値を超えたら行を遅延作成。
		for _, it := range items {
			if err := r.Inventory().IncrementTotalSold(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			p, err := r.Products().FindByID(ctx, it.ProductID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			pop, found, err := r.PopularProducts().FindByProductID(ctx, it.ProductID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			if found {
				pop.QuantitySold = p.TotalSold
				pop.LastPurchasedAt = now
				if err := r.PopularProducts().Update(ctx, pop); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			} else if p.TotalSold >= u.threshold {
				err := r.PopularProducts().Create(ctx, model.PopularProduct{
					ProductID:       it.ProductID,
					QuantitySold:    p.TotalSold,
					LastPurchasedAt: now,
				})
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		//ACTIVEカートを削除（無ければ何もしない）
		cart, err := r.Carts().FindActiveByUserID(ctx, o.UserID)
		if err == nil {
			if err := r.Carts().Delete(ctx, cart.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//支払いをSUCCESSに
		if err := r.Payments().MarkSuccess(ctx, payment.ID, now); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文をPAIDに
		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusPaid); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order = o
		confirmed = true
		return nil
	})

	if err != nil {
		//ロールバック済み。致命的不整合はアラートに残して運用者対応へ。
		u.recordFatal(ctx, ref, failOrder, err)
		return err
	}

	if confirmed {
		//コミット後の通知。失敗しても確定は巻き戻らない。
		u.notifier.Publish(ctx, TopicOrderUpdated, strconv.FormatInt(order.ID, 10), OrderUpdatedEvent{
			OrderID: order.ID,
			UserID:  order.UserID,
			Status:  string(model.OrderStatusPaid),
		})
		for _, d := range deltas {
			u.notifier.Publish(ctx, TopicInventoryUpdated, strconv.FormatInt(d.ProductID, 10), d)
		}
	}
	return nil
}

// ポーリング側の確認。プロバイダにintentの状態を問い合わせてから同じ入口に流す。
func (u *PaymentUsecase) ConfirmByPaymentIntent(ctx context.Context, intentID string) error {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid payment intent id")
	}

	pi, err := u.gateway.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return NewHTTPError(http.StatusBadGateway, "payment provider error")
	}
	if pi.Status != "succeeded" {
		return NewHTTPError(http.StatusBadRequest, "payment not succeeded: "+pi.Status)
	}

	if err := u.ConfirmByTransactionRef(ctx, pi.ID); err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		return err
	}
	return nil
}

func (u *PaymentUsecase) recordFatal(ctx context.Context, ref string, orderID int64, err error) {
	var reason model.AlertReason
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		reason = model.AlertReasonPaymentNotFound
	case errors.Is(err, ErrStockInconsistency):
		reason = model.AlertReasonInsufficientStock
	default:
		//DBエラー等は再配送で解決しうるのでアラートにしない
		slog.Error("payment confirmation failed", "transaction_ref", ref, "error", err)
		return
	}

	slog.Error("payment confirmation inconsistency",
		"transaction_ref", ref,
		"order_id", orderID,
		"reason", string(reason),
		"error", err,
	)

	//確定トランザクションはロールバック済みなので、アラートは別書き込み
	alertErr := u.alerts.Create(ctx, model.ReconciliationAlert{
		OrderID:        orderID,
		TransactionRef: ref,
		Reason:         reason,
		Detail:         err.Error(),
		CreatedAt:      time.Now(),
	})
	if alertErr != nil {
		slog.Error("failed to record reconciliation alert", "transaction_ref", ref, "error", alertErr)
	}
}
