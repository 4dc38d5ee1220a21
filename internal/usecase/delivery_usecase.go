package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// 管理者向けのフルフィルメント操作（一覧・出荷・配達・キャンセル）。
// ステータス遷移はすべてここを通り、監査ログを残す。
type DeliveryUsecase struct {
	tx       repo.TransactionManager
	audit    repo.AuditLogRepository
	notifier Notifier
}

func NewDeliveryUsecase(tx repo.TransactionManager, audit repo.AuditLogRepository, notifier Notifier) *DeliveryUsecase {
	return &DeliveryUsecase{tx: tx, audit: audit, notifier: notifier}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type AdminOrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type ShipOrderInput struct {
	TrackingNumber string `json:"tracking_number"`
}

func (u *DeliveryUsecase) List(ctx context.Context, in AdminOrderListInput) (AdminOrderListOutput, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}

	var out AdminOrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, repo.AdminOrderListFilter{
			Page:   in.Page,
			Limit:  in.Limit,
			Status: strings.TrimSpace(in.Status),
			UserID: in.UserID,
			From:   in.From,
			To:     in.To,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs := make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}

		out = AdminOrderListOutput{Orders: outs, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// MarkAsShippedはPAIDの注文を出荷済みにする。
// SHIPPED再実行は追跡番号の付け直しとして許す。それ以外の状態からは不可。
func (u *DeliveryUsecase) MarkAsShipped(ctx context.Context, actorUserID int64, orderID int64, in ShipOrderInput) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	tracking := strings.TrimSpace(in.TrackingNumber)
	if tracking == "" {
		//未指定なら発番する
		tracking = "TRK-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if len(tracking) > 64 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "tracking number too long")
	}

	var (
		before model.Order
		out    OrderOutput
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status != model.OrderStatusPaid && o.Status != model.OrderStatusShipped {
			return NewHTTPError(http.StatusBadRequest, "order not shippable: "+string(o.Status))
		}
		before = o

		now := time.Now()
		if err := r.Orders().MarkShipped(ctx, o.ID, tracking, now); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusShipped
		o.TrackingNumber = tracking
		o.ShippedAt = &now

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionShipOrder, orderID, before, out)
	u.notifier.Publish(ctx, TopicOrderUpdated, strconv.FormatInt(orderID, 10), OrderUpdatedEvent{
		OrderID: orderID,
		UserID:  before.UserID,
		Status:  string(model.OrderStatusShipped),
	})
	return out, nil
}

// MarkAsDeliveredはSHIPPEDの注文を配達完了にする。DELIVERED再実行は時刻の上書き。
func (u *DeliveryUsecase) MarkAsDelivered(ctx context.Context, actorUserID int64, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		before model.Order
		out    OrderOutput
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status != model.OrderStatusShipped && o.Status != model.OrderStatusDelivered {
			return NewHTTPError(http.StatusBadRequest, "order not deliverable: "+string(o.Status))
		}
		before = o

		now := time.Now()
		if err := r.Orders().MarkDelivered(ctx, o.ID, now); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusDelivered
		o.DeliveredAt = &now

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionDeliverOrder, orderID, before, out)
	u.notifier.Publish(ctx, TopicOrderUpdated, strconv.FormatInt(orderID, 10), OrderUpdatedEvent{
		OrderID: orderID,
		UserID:  before.UserID,
		Status:  string(model.OrderStatusDelivered),
	})
	return out, nil
}

// Cancelは未出荷の注文を取り消す。
// 在庫を戻すのはPAIDからのキャンセルだけ（PENDING系はまだ減らしていない）。
func (u *DeliveryUsecase) Cancel(ctx context.Context, actorUserID int64, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		before model.Order
		out    OrderOutput
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		switch o.Status {
		case model.OrderStatusShipped, model.OrderStatusDelivered:
			return NewHTTPError(http.StatusBadRequest, "order already shipped")
		case model.OrderStatusCanceled:
			return NewHTTPError(http.StatusBadRequest, "order already canceled")
		}
		before = o

		//PAIDのキャンセルだけ在庫を戻す
		if o.Status == model.OrderStatusPaid {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusCanceled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusCanceled

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionUpdateOrderStatus, orderID, before, out)
	u.notifier.Publish(ctx, TopicOrderUpdated, strconv.FormatInt(orderID, 10), OrderUpdatedEvent{
		OrderID: orderID,
		UserID:  before.UserID,
		Status:  string(model.OrderStatusCanceled),
	})
	return out, nil
}

// 監査ログの失敗は本処理を巻き戻さない。
func (u *DeliveryUsecase) writeAudit(ctx context.Context, actorUserID int64, action model.AuditAction, orderID int64, before model.Order, after OrderOutput) {
	beforeJSON, _ := json.Marshal(map[string]interface{}{
		"status":          string(before.Status),
		"tracking_number": before.TrackingNumber,
	})
	afterJSON, _ := json.Marshal(map[string]interface{}{
		"status":          after.Status,
		"tracking_number": after.TrackingNumber,
	})

	err := u.audit.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		slog.Error("audit log write failed", "action", string(action), "order_id", orderID, "error", err)
	}
}
