package usecase

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrderWithStatus(store *fakeStore, userID int64, status model.OrderStatus, items ...model.OrderItem) int64 {
	o := model.Order{ID: store.id(), UserID: userID, Status: status, IdempotencyKey: "seed-" + string(status)}
	store.orders[o.ID] = o
	for i := range items {
		items[i].ID = store.id()
		items[i].OrderID = o.ID
	}
	store.orderItems[o.ID] = items
	return o.ID
}

func TestMarkAsShipped_GeneratesTrackingNumber(t *testing.T) {
	store := newFakeStore()
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusPaid)

	audit := &fakeAuditRepo{}
	uc := NewDeliveryUsecase(newFakeTxManager(store), audit, &fakeNotifier{})

	out, err := uc.MarkAsShipped(context.Background(), 7, orderID, ShipOrderInput{})
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusShipped), out.Status)
	assert.True(t, strings.HasPrefix(out.TrackingNumber, "TRK-"))
	require.NotNil(t, out.ShippedAt)

	//監査ログが残る
	require.Len(t, audit.logs, 1)
	assert.Equal(t, model.AuditActionShipOrder, audit.logs[0].Action)
	assert.Equal(t, int64(7), audit.logs[0].ActorUserID)
	assert.Equal(t, orderID, audit.logs[0].ResourceID)
}

func TestMarkAsShipped_PendingOrderRejected(t *testing.T) {
	store := newFakeStore()
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusPending)

	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, &fakeNotifier{})

	_, err := uc.MarkAsShipped(context.Background(), 7, orderID, ShipOrderInput{TrackingNumber: "TRK-XYZ"})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestMarkAsDelivered_FromShipped(t *testing.T) {
	store := newFakeStore()
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusShipped)

	notify := &fakeNotifier{}
	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, notify)

	out, err := uc.MarkAsDelivered(context.Background(), 7, orderID)
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusDelivered), out.Status)
	require.NotNil(t, out.DeliveredAt)
	assert.Len(t, notify.byTopic(TopicOrderUpdated), 1)
}

func TestMarkAsDelivered_PaidOrderRejected(t *testing.T) {
	store := newFakeStore()
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusPaid)

	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, &fakeNotifier{})

	_, err := uc.MarkAsDelivered(context.Background(), 7, orderID)
	require.Error(t, err)
}

func TestCancel_PaidOrderRestoresStock(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 7)
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusPaid,
		model.OrderItem{ProductID: 1, Quantity: 3, UnitPriceSnapshot: 1000, ProductNameSnapshot: "Moisturizing Cream"},
	)

	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, &fakeNotifier{})

	out, err := uc.Cancel(context.Background(), 7, orderID)
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusCanceled), out.Status)
	//PAIDからのキャンセルは在庫を戻す
	assert.Equal(t, int64(10), store.products[1].Stock)
}

func TestCancel_PendingOrderDoesNotTouchStock(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusPaymentPending,
		model.OrderItem{ProductID: 1, Quantity: 3, UnitPriceSnapshot: 1000},
	)

	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, &fakeNotifier{})

	_, err := uc.Cancel(context.Background(), 7, orderID)
	require.NoError(t, err)

	//まだ減算していないので戻さない
	assert.Equal(t, int64(10), store.products[1].Stock)
	assert.Equal(t, model.OrderStatusCanceled, store.orders[orderID].Status)
}

func TestCancel_ShippedOrderRejected(t *testing.T) {
	store := newFakeStore()
	orderID := seedOrderWithStatus(store, 42, model.OrderStatusShipped)

	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, &fakeNotifier{})

	_, err := uc.Cancel(context.Background(), 7, orderID)
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestAdminList_FiltersByStatus(t *testing.T) {
	store := newFakeStore()
	seedOrderWithStatus(store, 42, model.OrderStatusPaid)
	seedOrderWithStatus(store, 43, model.OrderStatusShipped)

	uc := NewDeliveryUsecase(newFakeTxManager(store), &fakeAuditRepo{}, &fakeNotifier{})

	out, err := uc.List(context.Background(), AdminOrderListInput{Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, out.Orders, 1)
	assert.Equal(t, string(model.OrderStatusPaid), out.Orders[0].Status)
}
