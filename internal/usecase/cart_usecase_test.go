package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCart_SnapshotsCurrentPrice(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)

	uc := NewCartUsecase(newFakeTxManager(store))

	out, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1000), out.Items[0].UnitPrice)
	assert.Equal(t, int64(2000), out.TotalPrice)

	//値上げしてもカートの価格は変わらない
	p := store.products[1]
	p.Price = 1500
	store.products[1] = p

	out, err = uc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), out.Items[0].UnitPrice)
	assert.Equal(t, int64(2000), out.TotalPrice)
}

func TestAddToCart_SameProductAccumulates(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)

	uc := NewCartUsecase(newFakeTxManager(store))

	_, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	out, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(5), out.Items[0].Quantity)
	assert.Equal(t, int64(5000), out.TotalPrice)
}

func TestAddToCart_QuantityBoundedByStock(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 3)

	uc := NewCartUsecase(newFakeTxManager(store))

	_, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	//2+2=4 > 在庫3
	_, err = uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 2})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Contains(t, he.Message, "insufficient stock")
}

func TestAddToCart_InactiveProductRejected(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)
	p := store.products[1]
	p.IsActive = false
	store.products[1] = p

	uc := NewCartUsecase(newFakeTxManager(store))

	_, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 1})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestUpdateCartItem_ZeroQuantityRemovesItem(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)

	uc := NewCartUsecase(newFakeTxManager(store))

	out, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	itemID := out.Items[0].ID

	out, err = uc.UpdateCartItem(context.Background(), 42, itemID, UpdateCartItemInput{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.TotalPrice)
}

func TestUpdateCartItem_OtherUsersItemHidden(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)

	uc := NewCartUsecase(newFakeTxManager(store))

	out, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	itemID := out.Items[0].ID

	_, err = uc.UpdateCartItem(context.Background(), 99, itemID, UpdateCartItemInput{Quantity: 5})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestDeleteCartItem_RecalculatesTotal(t *testing.T) {
	store := newFakeStore()
	seedProduct(store, 1, "Moisturizing Cream", 1000, 10)
	seedProduct(store, 2, "Vitamin C Serum", 2500, 5)

	uc := NewCartUsecase(newFakeTxManager(store))

	_, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	out, err := uc.AddToCart(context.Background(), 42, AddToCartInput{ProductID: 2, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)

	out, err = uc.DeleteCartItem(context.Background(), 42, out.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(2500), out.TotalPrice)
}

func TestGetCart_CreatesEmptyCartOnFirstAccess(t *testing.T) {
	store := newFakeStore()
	uc := NewCartUsecase(newFakeTxManager(store))

	out, err := uc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.NotZero(t, out.CartID)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.TotalPrice)
}
