package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// インメモリのストア。fakeTxManagerがスナップショットを取って
// エラー時に巻き戻すので、ロールバックの検証ができる。
type fakeStore struct {
	mu sync.Mutex

	products   map[int64]model.Product
	carts      map[int64]model.Cart
	cartItems  map[int64]model.CartItem
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	payments   map[int64]model.Payment
	populars   map[int64]model.PopularProduct // key: productID

	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   map[int64]model.Product{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
		payments:   map[int64]model.Payment{},
		populars:   map[int64]model.PopularProduct{},
		nextID:     1,
	}
}

func (s *fakeStore) id() int64 {
	v := s.nextID
	s.nextID++
	return v
}

func (s *fakeStore) snapshot() *fakeStore {
	c := newFakeStore()
	c.nextID = s.nextID
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		items := make([]model.OrderItem, len(v))
		copy(items, v)
		c.orderItems[k] = items
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.populars {
		c.populars[k] = v
	}
	return c
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.products = snap.products
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.payments = snap.payments
	s.populars = snap.populars
	s.nextID = snap.nextID
}

// トランザクション全体でストアのロックを握る。
// 行ロックの粗い近似だが、同時確定が直列化される点は本物と同じ。
type fakeTxManager struct {
	store *fakeStore
}

func newFakeTxManager(store *fakeStore) *fakeTxManager {
	return &fakeTxManager{store: store}
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	err := fn(&fakeTxRepos{store: m.store})
	if err != nil {
		m.store.restore(snap)
	}
	return err
}

type fakeTxRepos struct {
	store *fakeStore
}

func (r *fakeTxRepos) Orders() repo.OrderRepository                   { return &fakeOrderRepo{r.store} }
func (r *fakeTxRepos) OrderItems() repo.OrderItemRepository           { return &fakeOrderItemRepo{r.store} }
func (r *fakeTxRepos) Carts() repo.CartRepository                     { return &fakeCartRepo{r.store} }
func (r *fakeTxRepos) CartItems() repo.CartItemRepository             { return &fakeCartItemRepo{r.store} }
func (r *fakeTxRepos) Inventory() repo.InventoryRepository            { return &fakeInventoryRepo{r.store} }
func (r *fakeTxRepos) Products() repo.ProductRepository               { return &fakeProductRepo{r.store} }
func (r *fakeTxRepos) Payments() repo.PaymentRepository               { return &fakePaymentRepo{r.store} }
func (r *fakeTxRepos) PopularProducts() repo.PopularProductRepository { return &fakePopularRepo{r.store} }

type fakeOrderRepo struct{ s *fakeStore }

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := f.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return f.FindByID(ctx, orderID)
}

func (f *fakeOrderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range f.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	for _, o := range f.s.orders {
		if o.IdempotencyKey == order.IdempotencyKey {
			return 0, errors.New("duplicate idempotency key")
		}
	}
	order.ID = f.s.id()
	f.s.orders[order.ID] = order
	return order.ID, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := f.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	f.s.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) SetCheckoutSession(ctx context.Context, orderID int64, sessionID string) error {
	o, ok := f.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.StripeSessionID = sessionID
	o.Status = model.OrderStatusPaymentPending
	f.s.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) MarkShipped(ctx context.Context, orderID int64, trackingNumber string, shippedAt time.Time) error {
	o, ok := f.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = model.OrderStatusShipped
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &shippedAt
	f.s.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) MarkDelivered(ctx context.Context, orderID int64, deliveredAt time.Time) error {
	o, ok := f.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = model.OrderStatusDelivered
	o.DeliveredAt = &deliveredAt
	f.s.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range f.s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (f *fakeOrderRepo) ListAdmin(ctx context.Context, filter repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range f.s.orders {
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

type fakeOrderItemRepo struct{ s *fakeStore }

func (f *fakeOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = f.s.id()
		items[i].OrderID = orderID
	}
	f.s.orderItems[orderID] = append(f.s.orderItems[orderID], items...)
	return nil
}

func (f *fakeOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return f.s.orderItems[orderID], nil
}

type fakeCartRepo struct{ s *fakeStore }

func (f *fakeCartRepo) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range f.s.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, nil
		}
	}
	c := model.Cart{ID: f.s.id(), UserID: userID, Status: model.CartStatusActive}
	f.s.carts[c.ID] = c
	return c, nil
}

func (f *fakeCartRepo) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range f.s.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (f *fakeCartRepo) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	c, ok := f.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Status = status
	f.s.carts[cartID] = c
	return nil
}

func (f *fakeCartRepo) Clear(ctx context.Context, cartID int64) error {
	for id, it := range f.s.cartItems {
		if it.CartID == cartID {
			delete(f.s.cartItems, id)
		}
	}
	return nil
}

func (f *fakeCartRepo) Delete(ctx context.Context, cartID int64) error {
	if _, ok := f.s.carts[cartID]; !ok {
		return repo.ErrNotFound
	}
	for id, it := range f.s.cartItems {
		if it.CartID == cartID {
			delete(f.s.cartItems, id)
		}
	}
	delete(f.s.carts, cartID)
	return nil
}

type fakeCartItemRepo struct{ s *fakeStore }

func (f *fakeCartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, it := range f.s.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCartItemRepo) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPriceSnapshot int64) error {
	for id, it := range f.s.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity += addQty
			f.s.cartItems[id] = it
			return nil
		}
	}
	it := model.CartItem{
		ID:                f.s.id(),
		CartID:            cartID,
		ProductID:         productID,
		Quantity:          addQty,
		UnitPriceSnapshot: unitPriceSnapshot,
	}
	f.s.cartItems[it.ID] = it
	return nil
}

func (f *fakeCartItemRepo) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	it, ok := f.s.cartItems[cartItemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	f.s.cartItems[cartItemID] = it
	return nil
}

func (f *fakeCartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	if _, ok := f.s.cartItems[cartItemID]; !ok {
		return repo.ErrNotFound
	}
	delete(f.s.cartItems, cartItemID)
	return nil
}

func (f *fakeCartItemRepo) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	it, ok := f.s.cartItems[cartItemID]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (f *fakeCartItemRepo) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	it, ok := f.s.cartItems[cartItemID]
	if !ok {
		return false, nil
	}
	c, ok := f.s.carts[it.CartID]
	if !ok {
		return false, nil
	}
	return c.UserID == userID, nil
}

type fakeInventoryRepo struct{ s *fakeStore }

func (f *fakeInventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := f.s.products[productID]
	if !ok {
		return false, nil
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	f.s.products[productID] = p
	return true, nil
}

func (f *fakeInventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := f.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	f.s.products[productID] = p
	return nil
}

func (f *fakeInventoryRepo) IncrementTotalSold(ctx context.Context, productID int64, qty int64) error {
	p, ok := f.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.TotalSold += qty
	f.s.products[productID] = p
	return nil
}

type fakeProductRepo struct{ s *fakeStore }

func (f *fakeProductRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range f.s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := f.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

type fakePaymentRepo struct{ s *fakeStore }

func (f *fakePaymentRepo) Create(ctx context.Context, p model.Payment) (int64, error) {
	for _, ex := range f.s.payments {
		if ex.TransactionRef == p.TransactionRef {
			return 0, errors.New("duplicate transaction ref")
		}
		if ex.OrderID == p.OrderID {
			return 0, errors.New("duplicate order payment")
		}
	}
	p.ID = f.s.id()
	f.s.payments[p.ID] = p
	return p.ID, nil
}

func (f *fakePaymentRepo) FindByTransactionRef(ctx context.Context, ref string) (model.Payment, error) {
	for _, p := range f.s.payments {
		if p.TransactionRef == ref {
			return p, nil
		}
	}
	return model.Payment{}, repo.ErrNotFound
}

func (f *fakePaymentRepo) FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	for _, p := range f.s.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return model.Payment{}, repo.ErrNotFound
}

func (f *fakePaymentRepo) MarkSuccess(ctx context.Context, paymentID int64, at time.Time) error {
	p, ok := f.s.payments[paymentID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Status = model.PaymentStatusSuccess
	p.TransactionTime = &at
	f.s.payments[paymentID] = p
	return nil
}

type fakePopularRepo struct{ s *fakeStore }

func (f *fakePopularRepo) FindByProductID(ctx context.Context, productID int64) (model.PopularProduct, bool, error) {
	p, ok := f.s.populars[productID]
	return p, ok, nil
}

func (f *fakePopularRepo) Create(ctx context.Context, p model.PopularProduct) error {
	if _, ok := f.s.populars[p.ProductID]; ok {
		return errors.New("duplicate popular product")
	}
	p.ID = f.s.id()
	f.s.populars[p.ProductID] = p
	return nil
}

func (f *fakePopularRepo) Update(ctx context.Context, p model.PopularProduct) error {
	if _, ok := f.s.populars[p.ProductID]; !ok {
		return repo.ErrNotFound
	}
	f.s.populars[p.ProductID] = p
	return nil
}

func (f *fakePopularRepo) ListByMinQuantitySold(ctx context.Context, min int64, limit int) ([]model.PopularProduct, error) {
	var out []model.PopularProduct
	for _, p := range f.s.populars {
		if p.QuantitySold >= min {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuantitySold > out[j].QuantitySold })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// 決済ゲートウェイのフェイク
type fakeGateway struct {
	mu sync.Mutex

	failCreate   bool
	failRetrieve bool

	sessions int
	intents  int

	intentStatus map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intentStatus: map[string]string{}}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, orderID int64, amount int64) (CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return CheckoutSession{}, errors.New("stripe down")
	}
	g.sessions++
	id := "cs_test_" + time.Now().Format("150405") + "_" + string(rune('a'+g.sessions))
	return CheckoutSession{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, orderID int64, amount int64) (PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return PaymentIntent{}, errors.New("stripe down")
	}
	g.intents++
	id := "pi_test_" + string(rune('a'+g.intents))
	g.intentStatus[id] = "requires_payment_method"
	return PaymentIntent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (g *fakeGateway) RetrievePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRetrieve {
		return PaymentIntent{}, errors.New("stripe down")
	}
	status, ok := g.intentStatus[intentID]
	if !ok {
		status = "succeeded"
	}
	return PaymentIntent{ID: intentID, ClientSecret: intentID + "_secret", Status: status}, nil
}

// 通知のフェイク（発行されたイベントを記録する）
type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Topic   string
	Key     string
	Payload interface{}
}

func (n *fakeNotifier) Publish(ctx context.Context, topic string, key string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Topic: topic, Key: key, Payload: payload})
}

func (n *fakeNotifier) byTopic(topic string) []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []publishedEvent
	for _, e := range n.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// アラートのフェイク
type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []model.ReconciliationAlert
}

func (f *fakeAlertRepo) Create(ctx context.Context, a model.ReconciliationAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeAlertRepo) List(ctx context.Context, limit int, offset int) ([]model.ReconciliationAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ReconciliationAlert, len(f.alerts))
	copy(out, f.alerts)
	return out, nil
}

// 監査ログのフェイク
type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, log model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AuditLog, len(f.logs))
	copy(out, f.logs)
	return out, nil
}

// よく使うシード
func seedProduct(s *fakeStore, id int64, name string, price int64, stock int64) {
	s.products[id] = model.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

func seedCartWithItems(s *fakeStore, userID int64, items ...model.CartItem) int64 {
	cart := model.Cart{ID: s.id(), UserID: userID, Status: model.CartStatusActive}
	s.carts[cart.ID] = cart
	for _, it := range items {
		it.ID = s.id()
		it.CartID = cart.ID
		s.cartItems[it.ID] = it
	}
	return cart.ID
}
