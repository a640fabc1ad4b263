package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront/internal/model"
)

// fakeTx applies staged writes only on Commit.
type fakeTx struct {
	pgx.Tx
	staged     []func()
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) onCommit(fn func()) { t.staged = append(t.staged, fn) }

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	for _, fn := range t.staged {
		fn()
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type mockOrderRepo struct {
	orders    map[uuid.UUID]*model.Order
	txs       []*fakeTx
	createErr error
	commitErr error
	clock     time.Time
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[uuid.UUID]*model.Order),
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockOrderRepo) BeginTx(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{commitErr: m.commitErr}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *mockOrderRepo) lastTx() *fakeTx { return m.txs[len(m.txs)-1] }

func (m *mockOrderRepo) Create(_ context.Context, tx pgx.Tx, order *model.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.clock = m.clock.Add(time.Minute)
	order.ID = uuid.New()
	order.CreatedAt = m.clock
	order.UpdatedAt = m.clock
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	tx.(*fakeTx).onCommit(func() { m.orders[order.ID] = order })
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.orders, id)
	return nil
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, msg model.OrderPlacedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type checkoutFixture struct {
	products *mockProductRepo
	carts    *mockCartRepo
	orders   *mockOrderRepo
	cart     *CartService
	svc      *OrderService
	logs     *bytes.Buffer
}

func newCheckoutFixture(pub OrderPublisher) *checkoutFixture {
	products := newMockProductRepo()
	carts := newMockCartRepo(products)
	orders := newMockOrderRepo()
	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))
	return &checkoutFixture{
		products: products,
		carts:    carts,
		orders:   orders,
		cart:     NewCartService(carts, products),
		svc:      NewOrderService(orders, carts, pub, log),
		logs:     logs,
	}
}

var shipping = model.ShippingInfo{FullName: "Sara Ali", Address: "Block 4, Salmiya", Phone: "+96555512345"}

func TestOrderService_Checkout(t *testing.T) {
	f := newCheckoutFixture(nil)
	ctx := context.Background()
	userID := uuid.New()
	cups := seedProduct(f.products, "Cups", "5.00")
	plates := seedProduct(f.products, "Plates", "7.50")
	_, err := f.cart.AddItem(ctx, userID, cups, 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, userID, plates, 1)
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, userID, shipping)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "17.50", order.TotalPrice.StringFixed(2))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Cups", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "5.00", order.Items[0].Price.StringFixed(2))
	assert.Equal(t, "Sara Ali", order.FullName)

	assert.True(t, f.orders.lastTx().committed)
	assert.Contains(t, f.orders.orders, order.ID)
	assert.Empty(t, f.carts.items)
}

func TestOrderService_Checkout_PriceIsFrozen(t *testing.T) {
	f := newCheckoutFixture(nil)
	ctx := context.Background()
	userID := uuid.New()
	pid := seedProduct(f.products, "Cups", "5.00")
	_, err := f.cart.AddItem(ctx, userID, pid, 1)
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, userID, shipping)
	require.NoError(t, err)

	f.products.products[pid].Price = decimal.RequireFromString("9.99")
	stored, err := f.svc.GetByID(ctx, order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", stored.Items[0].Price.StringFixed(2))
	assert.Equal(t, "5.00", stored.TotalPrice.StringFixed(2))
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(nil)

	_, err := f.svc.Checkout(context.Background(), uuid.New(), shipping)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.NotErrorIs(t, err, ErrCheckout)
	assert.Empty(t, f.orders.orders)
	assert.True(t, f.orders.lastTx().rolledBack)
}

func TestOrderService_Checkout_InvalidShipping(t *testing.T) {
	f := newCheckoutFixture(nil)

	_, err := f.svc.Checkout(context.Background(), uuid.New(), model.ShippingInfo{FullName: "  ", Address: "x", Phone: "1"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.orders.txs, "no transaction is opened for invalid input")
}

func TestOrderService_Checkout_FailureKeepsCart(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *checkoutFixture)
	}{
		{"order insert fails", func(f *checkoutFixture) { f.orders.createErr = errors.New("insert failed") }},
		{"cart delete fails", func(f *checkoutFixture) { f.carts.deleteErr = errors.New("delete failed") }},
		{"commit fails", func(f *checkoutFixture) { f.orders.commitErr = errors.New("connection reset") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(nil)
			ctx := context.Background()
			userID := uuid.New()
			_, err := f.cart.AddItem(ctx, userID, seedProduct(f.products, "Cups", "5.00"), 2)
			require.NoError(t, err)
			tt.setup(f)

			_, err = f.svc.Checkout(ctx, userID, shipping)
			assert.ErrorIs(t, err, ErrCheckout)
			assert.Empty(t, f.orders.orders)
			assert.Len(t, f.carts.items, 1)
			assert.True(t, f.orders.lastTx().rolledBack)
			assert.Contains(t, f.logs.String(), "checkout failed")
		})
	}
}

func TestOrderService_Checkout_Publishes(t *testing.T) {
	pub := &mockPublisher{}
	f := newCheckoutFixture(pub)
	ctx := context.Background()
	userID := uuid.New()
	_, err := f.cart.AddItem(ctx, userID, seedProduct(f.products, "Cups", "5.00"), 1)
	require.NoError(t, err)

	pub.On("PublishOrderPlaced", mock.Anything, mock.MatchedBy(func(msg model.OrderPlacedMessage) bool {
		return msg.UserID == userID
	})).Return(nil).Once()

	order, err := f.svc.Checkout(ctx, userID, shipping)
	require.NoError(t, err)
	pub.AssertExpectations(t)
	pub.AssertCalled(t, "PublishOrderPlaced", mock.Anything, model.OrderPlacedMessage{OrderID: order.ID, UserID: userID})
}

func TestOrderService_Checkout_PublishFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f := newCheckoutFixture(pub)
	ctx := context.Background()
	userID := uuid.New()
	_, err := f.cart.AddItem(ctx, userID, seedProduct(f.products, "Cups", "5.00"), 1)
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, userID, shipping)
	require.NoError(t, err)
	assert.Contains(t, f.orders.orders, order.ID)
	assert.Contains(t, f.logs.String(), "broker down")
}

func TestOrderService_GetByID_OtherUser(t *testing.T) {
	f := newCheckoutFixture(nil)
	ctx := context.Background()
	owner := uuid.New()
	_, err := f.cart.AddItem(ctx, owner, seedProduct(f.products, "Cups", "5.00"), 1)
	require.NoError(t, err)
	order, err := f.svc.Checkout(ctx, owner, shipping)
	require.NoError(t, err)

	_, err = f.svc.GetByID(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetByID(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_SetStatus(t *testing.T) {
	f := newCheckoutFixture(nil)
	id := uuid.New()
	f.orders.orders[id] = &model.Order{ID: id, Status: model.OrderStatusPending}
	ctx := context.Background()

	st, err := f.svc.SetStatus(ctx, id, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, st)

	st, err = f.svc.SetStatus(ctx, id, "Pending")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, f.orders.orders[id].Status, "transitions are not restricted")
	assert.Equal(t, model.OrderStatusPending, st)

	_, err = f.svc.SetStatus(ctx, id, "shipped")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, model.OrderStatusPending, f.orders.orders[id].Status)

	_, err = f.svc.SetStatus(ctx, uuid.New(), "cancelled")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_Delete(t *testing.T) {
	f := newCheckoutFixture(nil)
	id := uuid.New()
	f.orders.orders[id] = &model.Order{ID: id}

	require.NoError(t, f.svc.Delete(context.Background(), id))
	assert.Empty(t, f.orders.orders)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), id), ErrOrderNotFound)
}

func TestOrderService_ListByUserID_NewestFirst(t *testing.T) {
	f := newCheckoutFixture(nil)
	ctx := context.Background()
	userID := uuid.New()
	pid := seedProduct(f.products, "Cups", "5.00")

	var placed []uuid.UUID
	for range 2 {
		_, err := f.cart.AddItem(ctx, userID, pid, 1)
		require.NoError(t, err)
		order, err := f.svc.Checkout(ctx, userID, shipping)
		require.NoError(t, err)
		placed = append(placed, order.ID)
	}

	orders, err := f.svc.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, placed[1], orders[0].ID)
	assert.Equal(t, placed[0], orders[1].ID)
}

func TestOrderService_ExportXLSX(t *testing.T) {
	f := newCheckoutFixture(nil)
	id := uuid.New()
	f.orders.orders[id] = &model.Order{ID: id, Status: model.OrderStatusPending}

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportXLSX(context.Background(), &buf))
	assert.NotZero(t, buf.Len())
}
