package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront/internal/model"
)

func seedUserAndProducts(t *testing.T, prices ...string) (*model.User, []*model.Product) {
	t.Helper()
	ctx := context.Background()

	user := &model.User{Username: "u-" + uuid.NewString()[:8], Password: "h"}
	require.NoError(t, NewUserRepository(testPool).Create(ctx, user))

	productRepo := NewProductRepository(testPool)
	var products []*model.Product
	for i, price := range prices {
		p := &model.Product{Name: string(rune('A' + i)), Description: "D", Price: decimal.RequireFromString(price)}
		require.NoError(t, productRepo.Create(ctx, p))
		products = append(products, p)
	}
	return user, products
}

func TestUserRepo_CreateAndGetByUsername(t *testing.T) {
	cleanupAll(t)

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{Username: "admin", Password: "hashed", IsAdmin: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.True(t, found.IsAdmin)

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	found, _ = repo.GetByID(ctx, user.ID)
	assert.Equal(t, "new-hash", found.Password)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupAll(t)

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	product := &model.Product{
		Name: "Test", Description: "Desc",
		Price: decimal.NewFromFloat(29.99), ImageURL: "/static/uploads/1_a.png",
	}
	require.NoError(t, repo.Create(ctx, product))
	assert.NotEqual(t, uuid.Nil, product.ID)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", found.Name)
	assert.True(t, product.Price.Equal(found.Price))

	product.Name = "Updated"
	require.NoError(t, repo.Update(ctx, product))

	found, _ = repo.GetByID(ctx, product.ID)
	assert.Equal(t, "Updated", found.Name)

	products, total, err := repo.List(ctx, ProductQuery{Search: "upd", Sort: "name", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, products, 1)

	product.ImageURL = "/static/uploads/2_b.png"
	previous, err := repo.SwapImage(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/1_a.png", previous)
	assert.Equal(t, "Updated", product.Name)

	_, err = repo.SwapImage(ctx, &model.Product{ID: uuid.New(), ImageURL: "x"})
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Nil(t, found)
}

func TestProductRepo_ListSortAndPaging(t *testing.T) {
	cleanupAll(t)

	_, products := seedUserAndProducts(t, "3", "1", "2")
	repo := NewProductRepository(testPool)
	ctx := context.Background()

	page, total, err := repo.List(ctx, ProductQuery{Sort: "price", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.True(t, page[0].Price.Equal(decimal.NewFromInt(1)))
	assert.True(t, page[1].Price.Equal(decimal.NewFromInt(2)))

	page, _, err = repo.List(ctx, ProductQuery{Sort: "price", Desc: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, products[0].ID, page[0].ID)

	page, total, err = repo.List(ctx, ProductQuery{Sort: "bogus", Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, 3, total)
}

func TestCartRepo_AddItemMergesQuantity(t *testing.T) {
	cleanupAll(t)

	user, products := seedUserAndProducts(t, "15")
	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	first := &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: 2}
	require.NoError(t, cartRepo.AddItem(ctx, first))
	second := &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: 3}
	require.NoError(t, cartRepo.AddItem(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	lines, err := cartRepo.ListLines(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.True(t, lines[0].Price.Equal(decimal.NewFromInt(15)))
}

func TestCartRepo_QuantityLimit(t *testing.T) {
	cleanupAll(t)

	user, products := seedUserAndProducts(t, "15")
	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	item := &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: model.MaxCartQuantity}
	require.NoError(t, cartRepo.AddItem(ctx, item))

	err := cartRepo.AddItem(ctx, &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrQuantityLimit)

	err = cartRepo.UpdateQuantity(ctx, item.ID, model.MaxCartQuantity+1)
	assert.ErrorIs(t, err, ErrQuantityLimit)

	lines, err := cartRepo.ListLines(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, model.MaxCartQuantity, lines[0].Quantity)
}

func TestCheckoutTx_CommitSnapshotsAndClearsCart(t *testing.T) {
	cleanupAll(t)

	user, products := seedUserAndProducts(t, "2.5", "10.0")
	cartRepo := NewCartRepository(testPool)
	orderRepo := NewOrderRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: 3}))
	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{UserID: user.ID, ProductID: products[1].ID, Quantity: 1}))

	tx, err := orderRepo.BeginTx(ctx)
	require.NoError(t, err)
	lines, err := cartRepo.LockLines(ctx, tx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	order := model.NewOrderFromCart(user.ID, model.ShippingInfo{FullName: "N", Address: "A", Phone: "P"}, lines)
	require.NoError(t, orderRepo.Create(ctx, tx, order))
	ids := []uuid.UUID{lines[0].ID, lines[1].ID}
	require.NoError(t, cartRepo.DeleteItems(ctx, tx, user.ID, ids))
	require.NoError(t, tx.Commit(ctx))

	remaining, err := cartRepo.ListLines(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// catalog price change must not reach the order
	products[0].Price = decimal.NewFromInt(99)
	require.NoError(t, productRepo.Update(ctx, products[0]))

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.TotalPrice.Equal(decimal.RequireFromString("17.5")), found.TotalPrice.String())
	require.Len(t, found.Items, 2)
	prices := []string{found.Items[0].Price.StringFixed(2), found.Items[1].Price.StringFixed(2)}
	assert.ElementsMatch(t, []string{"2.50", "10.00"}, prices)
	assert.Equal(t, model.OrderStatusPending, found.Status)
}

func TestCheckoutTx_RollbackLeavesCartIntact(t *testing.T) {
	cleanupAll(t)

	user, products := seedUserAndProducts(t, "4")
	cartRepo := NewCartRepository(testPool)
	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: 2}))

	tx, err := orderRepo.BeginTx(ctx)
	require.NoError(t, err)
	lines, err := cartRepo.LockLines(ctx, tx, user.ID)
	require.NoError(t, err)
	order := model.NewOrderFromCart(user.ID, model.ShippingInfo{FullName: "N", Address: "A", Phone: "P"}, lines)
	require.NoError(t, orderRepo.Create(ctx, tx, order))
	require.NoError(t, cartRepo.DeleteItems(ctx, tx, user.ID, []uuid.UUID{lines[0].ID}))
	require.NoError(t, tx.Rollback(ctx))

	remaining, err := cartRepo.ListLines(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 2, remaining[0].Quantity)

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestOrderRepo_StatusAndDelete(t *testing.T) {
	cleanupAll(t)

	user, products := seedUserAndProducts(t, "25")
	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	tx, err := orderRepo.BeginTx(ctx)
	require.NoError(t, err)
	order := model.NewOrderFromCart(user.ID, model.ShippingInfo{FullName: "N", Address: "A", Phone: "P"},
		[]model.CartLine{{CartItem: model.CartItem{ProductID: products[0].ID, Quantity: 2}, ProductName: "A", Price: products[0].Price}})
	require.NoError(t, orderRepo.Create(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusCompleted))
	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPending))

	all, err := orderRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.OrderStatusPending, all[0].Status)
	assert.Len(t, all[0].Items, 1)

	require.NoError(t, orderRepo.Delete(ctx, order.ID))
	var items int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&items))
	assert.Zero(t, items)
	assert.Error(t, orderRepo.Delete(ctx, order.ID))
}

func TestSettingsRepo_EnsureOnce(t *testing.T) {
	cleanupAll(t)

	repo := NewSettingsRepository(testPool)
	ctx := context.Background()

	created, err := repo.Ensure(ctx, model.DefaultSettings())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Ensure(ctx, model.DefaultSettings())
	require.NoError(t, err)
	assert.False(t, created)

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	s.PrimaryColor = "#000000"
	require.NoError(t, repo.Update(ctx, s))

	var rows int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM settings`).Scan(&rows))
	assert.Equal(t, 1, rows)

	s, _ = repo.Get(ctx)
	assert.Equal(t, "#000000", s.PrimaryColor)
}

func TestContactRepo_CreateListMarkRead(t *testing.T) {
	cleanupAll(t)

	repo := NewContactRepository(testPool)
	ctx := context.Background()

	msg := &model.ContactMessage{Name: "N", Email: "n@example.com", Message: "hi", Status: model.MessageStatusUnread}
	require.NoError(t, repo.Create(ctx, msg))
	require.NoError(t, repo.SetStatus(ctx, msg.ID, model.MessageStatusRead))

	msgs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.MessageStatusRead, msgs[0].Status)
}

func TestProductDelete_KeepsOrderHistory(t *testing.T) {
	cleanupAll(t)

	user, products := seedUserAndProducts(t, "3")
	cartRepo := NewCartRepository(testPool)
	orderRepo := NewOrderRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	tx, err := orderRepo.BeginTx(ctx)
	require.NoError(t, err)
	order := model.NewOrderFromCart(user.ID, model.ShippingInfo{FullName: "N", Address: "A", Phone: "P"},
		[]model.CartLine{{CartItem: model.CartItem{ProductID: products[0].ID, Quantity: 1}, ProductName: "A", Price: products[0].Price}})
	require.NoError(t, orderRepo.Create(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{UserID: user.ID, ProductID: products[0].ID, Quantity: 1}))
	require.NoError(t, productRepo.Delete(ctx, products[0].ID))

	lines, err := cartRepo.ListLines(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "cart lines go with the product")

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Nil(t, found.Items[0].ProductID)
	assert.Equal(t, "A", found.Items[0].ProductName)
	assert.Equal(t, "3.00", found.Items[0].Price.StringFixed(2))
}
