package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront/internal/export"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

var (
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrOrderAccessDenied = fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown order status", ErrValidation)
	ErrInvalidShipping   = fmt.Errorf("%w: full name, address and phone are required", ErrValidation)
)

// OrderPublisher announces committed orders to background consumers.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, msg model.OrderPlacedMessage) error
}

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	publisher OrderPublisher
	log       *slog.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, publisher OrderPublisher, log *slog.Logger) *OrderService {
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{orderRepo: orderRepo, cartRepo: cartRepo, publisher: publisher, log: log}
}

// Checkout turns the user's cart into a pending order. The order, its items
// and the removal of the cart lines commit together or not at all.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, info model.ShippingInfo) (*model.Order, error) {
	info.FullName = strings.TrimSpace(info.FullName)
	info.Address = strings.TrimSpace(info.Address)
	info.Phone = strings.TrimSpace(info.Phone)
	if info.FullName == "" || info.Address == "" || info.Phone == "" {
		return nil, ErrInvalidShipping
	}

	order, err := s.placeOrder(ctx, userID, info)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			return nil, err
		}
		s.log.Error("checkout failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	s.log.Info("order placed", "order_id", order.ID, "user_id", userID,
		"items", len(order.Items), "total", order.TotalPrice.StringFixed(2))
	s.publishPlaced(ctx, order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, userID uuid.UUID, info model.ShippingInfo) (order *model.Order, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	lines, err := s.cartRepo.LockLines(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order = model.NewOrderFromCart(userID, info, lines)
	if err = s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	if err = s.cartRepo.DeleteItems(ctx, tx, userID, ids); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

func (s *OrderService) publishPlaced(ctx context.Context, order *model.Order) {
	if s.publisher == nil {
		return
	}
	msg := model.OrderPlacedMessage{OrderID: order.ID, UserID: order.UserID}
	if err := s.publisher.PublishOrderPlaced(ctx, msg); err != nil {
		s.log.Warn("publish order placed", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByIDAdmin(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// --- admin ---

func (s *OrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) GetByIDAdmin(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ExportXLSX writes every order with its items as a spreadsheet.
func (s *OrderService) ExportXLSX(ctx context.Context, w io.Writer) error {
	orders, err := s.ListAll(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteOrders(w, orders); err != nil {
		return fmt.Errorf("export orders: %w", err)
	}
	return nil
}

// SetStatus moves an order to any of the known statuses; transitions are not
// restricted.
func (s *OrderService) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (model.OrderStatus, error) {
	st, err := model.ParseOrderStatus(status)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	err = s.orderRepo.UpdateStatus(ctx, orderID, st)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update order status: %w", err)
	}
	s.log.Info("order status changed", "order_id", orderID, "status", st)
	return st, nil
}

func (s *OrderService) Delete(ctx context.Context, orderID uuid.UUID) error {
	err := s.orderRepo.Delete(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	s.log.Info("order deleted", "order_id", orderID)
	return nil
}
