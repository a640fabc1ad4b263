package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

var (
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, model.MaxCartQuantity)
	ErrUnknownProduct    = fmt.Errorf("%w: product does not exist", ErrValidation)
	ErrCartItemNotFound  = fmt.Errorf("cart item %w", ErrNotFound)
	ErrCartItemForbidden = fmt.Errorf("%w: cart item belongs to another user", ErrForbidden)
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	lines, err := s.cartRepo.ListLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &model.Cart{UserID: userID, Lines: lines, Total: model.CartTotal(lines)}, nil
}

// AddItem puts quantity units of the product in the user's cart, merging with
// an existing line for the same product.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity < 1 || quantity > model.MaxCartQuantity {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrUnknownProduct
	}

	item := &model.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	err = s.cartRepo.AddItem(ctx, item)
	if errors.Is(err, repository.ErrQuantityLimit) {
		return nil, ErrInvalidQuantity
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem sets the quantity of a line; a quantity of zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity > model.MaxCartQuantity {
		return ErrInvalidQuantity
	}
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}

	if quantity <= 0 {
		err := s.cartRepo.DeleteItem(ctx, itemID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return err
	}

	err := s.cartRepo.UpdateQuantity(ctx, itemID, quantity)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrCartItemNotFound
	case errors.Is(err, repository.ErrQuantityLimit):
		return ErrInvalidQuantity
	}
	return err
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	err := s.cartRepo.DeleteItem(ctx, itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCartItemNotFound
	}
	return err
}

func (s *CartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartItem, error) {
	item, err := s.cartRepo.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if item.UserID != userID {
		return nil, ErrCartItemForbidden
	}
	return item, nil
}
