package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrQuantityLimit is returned when a write would push a cart line past
// model.MaxCartQuantity.
var ErrQuantityLimit = errors.New("cart quantity limit exceeded")

type CartRepository interface {
	AddItem(ctx context.Context, item *model.CartItem) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ListLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
	// LockLines reads the cart inside tx and locks the rows until tx ends.
	LockLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.CartLine, error)
	// DeleteItems removes exactly the given items of userID inside tx.
	DeleteItems(ctx context.Context, tx pgx.Tx, userID uuid.UUID, itemIDs []uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

// AddItem inserts the item or, when the user already has that product in the
// cart, adds item.Quantity to the stored quantity. item is updated with the
// resulting row.
func (r *pgCartRepo) AddItem(ctx context.Context, item *model.CartItem) error {
	query := `INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			  RETURNING id, quantity, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, uuid.New(), item.UserID, item.ProductID, item.Quantity).
		Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if isQuantityViolation(err) {
		return ErrQuantityLimit
	}
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func isQuantityViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514" && pgErr.ConstraintName == "cart_items_quantity_range"
}

func (r *pgCartRepo) GetItem(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	item := &model.CartItem{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, product_id, quantity, created_at, updated_at FROM cart_items WHERE id = $1`, itemID,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

func (r *pgCartRepo) UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, quantity,
	)
	if isQuantityViolation(err) {
		return ErrQuantityLimit
	}
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) ListLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	return listLines(ctx, r.pool, userID, false)
}

func (r *pgCartRepo) LockLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.CartLine, error) {
	return listLines(ctx, tx, userID, true)
}

func listLines(ctx context.Context, q querier, userID uuid.UUID, lock bool) ([]model.CartLine, error) {
	query := `SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
				     p.name, p.price, p.image_url
			  FROM cart_items ci
			  JOIN products p ON p.id = ci.product_id
			  WHERE ci.user_id = $1
			  ORDER BY ci.created_at, ci.id`
	if lock {
		query += ` FOR UPDATE OF ci`
	}

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
			&l.ProductName, &l.Price, &l.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *pgCartRepo) DeleteItems(ctx context.Context, tx pgx.Tx, userID uuid.UUID, itemIDs []uuid.UUID) error {
	ct, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`, userID, itemIDs)
	if err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if ct.RowsAffected() != int64(len(itemIDs)) {
		return fmt.Errorf("delete cart items: removed %d of %d rows", ct.RowsAffected(), len(itemIDs))
	}
	return nil
}
