package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront/internal/model"
)

// ProductQuery selects a page of the catalog. Sort is one of name, price or
// created_at; anything else sorts by created_at.
type ProductQuery struct {
	Search string
	Sort   string
	Desc   bool
	Limit  int
	Offset int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, q ProductQuery) ([]model.Product, int, error)
	// Update writes name, description and price. The image is left alone.
	Update(ctx context.Context, product *model.Product) error
	// SwapImage stores product.ImageURL, refreshes product from the row and
	// returns the URL it replaced.
	SwapImage(ctx context.Context, product *model.Product) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const productColumns = `id, name, description, price, image_url, created_at, updated_at`

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Price, product.ImageURL,
	)
	if err := scanProduct(row, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List matches Search against name and description. The total is the number
// of matches regardless of paging.
func (r *pgProductRepo) List(ctx context.Context, q ProductQuery) ([]model.Product, int, error) {
	const where = `$1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'`

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`, COUNT(*) OVER ()
		FROM products
		WHERE `+where+`
		ORDER BY
			CASE WHEN $2 = 'name'  AND NOT $3 THEN name END ASC,
			CASE WHEN $2 = 'name'  AND $3     THEN name END DESC,
			CASE WHEN $2 = 'price' AND NOT $3 THEN price END ASC,
			CASE WHEN $2 = 'price' AND $3     THEN price END DESC,
			CASE WHEN $2 NOT IN ('name', 'price') AND NOT $3 THEN created_at END ASC,
			CASE WHEN $2 NOT IN ('name', 'price') AND $3     THEN created_at END DESC,
			id
		LIMIT $4 OFFSET $5`,
		q.Search, q.Sort, q.Desc, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []model.Product
		total    int
	)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	// A page past the end carries no window count.
	if len(products) == 0 && q.Offset > 0 {
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, q.Search).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}
	return products, total, nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	row := r.pool.QueryRow(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Price,
	)
	err := scanProduct(row, product)
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) SwapImage(ctx context.Context, product *model.Product) (string, error) {
	var previous string
	err := r.pool.QueryRow(ctx,
		`UPDATE products p SET image_url = $2, updated_at = NOW()
		 FROM (SELECT id, image_url FROM products WHERE id = $1 FOR UPDATE) old
		 WHERE p.id = old.id
		 RETURNING old.image_url, p.name, p.description, p.price, p.image_url, p.created_at, p.updated_at`,
		product.ID, product.ImageURL,
	).Scan(&previous, &product.Name, &product.Description, &product.Price, &product.ImageURL, &product.CreatedAt, &product.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("swap product image: %w", err)
	}
	return previous, nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
