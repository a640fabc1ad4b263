package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
	"github.com/flicky/storefront/internal/storage"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrInvalidPrice    = fmt.Errorf("%w: price must be a positive number", ErrValidation)
	ErrImageRequired   = fmt.Errorf("%w: image is required", ErrValidation)
	ErrProductName     = fmt.Errorf("%w: product name must not be blank", ErrValidation)
)

const productCacheTTL = 60 * time.Second

// ImageStore persists uploaded images and hands back their public URL.
type ImageStore interface {
	Save(filename string, r io.Reader, prefix string) (string, error)
	Remove(publicURL string) error
}

// ImageUpload is an uploaded file as received by a handler.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
	images      ImageStore
	log         *slog.Logger
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client, images ImageStore, log *slog.Logger) *ProductService {
	if log == nil {
		log = slog.Default()
	}
	return &ProductService{productRepo: productRepo, redisClient: redisClient, images: images, log: log}
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductForm, image *ImageUpload) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrProductName
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrImageRequired
	}

	url, err := saveImage(s.images, image, "")
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        name,
		Description: req.Description,
		Price:       price,
		ImageURL:    url,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		s.removeImage(url)
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	// Try cache
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	// Write to cache
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.productRepo.List(ctx, repository.ProductQuery{
		Search: strings.TrimSpace(req.Search),
		Sort:   req.Sort,
		Desc:   req.Order != "asc",
		Limit:  req.Limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(&p))
	}

	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrProductName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		product.Price = *req.Price
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// SetImage replaces the product image and removes the previous file.
func (s *ProductService) SetImage(ctx context.Context, id uuid.UUID, image *ImageUpload) (*dto.ProductResponse, error) {
	if image == nil {
		return nil, ErrImageRequired
	}
	existing, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if existing == nil {
		return nil, ErrProductNotFound
	}

	url, err := saveImage(s.images, image, "")
	if err != nil {
		return nil, err
	}
	product := &model.Product{ID: id, ImageURL: url}
	previous, err := s.productRepo.SwapImage(ctx, product)
	if err != nil {
		s.removeImage(url)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("set product image: %w", err)
	}

	s.removeImage(previous)
	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// Delete removes the product. Cart lines holding it go with it; order items
// keep their snapshot and lose the product reference.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.removeImage(product.ImageURL)
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, productCacheKey(id))
	}
}

func (s *ProductService) removeImage(url string) {
	if s.images == nil || url == "" {
		return
	}
	if err := s.images.Remove(url); err != nil {
		s.log.Warn("remove image", "url", url, "error", err)
	}
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return price, nil
}

// saveImage stores an upload, reporting rejected files as validation errors.
func saveImage(images ImageStore, image *ImageUpload, prefix string) (string, error) {
	if images == nil {
		return "", errors.New("image storage is not configured")
	}
	url, err := images.Save(image.Filename, image.Body, prefix)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrNoFile) {
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return "", fmt.Errorf("save image: %w", err)
	}
	return url, nil
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
