package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
	"github.com/flicky/storefront/internal/storage"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, q repository.ProductQuery) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		if q.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			all = append(all, *p)
		}
	}
	total := len(all)
	if q.Offset >= total {
		return nil, total, nil
	}
	return all[q.Offset:min(q.Offset+q.Limit, total)], total, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	stored, ok := m.products[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	cp.ImageURL = stored.ImageURL
	m.products[p.ID] = &cp
	*p = cp
	return nil
}

func (m *mockProductRepo) SwapImage(_ context.Context, p *model.Product) (string, error) {
	stored, ok := m.products[p.ID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	previous := stored.ImageURL
	stored.ImageURL = p.ImageURL
	*p = *stored
	return previous, nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.products, id)
	return nil
}

type mockImageStore struct {
	saved   map[string]string
	removed []string
	saveErr error
	n       int
}

func newMockImageStore() *mockImageStore {
	return &mockImageStore{saved: make(map[string]string)}
}

func (m *mockImageStore) Save(filename string, r io.Reader, prefix string) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.n++
	url := fmt.Sprintf("/static/uploads/%s%d_%s", prefix, m.n, filename)
	m.saved[url] = string(body)
	return url, nil
}

func (m *mockImageStore) Remove(publicURL string) error {
	m.removed = append(m.removed, publicURL)
	delete(m.saved, publicURL)
	return nil
}

func upload(name string) *ImageUpload {
	return &ImageUpload{Filename: name, Body: strings.NewReader("img")}
}

func TestProductService_Create(t *testing.T) {
	images := newMockImageStore()
	svc := NewProductService(newMockProductRepo(), nil, images, nil)

	resp, err := svc.Create(context.Background(), dto.CreateProductForm{
		Name: " Cups ", Description: "Paper cups", Price: "9.99",
	}, upload("cups.png"))
	require.NoError(t, err)
	assert.Equal(t, "Cups", resp.Name)
	assert.Equal(t, "9.99", resp.Price.StringFixed(2))
	assert.Equal(t, "/static/uploads/1_cups.png", resp.ImageURL)
	assert.Contains(t, images.saved, resp.ImageURL)
}

func TestProductService_Create_Invalid(t *testing.T) {
	images := newMockImageStore()
	svc := NewProductService(newMockProductRepo(), nil, images, nil)
	ctx := context.Background()

	for _, price := range []string{"0", "-1", "abc", ""} {
		_, err := svc.Create(ctx, dto.CreateProductForm{Name: "Cups", Description: "d", Price: price}, upload("a.png"))
		assert.ErrorIs(t, err, ErrInvalidPrice, price)
	}

	_, err := svc.Create(ctx, dto.CreateProductForm{Name: "Cups", Description: "d", Price: "1"}, nil)
	assert.ErrorIs(t, err, ErrImageRequired)

	_, err = svc.Create(ctx, dto.CreateProductForm{Name: "  ", Description: "d", Price: "1"}, upload("a.png"))
	assert.ErrorIs(t, err, ErrProductName)
	assert.Empty(t, images.saved)

	images.saveErr = storage.ErrUnsupportedType
	_, err = svc.Create(ctx, dto.CreateProductForm{Name: "Cups", Description: "d", Price: "1"}, upload("a.pdf"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, storage.ErrUnsupportedType)

	images.saveErr = errors.New("disk full")
	_, err = svc.Create(ctx, dto.CreateProductForm{Name: "Cups", Description: "d", Price: "1"}, upload("a.png"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, nil, nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductService_List(t *testing.T) {
	repo := newMockProductRepo()
	seedProduct(repo, "Cups", "1")
	seedProduct(repo, "Plates", "2")
	svc := NewProductService(repo, nil, nil, nil)

	resp, err := svc.List(context.Background(), dto.ListProductsRequest{Page: 1, Limit: 20, Search: "cup"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Cups", resp.Products[0].Name)
}

func TestProductService_Update(t *testing.T) {
	repo := newMockProductRepo()
	id := seedProduct(repo, "Cups", "5.00")
	svc := NewProductService(repo, nil, nil, nil)
	ctx := context.Background()

	name := "Big cups"
	price := decimal.RequireFromString("6.25")
	resp, err := svc.Update(ctx, id, dto.UpdateProductRequest{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Big cups", resp.Name)
	assert.Equal(t, "6.25", repo.products[id].Price.StringFixed(2))

	zero := decimal.Zero
	_, err = svc.Update(ctx, id, dto.UpdateProductRequest{Price: &zero})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.Update(ctx, uuid.New(), dto.UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, ErrProductNotFound)

	blank := "   "
	_, err = svc.Update(ctx, id, dto.UpdateProductRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrProductName)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Big cups", repo.products[id].Name)
}

func TestProductService_SetImage(t *testing.T) {
	repo := newMockProductRepo()
	id := seedProduct(repo, "Cups", "5.00")
	repo.products[id].ImageURL = "/static/uploads/old.png"
	images := newMockImageStore()
	svc := NewProductService(repo, nil, images, nil)

	resp, err := svc.SetImage(context.Background(), id, upload("new.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/1_new.jpg", resp.ImageURL)
	assert.Equal(t, resp.ImageURL, repo.products[id].ImageURL)
	assert.Equal(t, "Cups", resp.Name)
	assert.Equal(t, []string{"/static/uploads/old.png"}, images.removed)

	_, err = svc.SetImage(context.Background(), uuid.New(), upload("new.jpg"))
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	id := seedProduct(repo, "Cups", "5.00")
	repo.products[id].ImageURL = "/static/uploads/cups.png"
	images := newMockImageStore()
	svc := NewProductService(repo, nil, images, nil)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Empty(t, repo.products)
	assert.Equal(t, []string{"/static/uploads/cups.png"}, images.removed)

	assert.ErrorIs(t, svc.Delete(context.Background(), id), ErrProductNotFound)
}
