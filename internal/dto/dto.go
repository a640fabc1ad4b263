package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,nefield=CurrentPassword"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Users (admin) ---

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Password string `json:"password" binding:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

// --- Product ---

// CreateProductForm is bound from a multipart form; the image travels as the
// "image" file part.
type CreateProductForm struct {
	Name        string `form:"name" binding:"required,max=100"`
	Description string `form:"description" binding:"required"`
	Price       string `form:"price" binding:"required"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string          `json:"description" binding:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
	Sort   string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=10000"`
}

// UpdateCartItemRequest accepts zero or negative quantities, which remove the line.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=10000"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

func ToCartResponse(cart *model.Cart) CartResponse {
	resp := CartResponse{Items: make([]CartItemResponse, 0, len(cart.Lines)), Total: cart.Total}
	for _, l := range cart.Lines {
		resp.Items = append(resp.Items, CartItemResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      l.ProductName,
			ImageURL:  l.ImageURL,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Total:     l.Total(),
		})
	}
	return resp
}

// --- Order ---

type CheckoutRequest struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Address  string `json:"address" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"required,max=20"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID         uuid.UUID           `json:"id"`
	UserID     uuid.UUID           `json:"user_id"`
	FullName   string              `json:"full_name"`
	Address    string              `json:"address"`
	Phone      string              `json:"phone"`
	Status     model.OrderStatus   `json:"status"`
	TotalPrice decimal.Decimal     `json:"total_price"`
	Items      []OrderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

func ToOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		FullName:   o.FullName,
		Address:    o.Address,
		Phone:      o.Phone,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		Items:      make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Total:       it.Total(),
		})
	}
	return resp
}

func ToOrderListResponse(orders []model.Order) OrderListResponse {
	resp := OrderListResponse{Orders: make([]OrderResponse, 0, len(orders)), Total: len(orders)}
	for i := range orders {
		resp.Orders = append(resp.Orders, ToOrderResponse(&orders[i]))
	}
	return resp
}

// --- Settings ---

type SettingsResponse struct {
	BackgroundImage   string    `json:"background_image"`
	PrimaryColor      string    `json:"primary_color"`
	SecondaryColor    string    `json:"secondary_color"`
	AccentColor       string    `json:"accent_color"`
	TextColor         string    `json:"text_color"`
	HeaderText        string    `json:"header_text"`
	HeaderDescription string    `json:"header_description"`
	Phone1            string    `json:"phone1"`
	Phone2            string    `json:"phone2"`
	WhatsApp          string    `json:"whatsapp"`
	Email             string    `json:"email"`
	Address           string    `json:"address"`
	LocationURL       string    `json:"location_url"`
	FacebookURL       string    `json:"facebook_url"`
	InstagramURL      string    `json:"instagram_url"`
	TwitterURL        string    `json:"twitter_url"`
	AboutTitle        string    `json:"about_title"`
	AboutDescription  string    `json:"about_description"`
	AboutServices     string    `json:"about_services"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is a partial update: nil fields keep their value.
type UpdateSettingsRequest struct {
	PrimaryColor      *string `json:"primary_color" binding:"omitempty,hexcolor"`
	SecondaryColor    *string `json:"secondary_color" binding:"omitempty,hexcolor"`
	AccentColor       *string `json:"accent_color" binding:"omitempty,hexcolor"`
	TextColor         *string `json:"text_color" binding:"omitempty,hexcolor"`
	HeaderText        *string `json:"header_text" binding:"omitempty,max=200"`
	HeaderDescription *string `json:"header_description" binding:"omitempty,max=500"`
	Phone1            *string `json:"phone1" binding:"omitempty,max=20"`
	Phone2            *string `json:"phone2" binding:"omitempty,max=20"`
	WhatsApp          *string `json:"whatsapp" binding:"omitempty,max=20"`
	Email             *string `json:"email" binding:"omitempty,email"`
	Address           *string `json:"address" binding:"omitempty,max=200"`
	LocationURL       *string `json:"location_url" binding:"omitempty,url"`
	FacebookURL       *string `json:"facebook_url" binding:"omitempty,url"`
	InstagramURL      *string `json:"instagram_url" binding:"omitempty,url"`
	TwitterURL        *string `json:"twitter_url" binding:"omitempty,url"`
	AboutTitle        *string `json:"about_title" binding:"omitempty,max=200"`
	AboutDescription  *string `json:"about_description"`
	AboutServices     *string `json:"about_services"`
}

// --- Contact ---

type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=120"`
	Phone   string `json:"phone" binding:"max=20"`
	Message string `json:"message" binding:"required"`
}

type ContactMessageResponse struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Phone     string              `json:"phone"`
	Message   string              `json:"message"`
	Status    model.MessageStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// --- Stats ---

type DailyStatsResponse struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}
