package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Username  string
	Password  string
	IsAdmin   bool
	CreatedAt time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxCartQuantity caps the quantity of a single cart line.
const MaxCartQuantity = 10000

type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a cart item joined with the current catalog data of its product.
type CartLine struct {
	CartItem
	ProductName string
	Price       decimal.Decimal
	ImageURL    string
}

func (l CartLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	UserID uuid.UUID
	Lines  []CartLine
	Total  decimal.Decimal
}

// CartTotal sums price * quantity over lines.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

type ShippingInfo struct {
	FullName string
	Address  string
	Phone    string
}

type Order struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	FullName   string
	Address    string
	Phone      string
	Status     OrderStatus
	TotalPrice decimal.Decimal
	Items      []OrderItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem snapshots a cart line at checkout. ProductID is nil once the
// product has been deleted from the catalog.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (i OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderFromCart builds a pending order whose items freeze the prices of
// lines and whose total is their sum.
func NewOrderFromCart(userID uuid.UUID, info ShippingInfo, lines []CartLine) *Order {
	order := &Order{
		UserID:     userID,
		FullName:   info.FullName,
		Address:    info.Address,
		Phone:      info.Phone,
		Status:     OrderStatusPending,
		TotalPrice: decimal.Zero,
		Items:      make([]OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		pid := l.ProductID
		item := OrderItem{
			ProductID:   &pid,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       l.Price,
		}
		order.Items = append(order.Items, item)
		order.TotalPrice = order.TotalPrice.Add(item.Total())
	}
	return order
}

type Settings struct {
	BackgroundImage   string
	PrimaryColor      string
	SecondaryColor    string
	AccentColor       string
	TextColor         string
	HeaderText        string
	HeaderDescription string
	Phone1            string
	Phone2            string
	WhatsApp          string
	Email             string
	Address           string
	LocationURL       string
	FacebookURL       string
	InstagramURL      string
	TwitterURL        string
	AboutTitle        string
	AboutDescription  string
	AboutServices     string
	UpdatedAt         time.Time
}

func DefaultSettings() Settings {
	return Settings{
		BackgroundImage:   "/static/images/default-background.jpg",
		PrimaryColor:      "#139694",
		SecondaryColor:    "#ffffff",
		AccentColor:       "#ff0000",
		TextColor:         "#333333",
		HeaderText:        "Plastic World",
		HeaderDescription: "Quality plastic and paper products",
		Phone1:            "+965 1234 5678",
		Phone2:            "+965 8765 4321",
		WhatsApp:          "+965 1234 5678",
		Email:             "info@example.com",
		Address:           "Kuwait",
		LocationURL:       "https://goo.gl/maps/youraddress",
		FacebookURL:       "https://facebook.com/yourpage",
		InstagramURL:      "https://instagram.com/yourpage",
		TwitterURL:        "https://twitter.com/yourpage",
		AboutTitle:        "About us",
		AboutDescription:  "A leading supplier of plastic and paper products in Kuwait.",
		AboutServices:     "Quality plastic products\nA wide range of paper products\nFast and reliable delivery\nCompetitive prices",
	}
}

type MessageStatus string

const (
	MessageStatusUnread MessageStatus = "unread"
	MessageStatusRead   MessageStatus = "read"
)

type ContactMessage struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	Message   string
	Status    MessageStatus
	CreatedAt time.Time
}

type OrderPlacedMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
