package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the subset of a backend order the BFF reads.
// TotalPrice accepts both JSON numbers and numeric strings.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId,omitempty"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	IsPaid      bool            `json:"isPaid"`
	IsDelivered bool            `json:"isDelivered"`
	Status      string          `json:"status,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	SellerID int64           `json:"sellerId,omitempty"`
}

// EditOrderRequest lists the order fields a seller may change.
type EditOrderRequest struct {
	ShippingAddress *string `json:"shippingAddress,omitempty"`
	IsPaid          *bool   `json:"isPaid,omitempty"`
	IsDelivered     *bool   `json:"isDelivered,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type OrderStatusPayload struct {
	Status string `json:"status"`
}

// CreateCustomerRequest is used by sellers to register a customer account.
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=120"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone,omitempty"`
}
