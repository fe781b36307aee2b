package models

import "github.com/shopspring/decimal"

// ProductSnapshot carries the display fields of a product inside a cart line.
type ProductSnapshot struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

type CartItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

type Cart struct {
	ID    *int64     `json:"id,omitempty"`
	Items []CartItem `json:"items"`
}

// EmptyCart is the value rendered whenever a cart cannot be loaded.
func EmptyCart() Cart {
	return Cart{Items: []CartItem{}}
}

// Normalize guarantees a non-nil item slice.
func (c Cart) Normalize() Cart {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	return c
}

func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// AddToCartRequest is the BFF payload for adding a product.
type AddToCartRequest struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// RemoveFromCartRequest is the BFF payload for removing a product line.
type RemoveFromCartRequest struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
}

// CartMutationPayload is the body sent upstream for add and remove.
// CartID is omitted entirely for authenticated sessions.
type CartMutationPayload struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
	CartID    *int64 `json:"cartId,omitempty"`
}

// CartView is what the BFF returns for cart reads and mutations.
type CartView struct {
	Cart      Cart            `json:"cart"`
	CartID    *int64          `json:"cartId,omitempty"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewCartView(cart Cart, cartID *int64) CartView {
	cart = cart.Normalize()
	return CartView{
		Cart:      cart,
		CartID:    cartID,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
	}
}
