package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, RoleSeller, ParseRole("seller"))
	assert.Equal(t, RoleBuyer, ParseRole("customer"))
	assert.Equal(t, RoleBuyer, ParseRole(""))
}

func TestSession_CartKey(t *testing.T) {
	id := int64(42)
	assert.Equal(t, "user:7", Authenticated("d", 7, RoleBuyer, "t").CartKey())
	assert.Equal(t, "anon:42", Anonymous("d", &id).CartKey())
	assert.Equal(t, "anon:new", Anonymous("d", nil).CartKey())
	assert.Equal(t, "initializing", Initializing("d").CartKey())
}

func TestSession_AnonymousCopiesCartID(t *testing.T) {
	id := int64(42)
	sess := Anonymous("d", &id)
	id = 99

	assert.Equal(t, int64(42), *sess.CartID)
}

func TestSession_WithCartIDOnlyForAnonymous(t *testing.T) {
	adopted := Anonymous("d", nil).WithCartID(5)
	assert.Equal(t, int64(5), *adopted.CartID)

	auth := Authenticated("d", 7, RoleBuyer, "t").WithCartID(5)
	assert.Nil(t, auth.CartID)
}

func TestCart_TotalsAndNormalize(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: 1, Quantity: 2, Product: ProductSnapshot{Price: decimal.RequireFromString("0.10")}},
		{ProductID: 2, Quantity: 1, Product: ProductSnapshot{Price: decimal.RequireFromString("0.20")}},
	}}

	assert.Equal(t, 3, cart.ItemCount())
	assert.True(t, cart.Subtotal().Equal(decimal.RequireFromString("0.40")))

	view := NewCartView(Cart{}, nil)
	assert.NotNil(t, view.Cart.Items)
	assert.Zero(t, view.ItemCount)
}

func TestPermissions_Allows(t *testing.T) {
	p := Permissions{CanConfirmOrder: true}

	assert.True(t, p.Allows(CapConfirmOrder))
	assert.False(t, p.Allows(CapDeleteOrder))
	assert.False(t, p.Allows(Capability("launchRockets")))
	assert.True(t, AllPermissions().Allows(CapCreateCustomers))
}
