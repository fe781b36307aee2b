package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/models"
	"github.com/yashrajoria/storefront-bff/services"
)

// CartController serves the cart page for anonymous and signed-in devices.
type CartController struct {
	carts services.CartService
}

func NewCartController(carts services.CartService) *CartController {
	return &CartController{carts: carts}
}

// GetCart handles GET /bff/cart.
func (cc *CartController) GetCart(c *gin.Context) {
	view, appErr := cc.carts.GetCart(c.Request.Context(), middleware.GetSession(c))
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /bff/cart/add.
func (cc *CartController) AddItem(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}

	result, appErr := cc.carts.AddItem(c.Request.Context(), middleware.GetSession(c), req.ProductID, req.Quantity)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	middleware.SetSession(c, result.Session)
	c.JSON(http.StatusOK, result.View)
}

// RemoveItem handles DELETE /bff/cart/remove/:product_id.
func (cc *CartController) RemoveItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		apperrors.Respond(c, apperrors.Validation(http.StatusBadRequest, "productId must be a positive integer"))
		return
	}
	cc.remove(c, productID)
}

// RemoveItemBody handles DELETE /bff/cart with a {productId} body.
func (cc *CartController) RemoveItemBody(c *gin.Context) {
	var req models.RemoveFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}
	cc.remove(c, req.ProductID)
}

func (cc *CartController) remove(c *gin.Context, productID int64) {
	result, appErr := cc.carts.RemoveItem(c.Request.Context(), middleware.GetSession(c), productID)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	middleware.SetSession(c, result.Session)
	c.JSON(http.StatusOK, result.View)
}
