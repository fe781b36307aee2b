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

// SellerController covers seller administration and the permission-gated
// order actions of the seller dashboard.
type SellerController struct {
	sellers services.SellerService
	orders  services.OrderActions
}

func NewSellerController(sellers services.SellerService, orders services.OrderActions) *SellerController {
	return &SellerController{sellers: sellers, orders: orders}
}

// UpdateStatus handles PUT /bff/admin/sellers/:id/status (admin only).
func (sc *SellerController) UpdateStatus(c *gin.Context) {
	sellerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateSellerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}

	seller, appErr := sc.sellers.UpdateStatus(c.Request.Context(), middleware.GetSession(c), sellerID, &req)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seller": seller})
}

// MyPermissions handles GET /bff/seller/permissions.
func (sc *SellerController) MyPermissions(c *gin.Context) {
	perms, appErr := sc.sellers.MyPermissions(c.Request.Context(), middleware.GetSession(c))
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// ConfirmOrder handles POST /bff/seller/orders/:id/confirm.
func (sc *SellerController) ConfirmOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, appErr := sc.orders.Confirm(c.Request.Context(), middleware.GetSession(c), orderID)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder handles POST /bff/seller/orders/:id/cancel.
func (sc *SellerController) CancelOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, appErr := sc.orders.Cancel(c.Request.Context(), middleware.GetSession(c), orderID)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// EditOrder handles PUT /bff/seller/orders/:id.
func (sc *SellerController) EditOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.EditOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}

	order, appErr := sc.orders.Edit(c.Request.Context(), middleware.GetSession(c), orderID, &req)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// DeleteOrder handles DELETE /bff/seller/orders/:id.
func (sc *SellerController) DeleteOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if appErr := sc.orders.Delete(c.Request.Context(), middleware.GetSession(c), orderID); appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// CreateCustomer handles POST /bff/seller/customers.
func (sc *SellerController) CreateCustomer(c *gin.Context) {
	var req models.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}

	customer, appErr := sc.orders.CreateCustomer(c.Request.Context(), middleware.GetSession(c), &req)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		apperrors.Respond(c, apperrors.Validation(http.StatusBadRequest, "Invalid "+name))
		return 0, false
	}
	return id, true
}
