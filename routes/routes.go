package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront-bff/controllers"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/models"
)

// Controllers groups every handler set mounted under /bff.
type Controllers struct {
	BFF       *controllers.BFFController
	Cart      *controllers.CartController
	Dashboard *controllers.DashboardController
	Seller    *controllers.SellerController
	Draft     *controllers.DraftController
}

// RegisterRoutes mounts the storefront routes. sessions must already run on r
// so every /bff handler sees a resolved session.
func RegisterRoutes(r *gin.Engine, ctrl Controllers) {
	r.GET("/health", ctrl.BFF.Health)

	// Public routes - anonymous devices allowed
	public := r.Group("/bff")
	{
		public.POST("/auth/register", ctrl.BFF.Proxy(http.MethodPost, "/auth/register"))
		public.POST("/auth/login", ctrl.BFF.Login)
		public.POST("/auth/verify-email", ctrl.BFF.Proxy(http.MethodPost, "/auth/verify-email"))
		public.POST("/auth/refresh", ctrl.BFF.Proxy(http.MethodPost, "/auth/refresh"))

		public.GET("/products", ctrl.BFF.Proxy(http.MethodGet, "/products"))
		public.GET("/products/:id", ctrl.BFF.ProductByID)
		public.GET("/categories", ctrl.BFF.Proxy(http.MethodGet, "/categories"))
		public.GET("/home", ctrl.BFF.Home)

		// Cart page: anonymous carts live under the device's persisted cart id
		public.GET("/cart", ctrl.Cart.GetCart)
		public.POST("/cart/add", ctrl.Cart.AddItem)
		public.DELETE("/cart", ctrl.Cart.RemoveItemBody)
		public.DELETE("/cart/remove/:product_id", ctrl.Cart.RemoveItem)

		// Form autosave is per device
		public.GET("/drafts/:form", ctrl.Draft.Restore)
		public.PUT("/drafts/:form", ctrl.Draft.Save)
		public.DELETE("/drafts/:form", ctrl.Draft.Discard)
	}

	// Protected routes - require an authenticated session
	protected := r.Group("/bff")
	protected.Use(middleware.RequireAuthenticated())
	{
		protected.POST("/auth/logout", ctrl.BFF.Proxy(http.MethodPost, "/auth/logout"))
		protected.GET("/auth/status", ctrl.BFF.Proxy(http.MethodGet, "/auth/status"))

		protected.GET("/orders", ctrl.BFF.Proxy(http.MethodGet, "/orders"))
		protected.GET("/orders/:id", ctrl.BFF.OrderByID)

		protected.GET("/profile", ctrl.BFF.Profile)
		protected.PUT("/users/profile", ctrl.BFF.Proxy(http.MethodPut, "/users/profile"))
		protected.POST("/users/change-password", ctrl.BFF.Proxy(http.MethodPost, "/users/change-password"))
	}

	// Seller dashboard - sellers and admins
	seller := r.Group("/bff")
	seller.Use(middleware.RequireAuthenticated(), middleware.RequireRole(models.RoleSeller, models.RoleAdmin))
	{
		seller.GET("/dashboard", ctrl.Dashboard.Stats)
		seller.GET("/seller/permissions", ctrl.Seller.MyPermissions)

		seller.POST("/seller/orders/:id/confirm", ctrl.Seller.ConfirmOrder)
		seller.POST("/seller/orders/:id/cancel", ctrl.Seller.CancelOrder)
		seller.PUT("/seller/orders/:id", ctrl.Seller.EditOrder)
		seller.DELETE("/seller/orders/:id", ctrl.Seller.DeleteOrder)
		seller.POST("/seller/customers", ctrl.Seller.CreateCustomer)

		seller.POST("/drafts/:form/media", ctrl.Draft.MediaUploadURL)
	}

	admin := r.Group("/bff/admin")
	admin.Use(middleware.RequireAuthenticated(), middleware.RequireRole(models.RoleAdmin))
	{
		admin.PUT("/sellers/:id/status", ctrl.Seller.UpdateStatus)
	}
}
