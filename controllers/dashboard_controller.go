package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/services"
)

type DashboardController struct {
	dashboard services.DashboardService
}

func NewDashboardController(dashboard services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// Stats handles GET /bff/dashboard for admins and sellers.
func (dc *DashboardController) Stats(c *gin.Context) {
	stats, appErr := dc.dashboard.Stats(c.Request.Context(), middleware.GetSession(c))
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, stats)
}
