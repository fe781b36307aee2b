package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/models"
	"github.com/yashrajoria/storefront-bff/services"
)

// DraftController exposes form autosave, keyed by device and form name.
type DraftController struct {
	drafts services.DraftService
}

func NewDraftController(drafts services.DraftService) *DraftController {
	return &DraftController{drafts: drafts}
}

// Restore handles GET /bff/drafts/:form.
func (dc *DraftController) Restore(c *gin.Context) {
	draft, appErr := dc.drafts.Restore(c.Request.Context(), middleware.GetSession(c).DeviceID, c.Param("form"))
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// Save handles PUT /bff/drafts/:form.
func (dc *DraftController) Save(c *gin.Context) {
	var req models.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}

	draft, appErr := dc.drafts.Save(c.Request.Context(), middleware.GetSession(c).DeviceID, c.Param("form"), req.Payload)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// Discard handles DELETE /bff/drafts/:form.
func (dc *DraftController) Discard(c *gin.Context) {
	if appErr := dc.drafts.Discard(c.Request.Context(), middleware.GetSession(c).DeviceID, c.Param("form")); appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.Status(http.StatusNoContent)
}

// MediaUploadURL handles POST /bff/drafts/:form/media.
func (dc *DraftController) MediaUploadURL(c *gin.Context) {
	var req models.MediaUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": apperrors.KindValidation, "details": err.Error()})
		return
	}

	upload, appErr := dc.drafts.MediaUploadURL(c.Request.Context(), middleware.GetSession(c).DeviceID, c.Param("form"), &req)
	if appErr != nil {
		apperrors.Respond(c, appErr)
		return
	}
	c.JSON(http.StatusOK, upload)
}
