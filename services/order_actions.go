package services

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/models"
)

// OrderActions performs order operations that sellers may only run with
// the matching capability. Admins always pass, buyers never do.
type OrderActions interface {
	Confirm(ctx context.Context, sess models.Session, orderID int64) (map[string]any, *apperrors.Error)
	Edit(ctx context.Context, sess models.Session, orderID int64, req *models.EditOrderRequest) (map[string]any, *apperrors.Error)
	Cancel(ctx context.Context, sess models.Session, orderID int64) (map[string]any, *apperrors.Error)
	Delete(ctx context.Context, sess models.Session, orderID int64) *apperrors.Error
	CreateCustomer(ctx context.Context, sess models.Session, req *models.CreateCustomerRequest) (map[string]any, *apperrors.Error)
}

type orderActionsImpl struct {
	upstream Upstream
	sellers  SellerService
	logger   *zap.Logger
}

func NewOrderActions(upstream Upstream, sellers SellerService, logger *zap.Logger) OrderActions {
	return &orderActionsImpl{upstream: upstream, sellers: sellers, logger: logger}
}

func (o *orderActionsImpl) authorize(ctx context.Context, sess models.Session, capability models.Capability) *apperrors.Error {
	if appErr := requireRole(sess, models.RoleAdmin, models.RoleSeller); appErr != nil {
		return appErr
	}
	if sess.Role == models.RoleAdmin {
		return nil
	}

	perms, appErr := o.sellers.MyPermissions(ctx, sess)
	if appErr != nil {
		return appErr
	}
	if !perms.Allows(capability) {
		o.logger.Info("seller action denied",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.Int64("user_id", sess.UserID),
			zap.String("capability", string(capability)),
		)
		return apperrors.Forbidden("Your account is not permitted to perform this action")
	}
	return nil
}

func (o *orderActionsImpl) Confirm(ctx context.Context, sess models.Session, orderID int64) (map[string]any, *apperrors.Error) {
	return o.setStatus(ctx, sess, orderID, models.CapConfirmOrder, "confirmed")
}

func (o *orderActionsImpl) Cancel(ctx context.Context, sess models.Session, orderID int64) (map[string]any, *apperrors.Error) {
	return o.setStatus(ctx, sess, orderID, models.CapCancelOrder, "cancelled")
}

func (o *orderActionsImpl) setStatus(ctx context.Context, sess models.Session, orderID int64, capability models.Capability, status string) (map[string]any, *apperrors.Error) {
	if appErr := o.authorize(ctx, sess, capability); appErr != nil {
		return nil, appErr
	}
	if orderID <= 0 {
		return nil, apperrors.Validation(http.StatusBadRequest, "Invalid order id")
	}

	var out map[string]any
	path := fmt.Sprintf("/orders/%d/status", orderID)
	if err := o.upstream.DoJSON(ctx, http.MethodPut, path, nil, sess.Token, models.OrderStatusPayload{Status: status}, &out); err != nil {
		return nil, apperrors.From(err)
	}
	o.logger.Info("order status changed",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.Int64("order_id", orderID),
		zap.String("status", status),
		zap.Int64("user_id", sess.UserID),
	)
	return out, nil
}

func (o *orderActionsImpl) Edit(ctx context.Context, sess models.Session, orderID int64, req *models.EditOrderRequest) (map[string]any, *apperrors.Error) {
	if appErr := o.authorize(ctx, sess, models.CapEditOrder); appErr != nil {
		return nil, appErr
	}
	if orderID <= 0 {
		return nil, apperrors.Validation(http.StatusBadRequest, "Invalid order id")
	}

	var out map[string]any
	if err := o.upstream.DoJSON(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", orderID), nil, sess.Token, req, &out); err != nil {
		return nil, apperrors.From(err)
	}
	return out, nil
}

func (o *orderActionsImpl) Delete(ctx context.Context, sess models.Session, orderID int64) *apperrors.Error {
	if appErr := o.authorize(ctx, sess, models.CapDeleteOrder); appErr != nil {
		return appErr
	}
	if orderID <= 0 {
		return apperrors.Validation(http.StatusBadRequest, "Invalid order id")
	}

	if err := o.upstream.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", orderID), nil, sess.Token, nil, nil); err != nil {
		return apperrors.From(err)
	}
	o.logger.Info("order deleted",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", sess.UserID),
	)
	return nil
}

func (o *orderActionsImpl) CreateCustomer(ctx context.Context, sess models.Session, req *models.CreateCustomerRequest) (map[string]any, *apperrors.Error) {
	if appErr := o.authorize(ctx, sess, models.CapCreateCustomers); appErr != nil {
		return nil, appErr
	}

	var out map[string]any
	if err := o.upstream.DoJSON(ctx, http.MethodPost, "/sellers/customers", nil, sess.Token, req, &out); err != nil {
		return nil, apperrors.From(err)
	}
	return out, nil
}
