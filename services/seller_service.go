package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

const EventSellerPermissionsUpdated = "seller.permissions_updated"

// SellerService covers seller approval and permission lookups.
type SellerService interface {
	UpdateStatus(ctx context.Context, sess models.Session, sellerID int64, req *models.UpdateSellerStatusRequest) (*models.SellerProfile, *apperrors.Error)
	MyPermissions(ctx context.Context, sess models.Session) (models.Permissions, *apperrors.Error)
}

type sellerServiceImpl struct {
	upstream    Upstream
	gate        *PermissionGate
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	validate    *validator.Validate
	metrics     aws_pkg.MetricsRecorder
	logger      *zap.Logger
}

func NewSellerService(
	upstream Upstream,
	gate *PermissionGate,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) SellerService {
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &sellerServiceImpl{
		upstream:    upstream,
		gate:        gate,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		validate:    validator.New(),
		metrics:     metrics,
		logger:      logger,
	}
}

// UpdateStatus sets a seller's status and permission blob. Admin only.
func (s *sellerServiceImpl) UpdateStatus(ctx context.Context, sess models.Session, sellerID int64, req *models.UpdateSellerStatusRequest) (*models.SellerProfile, *apperrors.Error) {
	if appErr := requireRole(sess, models.RoleAdmin); appErr != nil {
		return nil, appErr
	}
	if sellerID <= 0 {
		return nil, apperrors.Validation(http.StatusBadRequest, "Invalid seller id")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation(http.StatusBadRequest, "status must be one of pending, approved, rejected, suspended")
	}

	blob, err := json.Marshal(req.Permissions)
	if err != nil {
		return nil, apperrors.Internal("Failed to encode permissions", err)
	}

	var profile models.SellerProfile
	path := fmt.Sprintf("/sellers/%d/status", sellerID)
	payload := models.SellerStatusPayload{Status: req.Status, Permissions: string(blob)}
	if err := s.upstream.DoJSON(ctx, http.MethodPut, path, nil, sess.Token, payload, &profile); err != nil {
		s.logger.Warn("seller status update failed",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.Int64("seller_id", sellerID),
			zap.Error(err),
		)
		return nil, apperrors.From(err)
	}
	if profile.ID == 0 {
		profile.ID = sellerID
		profile.Status = req.Status
		profile.Permissions = blob
	}

	_ = s.metrics.RecordCount(ctx, aws_pkg.MetricSellerStatusUpdated, map[string]string{"status": req.Status})
	s.logger.Info("seller status updated",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.Int64("seller_id", sellerID),
		zap.String("status", req.Status),
		zap.Int64("admin_id", sess.UserID),
	)

	s.publish(ctx, models.SellerPermissionsEvent{
		EventType:   EventSellerPermissionsUpdated,
		SellerID:    sellerID,
		Status:      req.Status,
		Permissions: req.Permissions,
		UpdatedBy:   sess.UserID,
		Timestamp:   time.Now().UTC(),
	})
	return &profile, nil
}

// publish is best effort; failures are logged only.
func (s *sellerServiceImpl) publish(ctx context.Context, event models.SellerPermissionsEvent) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal seller event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, event.EventType, body); err != nil {
		s.logger.Warn("failed to publish seller event",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("seller_id", strconv.FormatInt(event.SellerID, 10)),
			zap.Error(err),
		)
	}
}

// MyPermissions returns the caller's capabilities. Admins hold all of
// them, buyers none; a seller whose profile cannot be loaded holds none.
func (s *sellerServiceImpl) MyPermissions(ctx context.Context, sess models.Session) (models.Permissions, *apperrors.Error) {
	switch {
	case sess.IsInitializing():
		return models.Permissions{}, apperrors.ErrSessionInitializing
	case !sess.IsAuthenticated():
		return models.Permissions{}, apperrors.ErrUnauthorized
	}

	switch sess.Role {
	case models.RoleAdmin:
		return models.AllPermissions(), nil
	case models.RoleSeller:
	default:
		return models.Permissions{}, nil
	}

	var profile models.SellerProfile
	if err := s.upstream.DoJSON(ctx, http.MethodGet, "/sellers/me", nil, sess.Token, nil, &profile); err != nil {
		s.logger.Warn("seller profile unavailable, denying all capabilities",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.Int64("user_id", sess.UserID),
			zap.Error(err),
		)
		return models.Permissions{}, nil
	}
	return s.gate.Parse(profile.Permissions), nil
}

func requireRole(sess models.Session, roles ...models.Role) *apperrors.Error {
	if sess.IsInitializing() {
		return apperrors.ErrSessionInitializing
	}
	if !sess.IsAuthenticated() {
		return apperrors.ErrUnauthorized
	}
	for _, r := range roles {
		if sess.Role == r {
			return nil
		}
	}
	return apperrors.Forbidden("You do not have access to this resource")
}
