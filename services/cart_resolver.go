package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/database"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

// CartOperation names what a cart id is being resolved for.
type CartOperation string

const (
	CartFetch  CartOperation = "fetch"
	CartAdd    CartOperation = "add"
	CartRemove CartOperation = "remove"
)

// GuestCartPolicy decides what happens to an anonymous cart when its
// device signs in.
type GuestCartPolicy string

const (
	GuestCartDiscard GuestCartPolicy = "discard"
	GuestCartMerge   GuestCartPolicy = "merge"
)

// MergeFunc moves the items of guest cart guestCartID into the
// authenticated session's cart.
type MergeFunc func(ctx context.Context, sess models.Session, guestCartID int64) error

// CartResolver decides which cart a session addresses. It is the only
// writer of the persisted anonymous cart id.
type CartResolver struct {
	store   database.DeviceStore
	policy  GuestCartPolicy
	metrics aws_pkg.MetricsRecorder
	logger  *zap.Logger
}

func NewCartResolver(store database.DeviceStore, policy GuestCartPolicy, metrics aws_pkg.MetricsRecorder, logger *zap.Logger) *CartResolver {
	if policy == "" {
		policy = GuestCartDiscard
	}
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &CartResolver{store: store, policy: policy, metrics: metrics, logger: logger}
}

func (r *CartResolver) Policy() GuestCartPolicy { return r.policy }

// Resolve returns the cart id to send upstream for op. Authenticated
// sessions never send one; anonymous sessions send whatever they hold,
// nil meaning "create a new cart".
func (r *CartResolver) Resolve(sess models.Session, op CartOperation) (*int64, *apperrors.Error) {
	switch sess.Kind {
	case models.SessionAuthenticated:
		return nil, nil
	case models.SessionAnonymous:
		if sess.CartID == nil {
			return nil, nil
		}
		id := *sess.CartID
		return &id, nil
	default:
		r.logger.Debug("cart resolution refused for initializing session",
			zap.String("device_id", sess.DeviceID),
			zap.String("operation", string(op)),
		)
		return nil, apperrors.ErrSessionInitializing
	}
}

// Adopt persists a cart id returned by the backend. It only acts on
// anonymous sessions and only when the id differs from the one held.
func (r *CartResolver) Adopt(ctx context.Context, sess models.Session, returned *int64) (models.Session, *apperrors.Error) {
	if !sess.IsAnonymous() || returned == nil {
		return sess, nil
	}
	if sess.CartID != nil && *sess.CartID == *returned {
		return sess, nil
	}

	if err := r.store.SetCartID(ctx, sess.DeviceID, *returned); err != nil {
		r.logger.Error("failed to persist anonymous cart id",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("device_id", sess.DeviceID),
			zap.Int64("cart_id", *returned),
			zap.Error(err),
		)
		return sess, apperrors.Storage(err)
	}
	return sess.WithCartID(*returned), nil
}

// Reconcile applies the guest cart policy once a device holding an
// anonymous cart id is authenticated, then forgets the id. Merge failures
// are logged; the id is cleared regardless.
func (r *CartResolver) Reconcile(ctx context.Context, sess models.Session, merge MergeFunc) (*int64, *apperrors.Error) {
	if !sess.IsAuthenticated() || sess.DeviceID == "" {
		return nil, nil
	}

	guestID, err := r.store.GetCartID(ctx, sess.DeviceID)
	if err != nil {
		r.logger.Warn("failed to read guest cart id",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("device_id", sess.DeviceID),
			zap.Error(err),
		)
		return nil, apperrors.Storage(err)
	}
	if guestID == nil {
		return nil, nil
	}

	metric := aws_pkg.MetricGuestCartsDiscarded
	if r.policy == GuestCartMerge && merge != nil {
		if err := merge(ctx, sess, *guestID); err != nil {
			r.logger.Warn("guest cart merge failed, discarding guest cart",
				zap.String("request_id", logger.RequestID(ctx)),
				zap.Int64("user_id", sess.UserID),
				zap.Int64("guest_cart_id", *guestID),
				zap.Error(err),
			)
		} else {
			metric = aws_pkg.MetricGuestCartsMerged
		}
	}

	if err := r.store.ClearCartID(ctx, sess.DeviceID); err != nil {
		r.logger.Error("failed to clear guest cart id",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("device_id", sess.DeviceID),
			zap.Error(err),
		)
		return guestID, apperrors.Storage(err)
	}

	_ = r.metrics.RecordCount(ctx, metric, map[string]string{"policy": string(r.policy)})
	r.logger.Info("guest cart reconciled",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.Int64("user_id", sess.UserID),
		zap.Int64("guest_cart_id", *guestID),
		zap.String("policy", string(r.policy)),
	)
	return guestID, nil
}
