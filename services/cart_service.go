package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

const cartPath = "/orders/cart"

// RefetchPolicy controls the background re-fetch that follows a successful
// mutation. MaxAttempts of zero disables it.
type RefetchPolicy struct {
	Delay       time.Duration
	MaxAttempts uint
	Timeout     time.Duration
}

// CartMutation is the outcome of an add or remove.
type CartMutation struct {
	// Session is the caller's session after any cart id adoption.
	Session models.Session
	View    models.CartView
}

// CartService defines cart reads and mutations for a session.
type CartService interface {
	GetCart(ctx context.Context, sess models.Session) (models.CartView, *apperrors.Error)
	AddItem(ctx context.Context, sess models.Session, productID int64, quantity int) (*CartMutation, *apperrors.Error)
	RemoveItem(ctx context.Context, sess models.Session, productID int64) (*CartMutation, *apperrors.Error)
	Reconcile(ctx context.Context, sess models.Session) *apperrors.Error
	// InvalidateCart drops cached views changed outside this instance.
	InvalidateCart(userID int64, cartID *int64)
}

type cartServiceImpl struct {
	upstream Upstream
	resolver *CartResolver
	cache    *cartCache
	refetch  RefetchPolicy
	validate *validator.Validate
	metrics  aws_pkg.MetricsRecorder
	logger   *zap.Logger
}

// NewCartService creates a CartService with a view cache of cacheSize
// entries living cacheTTL.
func NewCartService(
	upstream Upstream,
	resolver *CartResolver,
	cacheSize int,
	cacheTTL time.Duration,
	refetch RefetchPolicy,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) (CartService, error) {
	cache, err := newCartCache(cacheSize, cacheTTL)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	if refetch.Timeout <= 0 {
		refetch.Timeout = 10 * time.Second
	}
	return &cartServiceImpl{
		upstream: upstream,
		resolver: resolver,
		cache:    cache,
		refetch:  refetch,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// GetCart returns the session's cart. Fetch failures render an empty cart.
func (s *cartServiceImpl) GetCart(ctx context.Context, sess models.Session) (models.CartView, *apperrors.Error) {
	cartID, appErr := s.resolver.Resolve(sess, CartFetch)
	if appErr != nil {
		return models.NewCartView(models.EmptyCart(), nil), appErr
	}
	// A device that never added anything has no cart to fetch.
	if sess.IsAnonymous() && cartID == nil {
		return models.NewCartView(models.EmptyCart(), nil), nil
	}

	key := sess.CartKey()
	cart, hit, err := s.cache.Load(ctx, sess.DeviceID, key, func(ctx context.Context) (models.Cart, error) {
		return s.fetchCart(ctx, sess.Token, cartID)
	})
	s.recordCacheLookup(ctx, hit)
	if err != nil {
		s.logger.Warn("cart fetch failed, rendering empty cart",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("cart_key", key),
			zap.Error(err),
		)
		return models.NewCartView(models.EmptyCart(), cartID), nil
	}
	return models.NewCartView(cart, cartID), nil
}

func (s *cartServiceImpl) recordCacheLookup(ctx context.Context, hit bool) {
	metric := aws_pkg.MetricCacheMisses
	if hit {
		metric = aws_pkg.MetricCacheHits
	}
	_ = s.metrics.RecordCount(ctx, metric, map[string]string{"cache": "cart"})
}

func (s *cartServiceImpl) fetchCart(ctx context.Context, token string, cartID *int64) (models.Cart, error) {
	var query url.Values
	if cartID != nil {
		query = url.Values{"cartId": {strconv.FormatInt(*cartID, 10)}}
	}

	var cart models.Cart
	if err := s.upstream.DoJSON(ctx, http.MethodGet, cartPath, query, token, nil, &cart); err != nil {
		return models.Cart{}, err
	}
	return cart.Normalize(), nil
}

// AddItem adds quantity units of productID to the session's cart.
func (s *cartServiceImpl) AddItem(ctx context.Context, sess models.Session, productID int64, quantity int) (*CartMutation, *apperrors.Error) {
	if err := s.validate.Var(productID, "required,gt=0"); err != nil {
		return nil, apperrors.Validation(http.StatusBadRequest, "productId must be a positive integer")
	}
	if err := s.validate.Var(quantity, "required,gte=1"); err != nil {
		return nil, apperrors.Validation(http.StatusBadRequest, "quantity must be a positive integer")
	}

	cartID, appErr := s.resolver.Resolve(sess, CartAdd)
	if appErr != nil {
		return nil, appErr
	}

	payload := models.CartMutationPayload{ProductID: productID, Quantity: quantity, CartID: cartID}
	result, appErr := s.mutate(ctx, sess, http.MethodPost, payload)
	if appErr != nil {
		return nil, appErr
	}

	_ = s.metrics.RecordCount(ctx, aws_pkg.MetricCartItemsAdded, map[string]string{"session": sess.Kind.String()})
	s.logger.Info("cart item added",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.String("cart_key", result.Session.CartKey()),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return result, nil
}

// RemoveItem removes the whole line for productID.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, sess models.Session, productID int64) (*CartMutation, *apperrors.Error) {
	if err := s.validate.Var(productID, "required,gt=0"); err != nil {
		return nil, apperrors.Validation(http.StatusBadRequest, "productId must be a positive integer")
	}

	cartID, appErr := s.resolver.Resolve(sess, CartRemove)
	if appErr != nil {
		return nil, appErr
	}

	payload := models.CartMutationPayload{ProductID: productID, CartID: cartID}
	result, appErr := s.mutate(ctx, sess, http.MethodDelete, payload)
	if appErr != nil {
		return nil, appErr
	}

	_ = s.metrics.RecordCount(ctx, aws_pkg.MetricCartItemsRemoved, map[string]string{"session": sess.Kind.String()})
	s.logger.Info("cart item removed",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.String("cart_key", result.Session.CartKey()),
		zap.Int64("product_id", productID),
	)
	return result, nil
}

// mutate sends payload upstream, adopts any cart id the backend assigned,
// invalidates the affected views and schedules the re-fetch. Mutations are
// never retried.
func (s *cartServiceImpl) mutate(ctx context.Context, sess models.Session, method string, payload models.CartMutationPayload) (*CartMutation, *apperrors.Error) {
	var cart models.Cart
	if err := s.upstream.DoJSON(ctx, method, cartPath, nil, sess.Token, payload, &cart); err != nil {
		appErr := apperrors.From(err)
		s.logger.Warn("cart mutation failed",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("method", method),
			zap.String("cart_key", sess.CartKey()),
			zap.String("kind", string(appErr.Kind)),
			zap.Error(err),
		)
		return nil, appErr
	}
	cart = cart.Normalize()

	next, appErr := s.resolver.Adopt(ctx, sess, cart.ID)
	if appErr != nil {
		return nil, appErr
	}

	before, after := sess.CartKey(), next.CartKey()
	s.cache.Invalidate(before)
	if after != before {
		s.cache.Invalidate(after)
	}
	s.cache.Activate(next.DeviceID, after)
	s.scheduleRefetch(next)

	var cartID *int64
	if next.IsAnonymous() {
		cartID = next.CartID
	}
	return &CartMutation{Session: next, View: models.NewCartView(cart, cartID)}, nil
}

// scheduleRefetch warms the cache for sess after the configured delay,
// retrying with exponential backoff up to MaxAttempts times. It is dropped
// if the device addresses another cart by then.
func (s *cartServiceImpl) scheduleRefetch(sess models.Session) {
	if s.refetch.MaxAttempts == 0 {
		return
	}
	if sess.IsAnonymous() && sess.CartID == nil {
		return
	}
	cartID, appErr := s.resolver.Resolve(sess, CartFetch)
	if appErr != nil {
		return
	}

	time.AfterFunc(s.refetch.Delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.refetch.Timeout)
		defer cancel()

		key := sess.CartKey()
		_, err := backoff.Retry(ctx, func() (models.Cart, error) {
			cart, skipped, err := s.cache.Refresh(ctx, sess.DeviceID, key, func(ctx context.Context) (models.Cart, error) {
				return s.fetchCart(ctx, sess.Token, cartID)
			})
			if skipped {
				s.logger.Debug("cart re-fetch skipped, device moved to another cart", zap.String("cart_key", key))
			}
			if apperrors.KindOf(err) == apperrors.KindValidation {
				return cart, backoff.Permanent(err)
			}
			return cart, err
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(s.refetch.MaxAttempts),
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("cart re-fetch failed",
				zap.String("cart_key", key),
				zap.Error(err),
			)
		}
	})
}

// Reconcile runs the guest cart policy for a freshly authenticated session.
func (s *cartServiceImpl) Reconcile(ctx context.Context, sess models.Session) *apperrors.Error {
	var merge MergeFunc
	if s.resolver.Policy() == GuestCartMerge {
		merge = s.mergeGuestCart
	}

	guestID, appErr := s.resolver.Reconcile(ctx, sess, merge)
	if guestID != nil {
		s.cache.Invalidate(models.AnonCartKey(*guestID))
		s.cache.Invalidate(sess.CartKey())
		s.cache.Activate(sess.DeviceID, sess.CartKey())
	}
	return appErr
}

func (s *cartServiceImpl) InvalidateCart(userID int64, cartID *int64) {
	if userID > 0 {
		s.cache.Invalidate(models.UserCartKey(userID))
	}
	if cartID != nil {
		s.cache.Invalidate(models.AnonCartKey(*cartID))
	}
}

// mergeGuestCart re-adds every line of the guest cart to the user's cart.
// Lines that fail are skipped and reported together.
func (s *cartServiceImpl) mergeGuestCart(ctx context.Context, sess models.Session, guestCartID int64) error {
	guest, err := s.fetchCart(ctx, "", &guestCartID)
	if err != nil {
		return err
	}

	var errs []error
	for _, item := range guest.Items {
		payload := models.CartMutationPayload{ProductID: item.ProductID, Quantity: item.Quantity}
		if err := s.upstream.DoJSON(ctx, http.MethodPost, cartPath, nil, sess.Token, payload, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
