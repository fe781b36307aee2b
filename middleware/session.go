package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/database"
	"github.com/yashrajoria/storefront-bff/models"
	"github.com/yashrajoria/storefront-bff/services"
)

const SessionContextKey = "session"

// ErrInvalidToken is returned by verifiers for tokens that will never be
// accepted. Any other verifier error means the answer is not known yet.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID int64
	Role   models.Role
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier checks HMAC-signed access tokens locally.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	// Refresh tokens carry typ=refresh and are not accepted here.
	if typ, ok := claims["typ"].(string); ok && typ != "access" {
		return Identity{}, ErrInvalidToken
	}

	var userID int64
	for _, key := range []string{"user_id", "id", "sub"} {
		if id, ok := numericClaim(claims[key]); ok {
			userID = id
			break
		}
	}
	if userID == 0 {
		return Identity{}, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	return Identity{UserID: userID, Role: models.ParseRole(role)}, nil
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}

// UpstreamVerifier asks the auth backend whether a token is valid. Used
// when no signing secret is configured.
type UpstreamVerifier struct {
	upstream services.Upstream
}

func NewUpstreamVerifier(upstream services.Upstream) *UpstreamVerifier {
	return &UpstreamVerifier{upstream: upstream}
}

func (v *UpstreamVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	var status struct {
		ID     json64 `json:"id"`
		UserID json64 `json:"userId"`
		Role   string `json:"role"`
	}
	if err := v.upstream.DoJSON(ctx, http.MethodGet, "/auth/status", nil, token, nil, &status); err != nil {
		if apperrors.KindOf(err) == apperrors.KindValidation {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, err
	}

	id := int64(status.ID)
	if id == 0 {
		id = int64(status.UserID)
	}
	if id == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Role: models.ParseRole(status.Role)}, nil
}

// json64 accepts an id sent either as a number or a numeric string.
type json64 int64

func (j *json64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*j = json64(n)
	return nil
}

// Reconciler runs when an authenticated session is resolved, so a device
// still holding an anonymous cart gets it reconciled on its first
// authenticated request.
type Reconciler func(ctx context.Context, sess models.Session) *apperrors.Error

// SessionResolver turns each request into a models.Session.
type SessionResolver struct {
	verifier     TokenVerifier
	store        database.DeviceStore
	reconcile    Reconciler
	cookieName   string
	secureCookie bool
	logger       *zap.Logger
}

func NewSessionResolver(verifier TokenVerifier, store database.DeviceStore, cookieName string, secureCookie bool, logger *zap.Logger) *SessionResolver {
	return &SessionResolver{
		verifier:     verifier,
		store:        store,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// SetReconciler installs the hook run for authenticated sessions.
func (s *SessionResolver) SetReconciler(r Reconciler) {
	s.reconcile = r
}

// Middleware resolves the session. A device cookie is minted on first
// contact. An invalid token is rejected with 401; a token that cannot be
// checked right now, or a device store that cannot be read, leaves the
// session Initializing.
func (s *SessionResolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := s.deviceID(c)

		if token := BearerToken(c); token != "" {
			sess, err := s.Authenticate(c.Request.Context(), deviceID, token)
			if errors.Is(err, ErrInvalidToken) {
				apperrors.Respond(c, apperrors.ErrInvalidToken)
				c.Abort()
				return
			}
			if sess.IsAuthenticated() && s.reconcile != nil {
				// Failures are logged by the reconciler and retried next request.
				_ = s.reconcile(c.Request.Context(), sess)
			}
			c.Set(SessionContextKey, sess)
			c.Next()
			return
		}

		cartID, err := s.store.GetCartID(c.Request.Context(), deviceID)
		if err != nil {
			s.logger.Warn("device store unavailable, session stays initializing",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
			c.Set(SessionContextKey, models.Initializing(deviceID))
			c.Next()
			return
		}

		c.Set(SessionContextKey, models.Anonymous(deviceID, cartID))
		c.Next()
	}
}

// Authenticate verifies token for deviceID. Only ErrInvalidToken is
// returned as an error; other failures yield an Initializing session.
func (s *SessionResolver) Authenticate(ctx context.Context, deviceID, token string) (models.Session, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		return models.Session{}, err
	}
	if err != nil {
		s.logger.Warn("token verification unavailable, session stays initializing",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return models.Initializing(deviceID), nil
	}
	return models.Authenticated(deviceID, identity.UserID, identity.Role, token), nil
}

func (s *SessionResolver) deviceID(c *gin.Context) string {
	if v, err := c.Cookie(s.cookieName); err == nil {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, id, 365*24*60*60, "/", "", s.secureCookie, true)
	return id
}

// BearerToken reads the access token from the Authorization header, falling
// back to the token cookie set by the auth service.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if v, err := c.Cookie("token"); err == nil {
		return v
	}
	return ""
}

// GetSession returns the session resolved for this request.
func GetSession(c *gin.Context) models.Session {
	if v, ok := c.Get(SessionContextKey); ok {
		if sess, ok := v.(models.Session); ok {
			return sess
		}
	}
	return models.Initializing("")
}

// SetSession replaces the request's session, e.g. after a cart id was adopted.
func SetSession(c *gin.Context, sess models.Session) {
	c.Set(SessionContextKey, sess)
}

// RequireAuthenticated rejects anonymous and initializing sessions.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		switch {
		case sess.IsInitializing():
			apperrors.Respond(c, apperrors.ErrSessionInitializing)
			c.Abort()
		case !sess.IsAuthenticated():
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			c.Abort()
		default:
			c.Next()
		}
	}
}

// RequireRole rejects authenticated sessions whose role is not listed.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		apperrors.Respond(c, apperrors.Forbidden("Insufficient permissions"))
		c.Abort()
	}
}
