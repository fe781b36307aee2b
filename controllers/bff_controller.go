package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/clients"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/services"
)

type BFFController struct {
	gateway  *clients.GatewayClient
	upstream services.Upstream
	sessions *middleware.SessionResolver
	carts    services.CartService
	logger   *zap.Logger
}

func NewBFFController(gateway *clients.GatewayClient, sessions *middleware.SessionResolver, carts services.CartService, logger *zap.Logger) *BFFController {
	return &BFFController{
		gateway:  gateway,
		upstream: gateway,
		sessions: sessions,
		carts:    carts,
		logger:   logger,
	}
}

func (b *BFFController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "storefront-bff"})
}

// Home loads the first product page and the category list concurrently.
func (b *BFFController) Home(c *gin.Context) {
	productsQuery := cloneQuery(c.Request.URL.Query())
	if productsQuery.Get("perPage") == "" {
		productsQuery.Set("perPage", "12")
	}
	token := middleware.GetSession(c).Token

	var products, categories any
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		return b.upstream.DoJSON(ctx, http.MethodGet, "/products", productsQuery, token, nil, &products)
	})
	g.Go(func() error {
		return b.upstream.DoJSON(ctx, http.MethodGet, "/categories", nil, token, nil, &categories)
	})
	if err := g.Wait(); err != nil {
		b.logger.Warn("home page fetch failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		apperrors.Respond(c, apperrors.From(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"categories": categories,
		"timestamp":  time.Now().UTC(),
	})
}

// Profile loads the signed-in user's profile and order history concurrently.
func (b *BFFController) Profile(c *gin.Context) {
	token := middleware.GetSession(c).Token
	ordersQuery := cloneQuery(c.Request.URL.Query())

	var profile, orders any
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		return b.upstream.DoJSON(ctx, http.MethodGet, "/users/profile", nil, token, nil, &profile)
	})
	g.Go(func() error {
		return b.upstream.DoJSON(ctx, http.MethodGet, "/orders", ordersQuery, token, nil, &orders)
	})
	if err := g.Wait(); err != nil {
		b.logger.Warn("profile page fetch failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		apperrors.Respond(c, apperrors.From(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":   profile,
		"orders":    orders,
		"timestamp": time.Now().UTC(),
	})
}

// Proxy forwards the request unchanged to path on the gateway.
func (b *BFFController) Proxy(method, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.forward(c, method, path)
	}
}

func (b *BFFController) OrderByID(c *gin.Context) {
	b.forward(c, http.MethodGet, "/orders/"+url.PathEscape(c.Param("id")))
}

func (b *BFFController) ProductByID(c *gin.Context) {
	b.forward(c, http.MethodGet, "/products/"+url.PathEscape(c.Param("id")))
}

func (b *BFFController) forward(c *gin.Context, method, path string) {
	bodyBytes, err := clients.ReadJSONBody(c.Request)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation(http.StatusBadRequest, "invalid request body"))
		return
	}

	resp, err := b.gateway.Do(c.Request.Context(), method, path, c.Request.URL.Query(), c.Request.Header, clients.BodyFromBytes(bodyBytes))
	if err != nil {
		b.logger.Warn("upstream request failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", path),
			zap.Error(err),
		)
		apperrors.Respond(c, apperrors.Network(err))
		return
	}

	if err := clients.CopyResponse(c.Writer, resp); err != nil {
		b.logger.Warn("failed to copy upstream response", zap.String("path", path), zap.Error(err))
	}
}

// Login proxies the credentials to the auth service. On success the device
// moves from anonymous to authenticated and its guest cart is reconciled
// before the answer is returned.
func (b *BFFController) Login(c *gin.Context) {
	bodyBytes, err := clients.ReadJSONBody(c.Request)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation(http.StatusBadRequest, "invalid request body"))
		return
	}

	resp, err := b.gateway.Do(c.Request.Context(), http.MethodPost, "/auth/login", nil, c.Request.Header, clients.BodyFromBytes(bodyBytes))
	if err != nil {
		apperrors.Respond(c, apperrors.Network(err))
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		apperrors.Respond(c, apperrors.Network(err))
		return
	}

	if resp.StatusCode < 300 {
		b.afterLogin(c, loginToken(raw, resp.Cookies()))
	}

	for _, cookie := range resp.Header.Values("Set-Cookie") {
		c.Writer.Header().Add("Set-Cookie", cookie)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, raw)
}

func (b *BFFController) afterLogin(c *gin.Context, token string) {
	if token == "" {
		return
	}
	deviceID := middleware.GetSession(c).DeviceID
	sess, err := b.sessions.Authenticate(c.Request.Context(), deviceID, token)
	if err != nil || !sess.IsAuthenticated() {
		b.logger.Warn("could not resolve session after login",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}
	middleware.SetSession(c, sess)
	// The response still succeeds; the middleware retries on the next request.
	_ = b.carts.Reconcile(c.Request.Context(), sess)
}

// loginToken extracts the access token from the auth service's answer,
// falling back to the token cookie when the body carries none.
func loginToken(raw []byte, cookies []*http.Cookie) string {
	var body struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		Data        struct {
			Token       string `json:"token"`
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, t := range []string{body.Data.Token, body.Data.AccessToken, body.Token, body.AccessToken} {
			if t != "" {
				return t
			}
		}
	}
	for _, cookie := range cookies {
		if cookie.Name == "token" && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

func cloneQuery(q url.Values) url.Values {
	out := url.Values{}
	for key, values := range q {
		for _, v := range values {
			out.Add(key, v)
		}
	}
	return out
}
