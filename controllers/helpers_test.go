package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/models"
	"github.com/yashrajoria/storefront-bff/services"
)

const testDevice = "0d6f1f3e-7b0c-4c39-9d7e-0c2a3b4f5e61"

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock CartService ---

type mockCartService struct {
	getFn       func(ctx context.Context, sess models.Session) (models.CartView, *apperrors.Error)
	addFn       func(ctx context.Context, sess models.Session, productID int64, quantity int) (*services.CartMutation, *apperrors.Error)
	removeFn    func(ctx context.Context, sess models.Session, productID int64) (*services.CartMutation, *apperrors.Error)
	reconcileFn func(ctx context.Context, sess models.Session) *apperrors.Error
}

func (m *mockCartService) GetCart(ctx context.Context, sess models.Session) (models.CartView, *apperrors.Error) {
	return m.getFn(ctx, sess)
}
func (m *mockCartService) AddItem(ctx context.Context, sess models.Session, productID int64, quantity int) (*services.CartMutation, *apperrors.Error) {
	return m.addFn(ctx, sess, productID, quantity)
}
func (m *mockCartService) RemoveItem(ctx context.Context, sess models.Session, productID int64) (*services.CartMutation, *apperrors.Error) {
	return m.removeFn(ctx, sess, productID)
}
func (m *mockCartService) Reconcile(ctx context.Context, sess models.Session) *apperrors.Error {
	if m.reconcileFn == nil {
		return nil
	}
	return m.reconcileFn(ctx, sess)
}
func (m *mockCartService) InvalidateCart(int64, *int64) {}

// --- Helpers ---

// withSession installs sess the way the session middleware would.
func withSession(sess models.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetSession(c, sess)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func int64Ptr(v int64) *int64 { return &v }
