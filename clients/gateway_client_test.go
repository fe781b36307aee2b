package clients_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/clients"
)

type cartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func newClient(t *testing.T, h http.HandlerFunc) *clients.GatewayClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return clients.NewGatewayClient(srv.URL, 2*time.Second)
}

func TestDoJSON_UnwrapsEnvelope(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/cart", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("cartId"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"message":"ok","data":{"productId":7,"quantity":2}}`)
	})

	var out cartItem
	err := gw.DoJSON(context.Background(), http.MethodGet, "/orders/cart", url.Values{"cartId": {"42"}}, "tok", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, cartItem{ProductID: 7, Quantity: 2}, out)
}

func TestDoJSON_BareBody(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"productId":3,"quantity":1}`)
	})

	var out cartItem
	require.NoError(t, gw.DoJSON(context.Background(), http.MethodGet, "/x", nil, "", nil, &out))
	assert.Equal(t, int64(3), out.ProductID)
}

func TestDoJSON_SendsBody(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"productId":7,"quantity":1}`, string(b))
		w.WriteHeader(http.StatusNoContent)
	})

	err := gw.DoJSON(context.Background(), http.MethodPost, "/orders/cart", nil, "tok", cartItem{ProductID: 7, Quantity: 1}, nil)
	assert.NoError(t, err)
}

func TestDoJSON_ClientErrorKeepsMessage(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"success":false,"message":"Product is out of stock"}`)
	})

	err := gw.DoJSON(context.Background(), http.MethodPost, "/orders/cart", nil, "", cartItem{}, nil)

	appErr := apperrors.From(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Code)
	assert.Equal(t, "Product is out of stock", appErr.Message)
}

func TestDoJSON_ClientErrorFallsBackToErrorField(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"cart not found"}`)
	})

	err := gw.DoJSON(context.Background(), http.MethodGet, "/orders/cart", nil, "", nil, nil)

	assert.Equal(t, "cart not found", apperrors.From(err).Message)
}

func TestDoJSON_ServerErrorIsNetwork(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"message":"db exploded"}`)
	})

	err := gw.DoJSON(context.Background(), http.MethodGet, "/orders/cart", nil, "", nil, nil)

	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.KindNetwork, appErr.Kind)
	assert.Equal(t, apperrors.GenericFailureMessage, appErr.Message)
}

func TestDoJSON_TransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	gw := clients.NewGatewayClient(srv.URL, time.Second)
	srv.Close()

	err := gw.DoJSON(context.Background(), http.MethodGet, "/orders/cart", nil, "", nil, nil)

	assert.Equal(t, apperrors.KindNetwork, apperrors.KindOf(err))
}

func TestDoJSON_SchemaMismatchIsDecode(t *testing.T) {
	gw := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"productId":"seven"}}`)
	})

	var out cartItem
	err := gw.DoJSON(context.Background(), http.MethodGet, "/orders/cart", nil, "", nil, &out)

	assert.Equal(t, apperrors.KindDecode, apperrors.KindOf(err))
}
