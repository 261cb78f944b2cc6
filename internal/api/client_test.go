package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/api"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func orderJSON(status string) map[string]interface{} {
	return map[string]interface{}{
		"id":         "o1",
		"status":     status,
		"totalCents": 1000,
		"items": []map[string]interface{}{
			{"productId": "p1", "quantity": 2, "unitPriceCents": 500},
		},
		"createdAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func TestClient_CreateOrder(t *testing.T) {
	var gotBody map[string]interface{}
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(orderJSON("created"))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	order, err := client.CreateOrder(context.Background(), []domain.SubmitItem{{ProductID: "p1", Qty: 2}}, "key-1")
	require.NoError(t, err)

	require.Equal(t, "o1", order.ID)
	require.Equal(t, domain.OrderStatusCreated, order.Status)
	require.Equal(t, int64(1000), order.AmountMinor)
	require.Len(t, order.Items, 1)
	require.Equal(t, int64(500), order.Items[0].PriceMinor)

	require.Equal(t, "key-1", gotKey)

	items := gotBody["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	require.Equal(t, "p1", item["productId"])
	require.Equal(t, float64(2), item["quantity"])
	_, hasPrice := item["unitPriceCents"]
	require.False(t, hasPrice, "client must never send prices")
}

func TestClient_CreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quantity exceeds live stock", http.StatusConflict)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	_, err := client.CreateOrder(context.Background(), []domain.SubmitItem{{ProductID: "p1", Qty: 2}}, "")
	require.ErrorIs(t, err, domain.ErrOrderRejected)
	require.Contains(t, err.Error(), "quantity exceeds live stock")
}

func TestClient_CreateOrderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	_, err := client.CreateOrder(context.Background(), []domain.SubmitItem{{ProductID: "p1", Qty: 2}}, "")
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_GetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/o1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(orderJSON("cancelled"))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	order, err := client.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, order.Status)
}

func TestClient_GetOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	_, err := client.GetOrder(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestClient_PayOrderOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"declined on 402", http.StatusPaymentRequired, domain.ErrPaymentDeclined},
		{"declined on 422", http.StatusUnprocessableEntity, domain.ErrPaymentDeclined},
		{"indeterminate on 404", http.StatusNotFound, domain.ErrPaymentIndeterminate},
		{"indeterminate on 500", http.StatusInternalServerError, domain.ErrPaymentIndeterminate},
		{"indeterminate on 504", http.StatusGatewayTimeout, domain.ErrPaymentIndeterminate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/orders/o1/pay", r.URL.Path)
				w.WriteHeader(tc.statusCode)
			}))
			defer srv.Close()

			client := api.NewClient(srv.URL)
			_, err := client.PayOrder(context.Background(), "o1")
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClient_PayOrderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(orderJSON("paid"))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	order, err := client.PayOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, order.Status)
}

func TestClient_PayOrderNetworkFailureIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // сервер уже недоступен

	client := api.NewClient(srv.URL, api.WithTimeout(200*time.Millisecond))
	_, err := client.PayOrder(context.Background(), "o1")
	require.ErrorIs(t, err, domain.ErrPaymentIndeterminate)
}

func TestClient_GetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/p1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "p1", "name": "Mug", "priceCents": 500, "imageRef": "img/mug.png", "stock": 7,
		})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	snap, err := client.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, domain.ProductSnapshot{
		ProductID:  "p1",
		Name:       "Mug",
		PriceMinor: 500,
		ImageRef:   "img/mug.png",
		Stock:      7,
	}, snap)
}

func TestClient_GetProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	_, err := client.GetProduct(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}
