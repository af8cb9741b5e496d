package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelops/backend/internal/domain/marketplace"
)

const shopifyTestPrefix = "/admin/api/" + ShopifyAPIVersion

func newTestShopifyAdapter(t *testing.T, handler http.Handler) (*ShopifyAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := NewShopifyConfig()
	config.BaseURLOverride = server.URL
	adapter, err := NewShopifyAdapter(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter, server
}

func shopifyTestCredentials() marketplace.Credentials {
	return marketplace.Credentials{
		AccessToken: "shpat_test_token",
		ShopDomain:  "demo-store.myshopify.com",
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestShopifyAdapter_Initialize(t *testing.T) {
	t.Run("verifies token against shop endpoint", func(t *testing.T) {
		var gotToken string
		mux := http.NewServeMux()
		mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get("X-Shopify-Access-Token")
			writeJSON(t, w, http.StatusOK, map[string]any{
				"shop": map[string]any{"id": 1, "name": "Demo Store"},
			})
		})

		adapter, _ := newTestShopifyAdapter(t, mux)
		err := adapter.Initialize(context.Background(), shopifyTestCredentials())
		require.NoError(t, err)
		assert.Equal(t, "shpat_test_token", gotToken)
	})

	t.Run("rejected token maps to authentication failure", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"errors": "invalid token"})
		})

		adapter, _ := newTestShopifyAdapter(t, mux)
		err := adapter.Initialize(context.Background(), shopifyTestCredentials())
		assert.ErrorIs(t, err, marketplace.ErrAuthenticationFailed)
	})

	t.Run("missing credentials rejected before any request", func(t *testing.T) {
		adapter, err := NewShopifyAdapter(NewShopifyConfig())
		require.NoError(t, err)

		err = adapter.Initialize(context.Background(), marketplace.Credentials{})
		assert.ErrorIs(t, err, marketplace.ErrMissingCredentials)
	})
}

func TestShopifyAdapter_TestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"shop": map[string]any{"id": 1, "name": "Demo Store"},
		})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	status := adapter.TestConnection(context.Background())
	assert.True(t, status.Connected)
	assert.Contains(t, status.Message, "Demo Store")
	assert.False(t, status.LastChecked.IsZero())
}

func TestShopifyAdapter_GetProductBySKU(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/variants.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"variants": []map[string]any{
				{
					"id": 111, "product_id": 11, "sku": "WIDGET-1", "title": "Widget",
					"price": "79.99", "compare_at_price": "99.99",
					"inventory_item_id": 911, "inventory_quantity": 12,
				},
				{
					"id": 222, "product_id": 22, "sku": "GADGET-2", "title": "Gadget",
					"price": "15.00", "inventory_item_id": 922, "inventory_quantity": 3,
				},
			},
		})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	t.Run("known SKU", func(t *testing.T) {
		product, result, err := adapter.GetProductBySKU(context.Background(), "WIDGET-1")
		require.NoError(t, err)
		require.NotNil(t, product)
		assert.True(t, result.Succeeded("WIDGET-1"))
		assert.Equal(t, "111", product.ID)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("79.99")))
		assert.True(t, product.RRP.Equal(decimal.RequireFromString("99.99")))
		assert.Equal(t, 12, product.StockLevel)
	})

	t.Run("unknown SKU is a per-item failure, not an error", func(t *testing.T) {
		product, result, err := adapter.GetProductBySKU(context.Background(), "NO-SUCH-SKU")
		require.NoError(t, err)
		assert.Nil(t, product)
		failure := result.FailureFor("NO-SUCH-SKU")
		require.NotNil(t, failure)
		assert.Equal(t, marketplace.FailureCodeProductNotFound, failure.Code)
	})
}

func TestShopifyAdapter_UpdateStock(t *testing.T) {
	var setRequests []shopifyInventoryLevelRequest
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/locations.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"locations": []map[string]any{
				{"id": 500, "active": false},
				{"id": 501, "active": true},
			},
		})
	})
	mux.HandleFunc(shopifyTestPrefix+"/variants.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"variants": []map[string]any{
				{"id": 111, "product_id": 11, "sku": "WIDGET-1", "inventory_item_id": 911},
			},
		})
	})
	mux.HandleFunc(shopifyTestPrefix+"/inventory_levels/set.json", func(w http.ResponseWriter, r *http.Request) {
		var req shopifyInventoryLevelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		setRequests = append(setRequests, req)
		writeJSON(t, w, http.StatusOK, map[string]any{"inventory_level": map[string]any{}})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	result, err := adapter.UpdateStock(context.Background(), []marketplace.StockUpdate{
		{SKU: "WIDGET-1", Quantity: 40},
		{SKU: "MISSING-9", Quantity: 5},
	})
	require.NoError(t, err)

	assert.True(t, result.Succeeded("WIDGET-1"))
	failure := result.FailureFor("MISSING-9")
	require.NotNil(t, failure)
	assert.Equal(t, marketplace.FailureCodeProductNotFound, failure.Code)

	require.Len(t, setRequests, 1)
	assert.Equal(t, int64(501), setRequests[0].LocationID)
	assert.Equal(t, int64(911), setRequests[0].InventoryItemID)
	assert.Equal(t, 40, setRequests[0].Available)
}

func TestShopifyAdapter_UpdatePrices(t *testing.T) {
	var variantBodies []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/variants.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"variants": []map[string]any{
				{"id": 111, "product_id": 11, "sku": "WIDGET-1", "inventory_item_id": 911},
				{"id": 222, "product_id": 22, "sku": "GADGET-2", "inventory_item_id": 922},
			},
		})
	})
	mux.HandleFunc(shopifyTestPrefix+"/variants/111.json", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		variantBodies = append(variantBodies, body)
		writeJSON(t, w, http.StatusOK, map[string]any{"variant": map[string]any{"id": 111}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/variants/222.json", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		variantBodies = append(variantBodies, body)
		writeJSON(t, w, http.StatusOK, map[string]any{"variant": map[string]any{"id": 222}})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	result, err := adapter.UpdatePrices(context.Background(), []marketplace.PriceUpdate{
		{SKU: "WIDGET-1", Price: decimal.RequireFromString("99.99"), SalePrice: decimal.RequireFromString("79.99")},
		{SKU: "GADGET-2", Price: decimal.RequireFromString("15.00")},
	})
	require.NoError(t, err)
	assert.True(t, result.AllSucceeded())
	require.Len(t, variantBodies, 2)

	// Discounted item: selling price is the sale price, the regular price
	// becomes the compare-at reference
	onSale := variantBodies[0]["variant"].(map[string]any)
	assert.Equal(t, "79.99", onSale["price"])
	assert.Equal(t, "99.99", onSale["compare_at_price"])

	// Non-discounted item: regular price sells, compare-at cleared
	regular := variantBodies[1]["variant"].(map[string]any)
	assert.Equal(t, "15.00", regular["price"])
	assert.Nil(t, regular["compare_at_price"])
}

func TestShopifyAdapter_RateLimitTracking(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shopify-Shop-Api-Call-Limit", "32/40")
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	status := adapter.RateLimitStatus()
	assert.Equal(t, 40, status.Limit)
	assert.Equal(t, 8, status.Remaining)
	assert.False(t, status.Reset.IsZero())
}

func TestShopifyAdapter_OrderPagination(t *testing.T) {
	pagesServed := 0
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/orders.json", func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		cursor := r.URL.Query().Get("page_info")
		switch cursor {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<https://x/admin/api/%s/orders.json?page_info=cur2>; rel="next"`, ShopifyAPIVersion))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"orders": []map[string]any{
					{"id": 1001, "name": "#1001", "financial_status": "paid", "total_price": "50.00", "currency": "USD"},
				},
			})
		case "cur2":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"orders": []map[string]any{
					{"id": 1002, "name": "#1002", "financial_status": "pending", "total_price": "20.00", "currency": "USD"},
				},
			})
		default:
			writeJSON(t, w, http.StatusNotFound, map[string]any{"errors": "unknown cursor"})
		}
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	orders, err := adapter.GetRecentOrders(context.Background(), marketplace.OrderQuery{}, 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "#1001", orders[0].MarketplaceOrderID)
	assert.Equal(t, marketplace.OrderStatusPaid, orders[0].Status)
	assert.Equal(t, marketplace.OrderStatusPending, orders[1].Status)
	assert.Equal(t, 2, pagesServed)
}

func TestShopifyAdapter_UpdateOrderStatus(t *testing.T) {
	var fulfillment shopifyFulfillmentRequest
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/locations.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"locations": []map[string]any{{"id": 501, "active": true}},
		})
	})
	mux.HandleFunc(shopifyTestPrefix+"/orders/1001/fulfillments.json", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fulfillment))
		writeJSON(t, w, http.StatusCreated, map[string]any{"fulfillment": map[string]any{"id": 7}})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	t.Run("shipped creates a fulfillment with tracking", func(t *testing.T) {
		result, err := adapter.UpdateOrderStatus(context.Background(), "1001",
			marketplace.OrderStatusShipped,
			&marketplace.TrackingInfo{Carrier: "dhl", TrackingNumber: "JD0123456789"})
		require.NoError(t, err)
		assert.True(t, result.Succeeded("1001"))
		assert.Equal(t, "JD0123456789", fulfillment.Fulfillment.TrackingNumber)
		assert.Equal(t, "dhl", fulfillment.Fulfillment.TrackingCompany)
		assert.Equal(t, int64(501), fulfillment.Fulfillment.LocationID)
	})

	t.Run("unsupported transition is a per-item rejection", func(t *testing.T) {
		result, err := adapter.UpdateOrderStatus(context.Background(), "1001",
			marketplace.OrderStatusDelivered, nil)
		require.NoError(t, err)
		failure := result.FailureFor("1001")
		require.NotNil(t, failure)
		assert.Equal(t, marketplace.FailureCodeRejected, failure.Code)
	})
}

func TestShopifyAdapter_AcknowledgeOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(shopifyTestPrefix+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 1}})
	})
	mux.HandleFunc(shopifyTestPrefix+"/orders/404404.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"errors": "Not Found"})
	})

	adapter, _ := newTestShopifyAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), shopifyTestCredentials()))

	result, err := adapter.AcknowledgeOrder(context.Background(), "404404")
	require.NoError(t, err)
	failure := result.FailureFor("404404")
	require.NotNil(t, failure)
	assert.Equal(t, marketplace.FailureCodeOrderNotFound, failure.Code)
}

func TestParseNextPageInfo(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{
			name: "next only",
			link: `<https://shop.myshopify.com/admin/api/2024-01/orders.json?page_info=abc123&limit=50>; rel="next"`,
			want: "abc123",
		},
		{
			name: "previous and next",
			link: `<https://x/orders.json?page_info=prev1>; rel="previous", <https://x/orders.json?page_info=next2>; rel="next"`,
			want: "next2",
		},
		{
			name: "previous only",
			link: `<https://x/orders.json?page_info=prev1>; rel="previous"`,
			want: "",
		},
		{
			name: "empty header",
			link: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseNextPageInfo(tt.link))
		})
	}
}
