package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelops/backend/internal/domain/marketplace"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

// tokenHandler serves the OAuth2 client-credentials exchange
func tokenHandler(t *testing.T, exchanges *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token": "carrier-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}
}

func newTestDHLAdapter(t *testing.T, handler http.Handler) *DHLAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := NewDHLConfig()
	config.APIBaseURL = server.URL
	config.TokenURL = server.URL + "/auth/token"
	adapter, err := NewDHLAdapter(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func dhlTestCredentials() marketplace.Credentials {
	return marketplace.Credentials{
		ClientID:      "dhl-client",
		ClientSecret:  "dhl-secret",
		AccountNumber: "123456789",
	}
}

func testShipmentRequest() marketplace.ShipmentRequest {
	return marketplace.ShipmentRequest{
		Reference: "ORDER-42",
		From: marketplace.Address{
			Name: "Warehouse", Line1: "1 Depot Rd", City: "Cape Town",
			PostalCode: "8001", CountryCode: "ZA",
		},
		To: marketplace.Address{
			Name: "P. Buyer", Line1: "9 Oak Ave", City: "Johannesburg",
			PostalCode: "2000", CountryCode: "ZA",
		},
		Parcels: []marketplace.Parcel{
			{WeightKG: decimal.RequireFromString("1.5"), LengthCM: 30, WidthCM: 20, HeightCM: 10},
		},
	}
}

func TestDHLAdapter_Initialize(t *testing.T) {
	t.Run("exchanges client credentials", func(t *testing.T) {
		var exchanges atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/token", tokenHandler(t, &exchanges))

		adapter := newTestDHLAdapter(t, mux)
		err := adapter.Initialize(context.Background(), dhlTestCredentials())
		require.NoError(t, err)
		assert.Equal(t, int32(1), exchanges.Load())
	})

	t.Run("rejected exchange maps to authentication failure", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
		})

		adapter := newTestDHLAdapter(t, mux)
		err := adapter.Initialize(context.Background(), dhlTestCredentials())
		assert.ErrorIs(t, err, marketplace.ErrAuthenticationFailed)
	})

	t.Run("missing credentials rejected before any request", func(t *testing.T) {
		adapter, err := NewDHLAdapter(NewDHLConfig())
		require.NoError(t, err)

		err = adapter.Initialize(context.Background(), marketplace.Credentials{ClientID: "only-id"})
		assert.ErrorIs(t, err, marketplace.ErrMissingCredentials)
	})
}

func TestDHLAdapter_CreateShipment(t *testing.T) {
	var exchanges atomic.Int32
	var shipBody dhlShipmentRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/shipments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer carrier-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&shipBody))
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"shipmentTrackingNumber": "JD0123456789",
			"documents": []map[string]any{
				{"typeCode": "label", "imageFormat": "PDF", "url": "https://labels.test/JD0123456789.pdf"},
			},
		})
	})

	adapter := newTestDHLAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), dhlTestCredentials()))

	shipment, err := adapter.CreateShipment(context.Background(), testShipmentRequest())
	require.NoError(t, err)
	assert.Equal(t, "JD0123456789", shipment.TrackingNumber)
	assert.Equal(t, marketplace.CodeDHL, shipment.Carrier)
	assert.Equal(t, marketplace.ShipmentStatusCreated, shipment.Status)
	assert.Equal(t, "https://labels.test/JD0123456789.pdf", shipment.LabelURL)

	require.Len(t, shipBody.Accounts, 1)
	assert.Equal(t, "123456789", shipBody.Accounts[0].Number)
	require.Len(t, shipBody.Content.Packages, 1)
	assert.InDelta(t, 1.5, shipBody.Content.Packages[0].Weight, 0.001)
	require.Len(t, shipBody.CustomerReferences, 1)
	assert.Equal(t, "ORDER-42", shipBody.CustomerReferences[0].Value)
}

func TestDHLAdapter_TrackShipment(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/shipments/JD0123456789/tracking", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"shipments": []map[string]any{{
				"shipmentTrackingNumber": "JD0123456789",
				"status":                 "transit",
				"events": []map[string]any{
					{
						"date": "2026-08-22", "time": "14:30:00", "typeCode": "PL",
						"description": "Processed at facility",
						"serviceArea": []map[string]any{{"description": "Cape Town"}},
					},
					{
						"date": "2026-08-22", "time": "09:00:00", "typeCode": "PU",
						"description": "Shipment picked up",
					},
				},
			}},
		})
	})
	mux.HandleFunc("/shipments/UNKNOWN/tracking", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"detail": "No shipment found"})
	})

	adapter := newTestDHLAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), dhlTestCredentials()))

	t.Run("known shipment", func(t *testing.T) {
		shipment, err := adapter.TrackShipment(context.Background(), "JD0123456789")
		require.NoError(t, err)
		assert.Equal(t, marketplace.ShipmentStatusInTransit, shipment.Status)
		require.Len(t, shipment.Events, 2)
		assert.Equal(t, "Cape Town", shipment.Events[0].Location)
		assert.Equal(t, marketplace.ShipmentStatusCreated, shipment.Events[1].Status)
	})

	t.Run("unknown shipment", func(t *testing.T) {
		_, err := adapter.TrackShipment(context.Background(), "UNKNOWN")
		assert.ErrorIs(t, err, marketplace.ErrShipmentNotFound)
	})
}

func TestDHLAdapter_GetRates(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/rates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"products": []map[string]any{
				{
					"productName": "EXPRESS DOMESTIC", "productCode": "N",
					"totalPrice": []map[string]any{
						{"currencyType": "BILLC", "priceCurrency": "ZAR", "price": 245.80},
					},
					"deliveryCapabilities": map[string]any{"totalTransitDays": 1},
				},
			},
		})
	})

	adapter := newTestDHLAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), dhlTestCredentials()))

	quotes, err := adapter.GetRates(context.Background(), testShipmentRequest())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "N", quotes[0].ServiceCode)
	assert.Equal(t, "ZAR", quotes[0].Currency)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("245.8")))
	assert.Equal(t, 1, quotes[0].EstimatedDays)
}

func TestDHLAdapter_CancelShipment(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/shipments/JD0123456789", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/shipments/COLLECTED", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]any{"detail": "shipment already collected"})
	})

	adapter := newTestDHLAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), dhlTestCredentials()))

	t.Run("cancellable shipment", func(t *testing.T) {
		result, err := adapter.CancelShipment(context.Background(), "JD0123456789")
		require.NoError(t, err)
		assert.True(t, result.Succeeded("JD0123456789"))
	})

	t.Run("carrier rejection is a per-item failure", func(t *testing.T) {
		result, err := adapter.CancelShipment(context.Background(), "COLLECTED")
		require.NoError(t, err)
		failure := result.FailureFor("COLLECTED")
		require.NotNil(t, failure)
		assert.Equal(t, marketplace.FailureCodeRejected, failure.Code)
		assert.Contains(t, failure.Message, "collected")
	})
}

func TestDHLAdapter_ProductOperationsUnsupported(t *testing.T) {
	adapter, err := NewDHLAdapter(NewDHLConfig())
	require.NoError(t, err)

	_, _, err = adapter.GetProductBySKU(context.Background(), "SKU-1")
	assert.ErrorIs(t, err, marketplace.ErrNotSupported)

	_, err = adapter.UpdateStock(context.Background(), nil)
	assert.ErrorIs(t, err, marketplace.ErrNotSupported)

	_, err = adapter.GetOrders(context.Background(), marketplace.OrderQuery{})
	assert.ErrorIs(t, err, marketplace.ErrNotSupported)
}
