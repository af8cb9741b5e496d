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

func newTestFedExAdapter(t *testing.T, handler http.Handler) *FedExAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := NewFedExConfig()
	config.APIBaseURL = server.URL
	adapter, err := NewFedExAdapter(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func fedexTestCredentials() marketplace.Credentials {
	return marketplace.Credentials{
		ClientID:      "fedex-client",
		ClientSecret:  "fedex-secret",
		AccountNumber: "510087000",
	}
}

func TestFedExAdapter_Initialize(t *testing.T) {
	t.Run("exchanges client credentials against the API host", func(t *testing.T) {
		var exchanges atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/token", tokenHandler(t, &exchanges))

		adapter := newTestFedExAdapter(t, mux)
		err := adapter.Initialize(context.Background(), fedexTestCredentials())
		require.NoError(t, err)
		assert.Equal(t, int32(1), exchanges.Load())
	})

	t.Run("rejected exchange maps to authentication failure", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
		})

		adapter := newTestFedExAdapter(t, mux)
		err := adapter.Initialize(context.Background(), fedexTestCredentials())
		assert.ErrorIs(t, err, marketplace.ErrAuthenticationFailed)
	})

	t.Run("missing account number rejected before any request", func(t *testing.T) {
		adapter, err := NewFedExAdapter(NewFedExConfig())
		require.NoError(t, err)

		creds := fedexTestCredentials()
		creds.AccountNumber = ""
		err = adapter.Initialize(context.Background(), creds)
		assert.ErrorIs(t, err, marketplace.ErrMissingCredentials)
	})
}

func TestFedExAdapter_CreateShipment(t *testing.T) {
	var exchanges atomic.Int32
	var shipBody fedexShipRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/ship/v1/shipments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer carrier-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&shipBody))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"output": map[string]any{
				"transactionShipments": []map[string]any{{
					"masterTrackingNumber": "794600000001",
					"pieceResponses": []map[string]any{{
						"trackingNumber": "794600000001",
						"packageDocuments": []map[string]any{
							{"url": "https://labels.test/794600000001.pdf", "docType": "LABEL"},
						},
					}},
				}},
			},
		})
	})

	adapter := newTestFedExAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), fedexTestCredentials()))

	shipment, err := adapter.CreateShipment(context.Background(), testShipmentRequest())
	require.NoError(t, err)
	assert.Equal(t, "794600000001", shipment.TrackingNumber)
	assert.Equal(t, marketplace.CodeFedEx, shipment.Carrier)
	assert.Equal(t, "https://labels.test/794600000001.pdf", shipment.LabelURL)

	assert.Equal(t, "510087000", shipBody.AccountNumber.Value)
	require.Len(t, shipBody.RequestedShipment.RequestedPackageLineItems, 1)
	assert.Equal(t, "KG", shipBody.RequestedShipment.RequestedPackageLineItems[0].Weight.Units)
	require.Len(t, shipBody.RequestedShipment.CustomerReferences, 1)
	assert.Equal(t, "ORDER-42", shipBody.RequestedShipment.CustomerReferences[0].Value)
}

func TestFedExAdapter_TrackShipment(t *testing.T) {
	var exchanges atomic.Int32
	trackResults := map[string]any{
		"output": map[string]any{
			"completeTrackResults": []map[string]any{{
				"trackingNumber": "794600000001",
				"trackResults": []map[string]any{{
					"latestStatusDetail": map[string]any{
						"derivedCode": "DL", "description": "Delivered",
					},
					"scanEvents": []map[string]any{
						{
							"date": "2026-08-23T11:02:00Z", "eventDescription": "Delivered",
							"derivedStatusCode": "DL",
							"scanLocation":      map[string]any{"city": "MEMPHIS"},
						},
						{
							"date": "2026-08-22T07:40:00Z", "eventDescription": "In transit",
							"derivedStatusCode": "IT",
						},
					},
				}},
			}},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/track/v1/trackingnumbers", func(w http.ResponseWriter, r *http.Request) {
		var req fedexTrackRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.TrackingInfo, 1)

		if req.TrackingInfo[0].TrackingNumberInfo.TrackingNumber == "UNKNOWN" {
			// FedEx reports unknown numbers inside a 200 body
			writeJSON(t, w, http.StatusOK, map[string]any{
				"output": map[string]any{
					"completeTrackResults": []map[string]any{{
						"trackingNumber": "UNKNOWN",
						"trackResults": []map[string]any{{
							"error": map[string]any{"code": "TRACKING.TRACKINGNUMBER.NOTFOUND", "message": "tracking number not found"},
						}},
					}},
				},
			})
			return
		}
		writeJSON(t, w, http.StatusOK, trackResults)
	})

	adapter := newTestFedExAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), fedexTestCredentials()))

	t.Run("known shipment", func(t *testing.T) {
		shipment, err := adapter.TrackShipment(context.Background(), "794600000001")
		require.NoError(t, err)
		assert.Equal(t, marketplace.ShipmentStatusDelivered, shipment.Status)
		require.Len(t, shipment.Events, 2)
		assert.Equal(t, "MEMPHIS", shipment.Events[0].Location)
		assert.Equal(t, marketplace.ShipmentStatusInTransit, shipment.Events[1].Status)
	})

	t.Run("unknown shipment reported inside a 200 body", func(t *testing.T) {
		_, err := adapter.TrackShipment(context.Background(), "UNKNOWN")
		assert.ErrorIs(t, err, marketplace.ErrShipmentNotFound)
	})
}

func TestFedExAdapter_GetRates(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/rate/v1/rates/quotes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"output": map[string]any{
				"rateReplyDetails": []map[string]any{
					{
						"serviceType": "FEDEX_GROUND", "serviceName": "FedEx Ground",
						"ratedShipmentDetails": []map[string]any{
							{"totalNetCharge": 18.45, "currency": "USD"},
						},
					},
					{
						"serviceType": "PRIORITY_OVERNIGHT", "serviceName": "FedEx Priority Overnight",
						"ratedShipmentDetails": []map[string]any{
							{"totalNetCharge": 92.10, "currency": "USD"},
						},
					},
				},
			},
		})
	})

	adapter := newTestFedExAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), fedexTestCredentials()))

	quotes, err := adapter.GetRates(context.Background(), testShipmentRequest())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "FEDEX_GROUND", quotes[0].ServiceCode)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("18.45")))
	assert.Equal(t, "USD", quotes[1].Currency)
}

func TestFedExAdapter_CancelShipment(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &exchanges))
	mux.HandleFunc("/ship/v1/shipments/cancel", func(w http.ResponseWriter, r *http.Request) {
		var req fedexCancelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.TrackingNumber == "COLLECTED" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"output": map[string]any{"cancelledShipment": false},
				"errors": []map[string]any{
					{"code": "SHIPMENT.ALREADYINPOSSESSION", "message": "shipment already in FedEx possession"},
				},
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"output": map[string]any{"cancelledShipment": true, "successMessage": "Success"},
		})
	})

	adapter := newTestFedExAdapter(t, mux)
	require.NoError(t, adapter.Initialize(context.Background(), fedexTestCredentials()))

	t.Run("cancellable shipment", func(t *testing.T) {
		result, err := adapter.CancelShipment(context.Background(), "794600000001")
		require.NoError(t, err)
		assert.True(t, result.Succeeded("794600000001"))
	})

	t.Run("carrier rejection is a per-item failure", func(t *testing.T) {
		result, err := adapter.CancelShipment(context.Background(), "COLLECTED")
		require.NoError(t, err)
		failure := result.FailureFor("COLLECTED")
		require.NotNil(t, failure)
		assert.Equal(t, marketplace.FailureCodeRejected, failure.Code)
		assert.Contains(t, failure.Message, "possession")
	})
}

func TestFedExAdapter_TestConnection(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &exchanges))

	adapter := newTestFedExAdapter(t, mux)

	t.Run("before initialization", func(t *testing.T) {
		status := adapter.TestConnection(context.Background())
		assert.False(t, status.Connected)
	})

	t.Run("after initialization", func(t *testing.T) {
		require.NoError(t, adapter.Initialize(context.Background(), fedexTestCredentials()))
		status := adapter.TestConnection(context.Background())
		assert.True(t, status.Connected)
	})
}
