package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/interfaces/http/dto"
)

type mockCredentialStore struct {
	mock.Mock
}

func (m *mockCredentialStore) GetCredentials(ctx context.Context, userID string, code marketplace.Code) (marketplace.Credentials, error) {
	args := m.Called(ctx, userID, code)
	return args.Get(0).(marketplace.Credentials), args.Error(1)
}

func (m *mockCredentialStore) StoreCredentials(ctx context.Context, userID string, code marketplace.Code, creds marketplace.Credentials) error {
	args := m.Called(ctx, userID, code, creds)
	return args.Error(0)
}

func (m *mockCredentialStore) DeleteCredentials(ctx context.Context, userID string, code marketplace.Code) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}

func (m *mockCredentialStore) ListMarketplaces(ctx context.Context, userID string) ([]marketplace.Code, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketplace.Code), args.Error(1)
}

type mockSyncRecordRepository struct {
	mock.Mock
}

func (m *mockSyncRecordRepository) Save(ctx context.Context, record *marketplace.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockSyncRecordRepository) FindRecent(ctx context.Context, userID string, limit int) ([]marketplace.SyncRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketplace.SyncRecord), args.Error(1)
}

func (m *mockSyncRecordRepository) LastSyncedAt(ctx context.Context, userID string, code marketplace.Code) (*time.Time, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

type mockActivityReader struct {
	mock.Mock
}

func (m *mockActivityReader) RecentForUser(ctx context.Context, userID string, limit int) ([]marketplace.Activity, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketplace.Activity), args.Error(1)
}

type marketplaceTestDeps struct {
	creds      *mockCredentialStore
	records    *mockSyncRecordRepository
	activities *mockActivityReader
}

func newMarketplaceRouter(userID string) (*gin.Engine, *marketplaceTestDeps) {
	gin.SetMode(gin.TestMode)
	deps := &marketplaceTestDeps{
		creds:      &mockCredentialStore{},
		records:    &mockSyncRecordRepository{},
		activities: &mockActivityReader{},
	}
	h := NewMarketplaceHandler(nil, nil, nil, deps.creds, deps.records, deps.activities)

	r := gin.New()
	r.Use(asUser(userID))
	r.POST("/marketplaces/:id/credentials", h.StoreCredentials)
	r.GET("/marketplaces/credentials", h.ListCredentials)
	r.DELETE("/marketplaces/:id/credentials", h.DeleteCredentials)
	r.GET("/marketplaces/sync/records", h.ListSyncRecords)
	r.GET("/marketplaces/activities", h.ListActivities)
	return r, deps
}

func TestMarketplaceHandler_StoreCredentials(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.creds.On("StoreCredentials", mock.Anything, testUserID, marketplace.CodeShopify, mock.Anything).Return(nil)

	body := []byte(`{"access_token":"shpat_xxx","shop_domain":"acme.myshopify.com"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/marketplaces/shopify/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	deps.creds.AssertExpectations(t)
}

func TestMarketplaceHandler_StoreCredentials_NormalizesRegionSuffix(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.creds.On("StoreCredentials", mock.Anything, testUserID, marketplace.CodeAmazon, mock.Anything).Return(nil)

	body := []byte(`{"refresh_token":"rt","client_id":"cid","client_secret":"cs","seller_id":"A1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/marketplaces/AMAZON_US/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	deps.creds.AssertExpectations(t)
}

func TestMarketplaceHandler_StoreCredentials_UnknownMarketplace(t *testing.T) {
	r, _ := newMarketplaceRouter(testUserID)

	body := []byte(`{"api_key":"key"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/marketplaces/ebay/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeMarketplaceNotSupported, resp.Error.Code)
}

func TestMarketplaceHandler_StoreCredentials_EmptyPayload(t *testing.T) {
	r, _ := newMarketplaceRouter(testUserID)

	body := []byte(`{}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/marketplaces/takealot/credentials", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketplaceHandler_ListCredentials(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.creds.On("ListMarketplaces", mock.Anything, testUserID).
		Return([]marketplace.Code{marketplace.CodeAmazon, marketplace.CodeShopify}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/marketplaces/credentials", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["marketplaces"], 2)
}

func TestMarketplaceHandler_ListCredentials_EmptyIsNotNull(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.creds.On("ListMarketplaces", mock.Anything, testUserID).Return(nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/marketplaces/credentials", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"marketplaces":[]`)
}

func TestMarketplaceHandler_DeleteCredentials(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.creds.On("DeleteCredentials", mock.Anything, testUserID, marketplace.CodeDHL).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/marketplaces/dhl/credentials", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	deps.creds.AssertExpectations(t)
}

func TestMarketplaceHandler_DeleteCredentials_NotFound(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.creds.On("DeleteCredentials", mock.Anything, testUserID, marketplace.CodeFedEx).
		Return(marketplace.ErrCredentialsNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/marketplaces/fedex/credentials", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarketplaceHandler_ListSyncRecords(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.records.On("FindRecent", mock.Anything, testUserID, 50).Return([]marketplace.SyncRecord{
		{
			UserID:      testUserID,
			Marketplace: marketplace.CodeAmazon,
			Operation:   "sync_stock",
			Status:      marketplace.SyncStatusSuccess,
			SyncedAt:    time.Now(),
		},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/marketplaces/sync/records", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	deps.records.AssertExpectations(t)
}

func TestMarketplaceHandler_ListSyncRecords_CustomLimit(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.records.On("FindRecent", mock.Anything, testUserID, 10).Return([]marketplace.SyncRecord{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/marketplaces/sync/records?limit=10", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	deps.records.AssertExpectations(t)
}

func TestMarketplaceHandler_ListActivities(t *testing.T) {
	r, deps := newMarketplaceRouter(testUserID)
	deps.activities.On("RecentForUser", mock.Anything, testUserID, 50).Return([]marketplace.Activity{
		{
			UserID:      testUserID,
			Description: "Pushed price for WIDGET-1",
			EntityType:  "product",
			Action:      "push_price",
			Status:      marketplace.ActivityStatusSuccess,
			OccurredAt:  time.Now(),
		},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/marketplaces/activities", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	deps.activities.AssertExpectations(t)
}

func TestMarketplaceHandler_Unauthenticated(t *testing.T) {
	r, _ := newMarketplaceRouter("")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/marketplaces/credentials", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
