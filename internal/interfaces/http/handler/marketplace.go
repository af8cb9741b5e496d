package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	marketplaceapp "github.com/channelops/backend/internal/application/marketplace"
	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/domain/shared"
	"github.com/channelops/backend/internal/interfaces/http/dto"
	"github.com/channelops/backend/internal/interfaces/http/middleware"
)

// CredentialStore is the credential manager surface the handler needs,
// including enumeration of a user's connected marketplaces
type CredentialStore interface {
	marketplace.CredentialManager
	ListMarketplaces(ctx context.Context, userID string) ([]marketplace.Code, error)
}

// MarketplaceHandler serves marketplace integration endpoints
type MarketplaceHandler struct {
	BaseHandler
	push       *marketplaceapp.PushService
	sync       *marketplaceapp.SyncService
	items      inventory.ItemRepository
	creds      CredentialStore
	records    marketplace.SyncRecordRepository
	activities marketplace.ActivityReader
}

// NewMarketplaceHandler creates a new marketplace handler
func NewMarketplaceHandler(
	push *marketplaceapp.PushService,
	sync *marketplaceapp.SyncService,
	items inventory.ItemRepository,
	creds CredentialStore,
	records marketplace.SyncRecordRepository,
	activities marketplace.ActivityReader,
) *MarketplaceHandler {
	return &MarketplaceHandler{
		push:       push,
		sync:       sync,
		items:      items,
		creds:      creds,
		records:    records,
		activities: activities,
	}
}

// StoreCredentialsRequest carries vendor credentials to encrypt and store
type StoreCredentialsRequest struct {
	APIKey        string            `json:"api_key"`
	APISecret     string            `json:"api_secret"`
	AccessToken   string            `json:"access_token"`
	RefreshToken  string            `json:"refresh_token"`
	ClientID      string            `json:"client_id"`
	ClientSecret  string            `json:"client_secret"`
	SellerID      string            `json:"seller_id"`
	ShopDomain    string            `json:"shop_domain"`
	AccountNumber string            `json:"account_number"`
	Region        string            `json:"region"`
	Extras        map[string]string `json:"extras"`
}

// SyncProductRequest names the item and target marketplaces for a full
// product sync. An empty marketplace list targets every initialized adapter.
type SyncProductRequest struct {
	ItemID         uuid.UUID `json:"item_id" binding:"required"`
	MarketplaceIDs []string  `json:"marketplace_ids"`
}

// SyncStockRequest carries batched stock levels for one or more marketplaces
type SyncStockRequest struct {
	Updates        []StockUpdateEntry `json:"updates" binding:"required,min=1,dive"`
	MarketplaceIDs []string           `json:"marketplace_ids"`
}

// StockUpdateEntry is one SKU's absolute stock level
type StockUpdateEntry struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

// InitializeMarketplace handles POST /marketplaces/:id/initialize
func (h *MarketplaceHandler) InitializeMarketplace(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	code, err := h.sync.InitializeMarketplace(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"marketplace": code,
		"initialized": true,
	})
}

// CheckHealth handles GET /marketplaces/health
func (h *MarketplaceHandler) CheckHealth(c *gin.Context) {
	reports := h.sync.CheckMarketplaceHealth(c.Request.Context())
	h.Success(c, reports)
}

// StoreCredentials handles POST /marketplaces/:id/credentials
func (h *MarketplaceHandler) StoreCredentials(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	code := marketplace.NormalizeCode(c.Param("id"))
	if !code.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeMarketplaceNotSupported, "Unknown marketplace: "+c.Param("id"))
		return
	}

	var req StoreCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	creds := marketplace.Credentials{
		APIKey:        req.APIKey,
		APISecret:     req.APISecret,
		AccessToken:   req.AccessToken,
		RefreshToken:  req.RefreshToken,
		ClientID:      req.ClientID,
		ClientSecret:  req.ClientSecret,
		SellerID:      req.SellerID,
		ShopDomain:    req.ShopDomain,
		AccountNumber: req.AccountNumber,
		Region:        req.Region,
		Extras:        req.Extras,
	}
	if creds.IsZero() {
		h.BadRequest(c, "At least one credential field is required")
		return
	}

	if err := h.creds.StoreCredentials(c.Request.Context(), userID, code, creds); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"marketplace": code})
}

// ListCredentials handles GET /marketplaces/credentials
func (h *MarketplaceHandler) ListCredentials(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	codes, err := h.creds.ListMarketplaces(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if codes == nil {
		codes = []marketplace.Code{}
	}

	h.Success(c, gin.H{"marketplaces": codes})
}

// DeleteCredentials handles DELETE /marketplaces/:id/credentials
func (h *MarketplaceHandler) DeleteCredentials(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	code := marketplace.NormalizeCode(c.Param("id"))
	if !code.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeMarketplaceNotSupported, "Unknown marketplace: "+c.Param("id"))
		return
	}

	if err := h.creds.DeleteCredentials(c.Request.Context(), userID, code); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// PushProduct handles POST /marketplaces/:id/products/:product_id/push
func (h *MarketplaceHandler) PushProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req marketplaceapp.PushUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.push.PushProductUpdate(c.Request.Context(), userID, productID, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SyncProduct handles POST /marketplaces/sync/product
func (h *MarketplaceHandler) SyncProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SyncProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.items.FindByID(c.Request.Context(), req.ItemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if item.UserID != userID {
		h.HandleError(c, shared.ErrNotFound)
		return
	}

	report, err := h.sync.SyncProduct(c.Request.Context(), userID, item, req.MarketplaceIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// SyncStock handles POST /marketplaces/sync/stock
func (h *MarketplaceHandler) SyncStock(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SyncStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	updates := make([]marketplace.StockUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, marketplace.StockUpdate{
			SKU:      u.SKU,
			Quantity: u.Quantity,
		})
	}

	report, err := h.sync.SyncStockLevels(c.Request.Context(), userID, updates, req.MarketplaceIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// ListSyncRecords handles GET /marketplaces/sync/records
func (h *MarketplaceHandler) ListSyncRecords(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	limit := queryLimit(c, 50)
	records, err := h.records.FindRecent(c.Request.Context(), userID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if records == nil {
		records = []marketplace.SyncRecord{}
	}

	h.Success(c, records)
}

// ListActivities handles GET /marketplaces/activities
func (h *MarketplaceHandler) ListActivities(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	limit := queryLimit(c, 50)
	activities, err := h.activities.RecentForUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if activities == nil {
		activities = []marketplace.Activity{}
	}

	h.Success(c, activities)
}
