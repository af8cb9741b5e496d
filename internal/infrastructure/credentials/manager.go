package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/infrastructure/persistence/models"
)

// ErrInvalidMarketplace indicates the marketplace code is not recognized
var ErrInvalidMarketplace = errors.New("credentials: invalid marketplace code")

// credentialBag is the stored JSON form of a credential set. Field tags pin
// the on-disk format so domain struct renames cannot silently break
// previously stored rows.
type credentialBag struct {
	APIKey        string            `json:"api_key,omitempty"`
	APISecret     string            `json:"api_secret,omitempty"`
	AccessToken   string            `json:"access_token,omitempty"`
	RefreshToken  string            `json:"refresh_token,omitempty"`
	ClientID      string            `json:"client_id,omitempty"`
	ClientSecret  string            `json:"client_secret,omitempty"`
	SellerID      string            `json:"seller_id,omitempty"`
	ShopDomain    string            `json:"shop_domain,omitempty"`
	AccountNumber string            `json:"account_number,omitempty"`
	Region        string            `json:"region,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
}

func bagFromDomain(c marketplace.Credentials) credentialBag {
	return credentialBag{
		APIKey:        c.APIKey,
		APISecret:     c.APISecret,
		AccessToken:   c.AccessToken,
		RefreshToken:  c.RefreshToken,
		ClientID:      c.ClientID,
		ClientSecret:  c.ClientSecret,
		SellerID:      c.SellerID,
		ShopDomain:    c.ShopDomain,
		AccountNumber: c.AccountNumber,
		Region:        c.Region,
		Extras:        c.Extras,
	}
}

func (b credentialBag) toDomain() marketplace.Credentials {
	return marketplace.Credentials{
		APIKey:        b.APIKey,
		APISecret:     b.APISecret,
		AccessToken:   b.AccessToken,
		RefreshToken:  b.RefreshToken,
		ClientID:      b.ClientID,
		ClientSecret:  b.ClientSecret,
		SellerID:      b.SellerID,
		ShopDomain:    b.ShopDomain,
		AccountNumber: b.AccountNumber,
		Region:        b.Region,
		Extras:        b.Extras,
	}
}

// GormCredentialManager implements marketplace.CredentialManager on top of
// a gorm store, sealing each credential bag with AES-256-GCM before it
// touches the database.
type GormCredentialManager struct {
	db     *gorm.DB
	cipher *Cipher
}

// NewGormCredentialManager creates a new GormCredentialManager
func NewGormCredentialManager(db *gorm.DB, cipher *Cipher) *GormCredentialManager {
	return &GormCredentialManager{db: db, cipher: cipher}
}

// GetCredentials returns the decrypted credentials for a user and
// marketplace, or marketplace.ErrCredentialsNotFound if absent
func (m *GormCredentialManager) GetCredentials(ctx context.Context, userID string, code marketplace.Code) (marketplace.Credentials, error) {
	code = marketplace.NormalizeCode(code.String())

	var model models.MarketplaceCredentialModel
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND marketplace = ?", userID, code.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Credentials{}, fmt.Errorf("%w: %s/%s", marketplace.ErrCredentialsNotFound, userID, code)
		}
		return marketplace.Credentials{}, fmt.Errorf("credentials: load %s/%s: %w", userID, code, err)
	}

	plaintext, err := m.cipher.Decrypt(model.Ciphertext)
	if err != nil {
		return marketplace.Credentials{}, fmt.Errorf("credentials: open %s/%s: %w", userID, code, err)
	}
	var bag credentialBag
	if err := json.Unmarshal(plaintext, &bag); err != nil {
		return marketplace.Credentials{}, fmt.Errorf("credentials: decode %s/%s: %w", userID, code, err)
	}
	return bag.toDomain(), nil
}

// StoreCredentials encrypts and persists credentials, replacing any
// existing entry for the same user and marketplace
func (m *GormCredentialManager) StoreCredentials(ctx context.Context, userID string, code marketplace.Code, creds marketplace.Credentials) error {
	code = marketplace.NormalizeCode(code.String())
	if !code.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMarketplace, code)
	}
	if creds.IsZero() {
		return fmt.Errorf("%w: empty credential bag", marketplace.ErrMissingCredentials)
	}

	plaintext, err := json.Marshal(bagFromDomain(creds))
	if err != nil {
		return fmt.Errorf("credentials: encode %s/%s: %w", userID, code, err)
	}
	ciphertext, err := m.cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}

	model := models.MarketplaceCredentialModel{
		UserID:      userID,
		Marketplace: code.String(),
		Ciphertext:  ciphertext,
	}
	model.ID = uuid.New()

	err = m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "marketplace"}},
			DoUpdates: clause.AssignmentColumns([]string{"ciphertext", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("credentials: store %s/%s: %w", userID, code, err)
	}
	return nil
}

// DeleteCredentials removes stored credentials. Deleting an absent entry
// returns marketplace.ErrCredentialsNotFound.
func (m *GormCredentialManager) DeleteCredentials(ctx context.Context, userID string, code marketplace.Code) error {
	code = marketplace.NormalizeCode(code.String())

	result := m.db.WithContext(ctx).
		Where("user_id = ? AND marketplace = ?", userID, code.String()).
		Delete(&models.MarketplaceCredentialModel{})
	if result.Error != nil {
		return fmt.Errorf("credentials: delete %s/%s: %w", userID, code, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", marketplace.ErrCredentialsNotFound, userID, code)
	}
	return nil
}

// UsersWithCredentials returns the distinct users holding stored
// marketplace credentials. The scheduler uses this to pick sync candidates.
func (m *GormCredentialManager) UsersWithCredentials(ctx context.Context) ([]string, error) {
	var userIDs []string
	err := m.db.WithContext(ctx).
		Model(&models.MarketplaceCredentialModel{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("credentials: list users: %w", err)
	}
	return userIDs, nil
}

// ListMarketplaces returns the marketplaces a user has stored credentials
// for, normalized and sorted
func (m *GormCredentialManager) ListMarketplaces(ctx context.Context, userID string) ([]marketplace.Code, error) {
	var names []string
	err := m.db.WithContext(ctx).
		Model(&models.MarketplaceCredentialModel{}).
		Where("user_id = ?", userID).
		Order("marketplace ASC").
		Pluck("marketplace", &names).Error
	if err != nil {
		return nil, fmt.Errorf("credentials: list %s: %w", userID, err)
	}
	codes := make([]marketplace.Code, len(names))
	for i, name := range names {
		codes[i] = marketplace.Code(name)
	}
	return codes, nil
}

// Ensure GormCredentialManager implements marketplace.CredentialManager
var _ marketplace.CredentialManager = (*GormCredentialManager)(nil)
