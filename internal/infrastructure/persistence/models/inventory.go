package models

import (
	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ItemModel is the persistence model for an inventory item
type ItemModel struct {
	BaseModel
	UserID      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_item_user_sku,priority:1"`
	SKU         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_item_user_sku,priority:2"`
	Title       string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	RRP         decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'ZAR'"`
	StockLevel  int             `gorm:"not null;default:0"`
	Status      string          `gorm:"type:varchar(16);not null;index"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain item
func (m *ItemModel) ToDomain() *inventory.Item {
	return &inventory.Item{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		SKU:         m.SKU,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
		RRP:         m.RRP,
		Currency:    m.Currency,
		StockLevel:  m.StockLevel,
		Status:      inventory.ItemStatus(m.Status),
	}
}

// ItemModelFromDomain creates a persistence model from a domain item
func ItemModelFromDomain(item *inventory.Item) *ItemModel {
	model := &ItemModel{
		UserID:      item.UserID,
		SKU:         item.SKU,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		RRP:         item.RRP,
		Currency:    item.Currency,
		StockLevel:  item.StockLevel,
		Status:      string(item.Status),
	}
	model.FromDomainBaseEntity(item.BaseEntity)
	return model
}
