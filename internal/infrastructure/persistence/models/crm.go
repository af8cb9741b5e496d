package models

import (
	"time"

	"github.com/channelops/backend/internal/domain/crm"
	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for a buyer record
type CustomerModel struct {
	BaseModel
	UserID      string          `gorm:"type:varchar(64);not null;index:idx_customer_user_email,priority:1"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Email       string          `gorm:"type:varchar(200);index:idx_customer_user_email,priority:2"`
	Phone       string          `gorm:"type:varchar(50)"`
	Marketplace string          `gorm:"type:varchar(32)"`
	TotalOrders int             `gorm:"not null;default:0"`
	TotalSpend  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"`
	Status      string          `gorm:"type:varchar(16);not null;index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain customer
func (m *CustomerModel) ToDomain() *crm.Customer {
	return &crm.Customer{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		Marketplace: marketplace.Code(m.Marketplace),
		TotalOrders: m.TotalOrders,
		TotalSpend:  m.TotalSpend,
		Status:      crm.CustomerStatus(m.Status),
	}
}

// CustomerModelFromDomain creates a persistence model from a domain customer
func CustomerModelFromDomain(customer *crm.Customer) *CustomerModel {
	model := &CustomerModel{
		UserID:      customer.UserID,
		Name:        customer.Name,
		Email:       customer.Email,
		Phone:       customer.Phone,
		Marketplace: customer.Marketplace.String(),
		TotalOrders: customer.TotalOrders,
		TotalSpend:  customer.TotalSpend,
		Status:      string(customer.Status),
	}
	model.FromDomainBaseEntity(customer.BaseEntity)
	return model
}

// ProjectModel is the persistence model for a seller project
type ProjectModel struct {
	BaseModel
	UserID      string     `gorm:"type:varchar(64);not null;index"`
	Name        string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:text"`
	Status      string     `gorm:"type:varchar(16);not null;index"`
	DueDate     *time.Time
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain project
func (m *ProjectModel) ToDomain() *crm.Project {
	return &crm.Project{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Name:        m.Name,
		Description: m.Description,
		Status:      crm.ProjectStatus(m.Status),
		DueDate:     m.DueDate,
		CompletedAt: m.CompletedAt,
	}
}

// ProjectModelFromDomain creates a persistence model from a domain project
func ProjectModelFromDomain(project *crm.Project) *ProjectModel {
	model := &ProjectModel{
		UserID:      project.UserID,
		Name:        project.Name,
		Description: project.Description,
		Status:      string(project.Status),
		DueDate:     project.DueDate,
		CompletedAt: project.CompletedAt,
	}
	model.FromDomainBaseEntity(project.BaseEntity)
	return model
}
