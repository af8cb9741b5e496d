package persistence

import (
	"github.com/channelops/backend/internal/infrastructure/persistence/models"
)

// AllModels returns every persistence model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&models.ItemModel{},
		&models.InsightModel{},
		&models.CustomerModel{},
		&models.ProjectModel{},
		&models.MarketplaceCredentialModel{},
		&models.SyncRecordModel{},
		&models.ActivityLogModel{},
	}
}
