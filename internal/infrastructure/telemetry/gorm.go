package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// TraceDatabase registers the otelgorm plugin so every query becomes a child
// span of the request span. Query parameter values are withheld because
// credential ciphertext and customer data pass through these queries.
func TraceDatabase(db *gorm.DB, dbName string) error {
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("telemetry: register gorm tracing: %w", err)
	}
	return nil
}
