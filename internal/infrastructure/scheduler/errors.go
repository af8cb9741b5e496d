package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrCatalogSyncFailed is returned when a catalog sync run fails
	ErrCatalogSyncFailed = errors.New("catalog sync failed")

	// ErrCatalogSyncTimeout is returned when a catalog sync run times out
	ErrCatalogSyncTimeout = errors.New("catalog sync timed out")

	// ErrNoActiveMarketplaces is returned when a user has no initialized marketplaces
	ErrNoActiveMarketplaces = errors.New("no active marketplaces for catalog sync")
)
