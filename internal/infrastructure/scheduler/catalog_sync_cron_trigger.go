package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SyncUserSource lists the users whose catalogs should be kept in sync.
// Satisfied by the credential store: a user with stored marketplace
// credentials is a sync candidate.
type SyncUserSource interface {
	UsersWithCredentials(ctx context.Context) ([]string, error)
}

// CatalogSyncCronTriggerConfig holds configuration for the catalog sync cron trigger
type CatalogSyncCronTriggerConfig struct {
	// CheckInterval is how often to check for sync jobs to schedule
	CheckInterval time.Duration

	// SyncInterval is how often each user's catalog gets a full push
	SyncInterval time.Duration
}

// DefaultCatalogSyncCronTriggerConfig returns default configuration
func DefaultCatalogSyncCronTriggerConfig() CatalogSyncCronTriggerConfig {
	return CatalogSyncCronTriggerConfig{
		CheckInterval: time.Minute,
		SyncInterval:  time.Hour,
	}
}

// CatalogSyncCronTrigger periodically schedules full-catalog syncs for every
// user with stored credentials
type CatalogSyncCronTrigger struct {
	config    CatalogSyncCronTriggerConfig
	scheduler *CatalogSyncScheduler
	users     SyncUserSource
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Track last scheduled time per user to avoid duplicate scheduling
	lastScheduledMu sync.RWMutex
	lastScheduled   map[string]time.Time
}

// NewCatalogSyncCronTrigger creates a new catalog sync cron trigger
func NewCatalogSyncCronTrigger(
	config CatalogSyncCronTriggerConfig,
	scheduler *CatalogSyncScheduler,
	users SyncUserSource,
	logger *zap.Logger,
) *CatalogSyncCronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSyncCronTrigger{
		config:        config,
		scheduler:     scheduler,
		users:         users,
		logger:        logger,
		lastScheduled: make(map[string]time.Time),
	}
}

// Start starts the cron trigger
func (c *CatalogSyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Catalog sync cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
		zap.Duration("sync_interval", c.config.SyncInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CatalogSyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Catalog sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop periodically checks and triggers sync jobs
func (c *CatalogSyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	c.checkAndSchedule(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndSchedule(ctx)
		}
	}
}

// checkAndSchedule schedules a sync for every user whose interval elapsed
func (c *CatalogSyncCronTrigger) checkAndSchedule(ctx context.Context) {
	userIDs, err := c.users.UsersWithCredentials(ctx)
	if err != nil {
		c.logger.Error("Failed to list sync candidates", zap.Error(err))
		return
	}

	now := time.Now()
	for _, userID := range userIDs {
		if !c.isDue(userID, now) {
			continue
		}

		if err := c.scheduler.ScheduleSync(userID, nil); err != nil {
			c.logger.Warn("Failed to schedule catalog sync",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		c.markScheduled(userID, now)
	}
}

// isDue returns true when the user's sync interval has elapsed
func (c *CatalogSyncCronTrigger) isDue(userID string, now time.Time) bool {
	c.lastScheduledMu.RLock()
	defer c.lastScheduledMu.RUnlock()

	last, ok := c.lastScheduled[userID]
	if !ok {
		return true
	}
	return now.Sub(last) >= c.config.SyncInterval
}

func (c *CatalogSyncCronTrigger) markScheduled(userID string, now time.Time) {
	c.lastScheduledMu.Lock()
	defer c.lastScheduledMu.Unlock()
	c.lastScheduled[userID] = now
}
