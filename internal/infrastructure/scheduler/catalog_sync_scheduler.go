package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Catalog Sync Job Types
// ---------------------------------------------------------------------------

// CatalogSyncJobStatus represents the status of a catalog sync job
type CatalogSyncJobStatus string

const (
	CatalogSyncJobStatusPending   CatalogSyncJobStatus = "PENDING"
	CatalogSyncJobStatusRunning   CatalogSyncJobStatus = "RUNNING"
	CatalogSyncJobStatusSuccess   CatalogSyncJobStatus = "SUCCESS"
	CatalogSyncJobStatusPartial   CatalogSyncJobStatus = "PARTIAL"
	CatalogSyncJobStatusFailed    CatalogSyncJobStatus = "FAILED"
	CatalogSyncJobStatusCancelled CatalogSyncJobStatus = "CANCELLED"
)

// CatalogSyncJob represents one scheduled full-catalog sync for a user.
// An empty Marketplaces slice targets every marketplace the user has
// initialized.
type CatalogSyncJob struct {
	ID           uuid.UUID
	UserID       string
	Marketplaces []string
	Status       CatalogSyncJobStatus
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	RetryCount   int
	MaxRetries   int
	NextRetryAt  *time.Time

	// Sync results
	TotalItems   int
	SuccessCount int
	FailedCount  int
}

// NewCatalogSyncJob creates a new catalog sync job
func NewCatalogSyncJob(userID string, marketplaces []string, maxRetries int) *CatalogSyncJob {
	return &CatalogSyncJob{
		ID:           uuid.New(),
		UserID:       userID,
		Marketplaces: marketplaces,
		Status:       CatalogSyncJobStatusPending,
		MaxRetries:   maxRetries,
	}
}

// Start marks the job as running
func (j *CatalogSyncJob) Start() {
	now := time.Now()
	j.Status = CatalogSyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete records the run counts and derives the final status
func (j *CatalogSyncJob) Complete(totalItems, successCount, failedCount int) {
	now := time.Now()
	j.TotalItems = totalItems
	j.SuccessCount = successCount
	j.FailedCount = failedCount
	j.CompletedAt = &now

	if failedCount == 0 {
		j.Status = CatalogSyncJobStatusSuccess
	} else if successCount > 0 {
		j.Status = CatalogSyncJobStatusPartial
	} else {
		j.Status = CatalogSyncJobStatusFailed
	}
}

// Fail marks the job as failed
func (j *CatalogSyncJob) Fail(err string) {
	now := time.Now()
	j.Status = CatalogSyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *CatalogSyncJob) ShouldRetry() bool {
	return j.Status == CatalogSyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *CatalogSyncJob) ScheduleRetry(baseDelay time.Duration) {
	j.RetryCount++
	j.Status = CatalogSyncJobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// ---------------------------------------------------------------------------
// CatalogSyncExecutor Interface
// ---------------------------------------------------------------------------

// CatalogSyncExecutor executes catalog sync jobs
type CatalogSyncExecutor interface {
	// Execute pushes the user's active catalog to the target marketplaces
	Execute(ctx context.Context, job *CatalogSyncJob) error
}

// ---------------------------------------------------------------------------
// CatalogSyncSchedulerConfig
// ---------------------------------------------------------------------------

// CatalogSyncSchedulerConfig holds configuration for the catalog sync scheduler
type CatalogSyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// MaxConcurrentJobs is the maximum number of concurrent sync jobs
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
	// SyncInterval is how often each user's catalog is pushed
	SyncInterval time.Duration
}

// DefaultCatalogSyncSchedulerConfig returns default configuration
func DefaultCatalogSyncSchedulerConfig() CatalogSyncSchedulerConfig {
	return CatalogSyncSchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 5,
		JobTimeout:        15 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
		SyncInterval:      time.Hour,
	}
}

// Validate validates the configuration
func (c *CatalogSyncSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidConfig
	}
	if c.SyncInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// CatalogSyncScheduler
// ---------------------------------------------------------------------------

// CatalogSyncScheduler manages scheduled catalog sync jobs through a bounded
// worker pool
type CatalogSyncScheduler struct {
	config   CatalogSyncSchedulerConfig
	executor CatalogSyncExecutor
	logger   *zap.Logger

	jobs      chan *CatalogSyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*CatalogSyncJob
	maxHistory int
}

// NewCatalogSyncScheduler creates a new catalog sync scheduler
func NewCatalogSyncScheduler(config CatalogSyncSchedulerConfig, executor CatalogSyncExecutor, logger *zap.Logger) (*CatalogSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogSyncScheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *CatalogSyncJob, 100),
		history:    make([]*CatalogSyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the worker pool
func (s *CatalogSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Catalog sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *CatalogSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Catalog sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Catalog sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution
func (s *CatalogSyncScheduler) SubmitJob(job *CatalogSyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		s.logger.Debug("Catalog sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", job.UserID),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleSync schedules a catalog sync for a user
func (s *CatalogSyncScheduler) ScheduleSync(userID string, marketplaces []string) error {
	job := NewCatalogSyncJob(userID, marketplaces, s.config.RetryAttempts)
	return s.SubmitJob(job)
}

// worker processes jobs from the queue
func (s *CatalogSyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Catalog sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Catalog sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *CatalogSyncScheduler) processJob(ctx context.Context, job *CatalogSyncJob, workerID int) {
	// A retry landing before its backoff elapsed goes back on the queue
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		select {
		case s.jobs <- job:
		default:
			s.logger.Warn("Failed to re-queue catalog sync job for retry",
				zap.String("job_id", job.ID.String()),
			)
		}
		return
	}

	job.Start()
	s.logger.Info("Processing catalog sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Catalog sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", job.UserID),
			zap.Error(err),
		)

		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("Catalog sync job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("next_retry_at", *job.NextRetryAt),
			)
			select {
			case s.jobs <- job:
			default:
				s.logger.Warn("Failed to re-queue catalog sync job for retry",
					zap.String("job_id", job.ID.String()),
				)
			}
		}

		s.addToHistory(job)
		return
	}

	s.logger.Info("Catalog sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID),
		zap.String("status", string(job.Status)),
		zap.Int("total_items", job.TotalItems),
		zap.Int("success_count", job.SuccessCount),
		zap.Int("failed_count", job.FailedCount),
	)

	s.addToHistory(job)
}

// addToHistory adds a completed job to history
func (s *CatalogSyncScheduler) addToHistory(job *CatalogSyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*CatalogSyncJob{job}, s.history...)

	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history, newest first
func (s *CatalogSyncScheduler) GetJobHistory(limit int) []*CatalogSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*CatalogSyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByUser returns job history for a specific user
func (s *CatalogSyncScheduler) GetJobHistoryByUser(userID string, limit int) []*CatalogSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*CatalogSyncJob, 0, limit)
	for _, job := range s.history {
		if job.UserID == userID {
			result = append(result, job)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
