package marketplace

import "time"

// ---------------------------------------------------------------------------
// Operation Result Envelope
// ---------------------------------------------------------------------------

// Failure codes attached to ItemFailure entries and lookup results
const (
	// FailureCodeProductNotFound indicates the SKU does not exist on the marketplace
	FailureCodeProductNotFound = "PRODUCT_NOT_FOUND"
	// FailureCodeOrderNotFound indicates the order does not exist on the marketplace
	FailureCodeOrderNotFound = "ORDER_NOT_FOUND"
	// FailureCodeShipmentNotFound indicates the shipment does not exist with the carrier
	FailureCodeShipmentNotFound = "SHIPMENT_NOT_FOUND"
	// FailureCodeRejected indicates the marketplace rejected the item value
	FailureCodeRejected = "REJECTED"
	// FailureCodeInvalidInput indicates the item failed local validation
	FailureCodeInvalidInput = "INVALID_INPUT"
)

// ItemFailure records one SKU the marketplace rejected within a batch
type ItemFailure struct {
	// SKU identifies the rejected item
	SKU string
	// Code is a machine-checkable failure code
	Code string
	// Message is the human-readable rejection reason
	Message string
}

// OperationResult is the uniform outcome envelope every adapter mutation
// returns. A batch call returns a non-nil result whenever the batch itself
// was accepted by the marketplace, even if individual SKUs were rejected;
// transport and auth failures are returned as errors instead. Callers must
// therefore check both the error and the Failed list.
type OperationResult struct {
	// Successful lists SKUs the marketplace accepted
	Successful []string
	// Failed lists SKUs the marketplace rejected, with reasons
	Failed []ItemFailure
}

// AllSucceeded returns true if no item in the batch failed
func (r *OperationResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// Succeeded returns true if the given SKU was accepted
func (r *OperationResult) Succeeded(sku string) bool {
	for _, s := range r.Successful {
		if s == sku {
			return true
		}
	}
	return false
}

// FailureFor returns the failure entry for a SKU, or nil if it did not fail
func (r *OperationResult) FailureFor(sku string) *ItemFailure {
	for i := range r.Failed {
		if r.Failed[i].SKU == sku {
			return &r.Failed[i]
		}
	}
	return nil
}

// AddSuccess records an accepted SKU
func (r *OperationResult) AddSuccess(sku string) {
	r.Successful = append(r.Successful, sku)
}

// AddFailure records a rejected SKU with its reason
func (r *OperationResult) AddFailure(sku, code, message string) {
	r.Failed = append(r.Failed, ItemFailure{SKU: sku, Code: code, Message: message})
}

// ---------------------------------------------------------------------------
// Sync Status
// ---------------------------------------------------------------------------

// SyncStatus represents the aggregate outcome of a sync operation
type SyncStatus string

const (
	// SyncStatusSuccess indicates every item synced
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates some items synced and some failed
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates no item synced
	SyncStatusFailed SyncStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	return s == SyncStatusSuccess || s == SyncStatusPartial || s == SyncStatusFailed
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// StatusOf derives the aggregate sync status from success/failure counts
func StatusOf(successCount, failedCount int) SyncStatus {
	switch {
	case failedCount == 0:
		return SyncStatusSuccess
	case successCount > 0:
		return SyncStatusPartial
	default:
		return SyncStatusFailed
	}
}

// SyncRecord is a persisted record of one sync attempt against one
// marketplace, used by the scheduler and exposed for auditing.
type SyncRecord struct {
	// ID is the record identifier
	ID string
	// UserID is the owning user
	UserID string
	// Marketplace identifies the target marketplace
	Marketplace Code
	// Operation names the synced operation (e.g. "stock", "price", "orders")
	Operation string
	// Status is the aggregate outcome
	Status SyncStatus
	// TotalCount is the number of items attempted
	TotalCount int
	// SuccessCount is the number of items accepted
	SuccessCount int
	// FailedCount is the number of items rejected
	FailedCount int
	// Error is the top-level error when the whole attempt failed
	Error string
	// SyncedAt is when the attempt completed
	SyncedAt time.Time
}
