package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers consumed request keys so retried requests
// are executed once. Entries lapse after their ttl; a replay past the ttl
// executes again, which callers accept in exchange for bounded storage.
type IdempotencyStore interface {
	// MarkProcessed consumes key, reporting true the first time and false
	// on replays within the ttl.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key has been consumed without consuming
	// it.
	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}
