// Package channel contains the marketplace adapter factory and the concrete
// sales-channel adapters (Amazon, Shopify, Takealot). Shipping carriers live
// in the sibling shipping package and register with the same factory.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// Factory implements marketplace.AdapterRegistry. It caches at most one
// initialized adapter per normalized marketplace code; creating an adapter
// for a code that already has one replaces the cached entry (last write
// wins). The factory is an explicitly constructed object held by the
// composition root, not a package-level singleton, so tests can reset it by
// building a fresh one.
type Factory struct {
	mu     sync.RWMutex
	ctors  map[marketplace.Code]marketplace.AdapterConstructor
	active map[marketplace.Code]marketplace.Adapter
	logger *zap.Logger
}

// NewFactory creates an empty adapter factory
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		ctors:  make(map[marketplace.Code]marketplace.AdapterConstructor),
		active: make(map[marketplace.Code]marketplace.Adapter),
		logger: logger,
	}
}

// Register associates a code with an adapter constructor. Re-registering a
// code overwrites the previous constructor.
func (f *Factory) Register(code marketplace.Code, ctor marketplace.AdapterConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[code] = ctor
}

// Create normalizes the identifier, constructs the registered adapter,
// initializes it with the credentials and caches it. A previously cached
// adapter for the same code is closed and replaced.
func (f *Factory) Create(ctx context.Context, id string, creds marketplace.Credentials) (marketplace.Adapter, error) {
	code := marketplace.NormalizeCode(id)

	f.mu.RLock()
	ctor, ok := f.ctors[code]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", marketplace.ErrNotSupported, id)
	}

	adapter := ctor()
	if err := adapter.Initialize(ctx, creds); err != nil {
		return nil, fmt.Errorf("channel: initialize %s adapter: %w", code, err)
	}

	f.mu.Lock()
	previous := f.active[code]
	f.active[code] = adapter
	f.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			f.logger.Warn("failed to close replaced adapter",
				zap.String("marketplace", code.String()),
				zap.Error(err),
			)
		}
	}

	f.logger.Info("marketplace adapter initialized",
		zap.String("marketplace", code.String()),
		zap.String("requested_id", id),
	)
	return adapter, nil
}

// Get returns the cached active adapter for the identifier. It never
// constructs; callers must have called Create first.
func (f *Factory) Get(id string) (marketplace.Adapter, error) {
	code := marketplace.NormalizeCode(id)

	f.mu.RLock()
	adapter, ok := f.active[code]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", marketplace.ErrAdapterNotInitialized, id)
	}
	return adapter, nil
}

// Active returns the codes of all cached active adapters
func (f *Factory) Active() []marketplace.Code {
	f.mu.RLock()
	defer f.mu.RUnlock()

	codes := make([]marketplace.Code, 0, len(f.active))
	for code := range f.active {
		codes = append(codes, code)
	}
	return codes
}

// Close closes and evicts one cached adapter. Closing an identifier with no
// cached adapter is a no-op.
func (f *Factory) Close(id string) error {
	code := marketplace.NormalizeCode(id)

	f.mu.Lock()
	adapter, ok := f.active[code]
	delete(f.active, code)
	f.mu.Unlock()

	if !ok {
		return nil
	}
	return adapter.Close()
}

// CloseAll closes and evicts every cached adapter, returning the combined
// close errors
func (f *Factory) CloseAll() error {
	f.mu.Lock()
	adapters := make([]marketplace.Adapter, 0, len(f.active))
	for code, adapter := range f.active {
		adapters = append(adapters, adapter)
		delete(f.active, code)
	}
	f.mu.Unlock()

	var errs []error
	for _, adapter := range adapters {
		if err := adapter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure Factory implements the registry port
var _ marketplace.AdapterRegistry = (*Factory)(nil)
