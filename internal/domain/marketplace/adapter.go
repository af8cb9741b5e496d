package marketplace

import "context"

// ---------------------------------------------------------------------------
// MarketplaceAdapter Port Interface
// ---------------------------------------------------------------------------

// Adapter is the port every marketplace integration implements. Concrete
// adapters (Amazon, Shopify, Takealot, and the shipping carriers by
// extension) live in the infrastructure layer and normalize each vendor's
// API behind this contract.
//
// Error discipline: transport and auth failures are returned as errors;
// per-item marketplace rejections are reported inside OperationResult and
// single-item absence is reported as an ItemFailure with
// FailureCodeProductNotFound rather than an error. Adapters must not leak
// vendor-specific error shapes past this boundary.
type Adapter interface {
	// Code returns the marketplace code this adapter handles
	Code() Code

	// Initialize performs the auth handshake with the given credentials.
	// It is idempotent: calling it again with fresh credentials
	// re-authenticates rather than erroring. Missing required fields or a
	// rejected handshake surface ErrMissingCredentials or
	// ErrAuthenticationFailed.
	Initialize(ctx context.Context, creds Credentials) error

	// TestConnection makes one cheap read call. It never returns an error;
	// any failure is converted into Connected=false with a message.
	TestConnection(ctx context.Context) ConnectionStatus

	// GetProductBySKU looks up a single product by SKU. Absence is a normal
	// outcome reported as a failure entry, not an error.
	GetProductBySKU(ctx context.Context, sku string) (*Product, *OperationResult, error)

	// GetProductByID looks up a single product by marketplace-native ID
	GetProductByID(ctx context.Context, id string) (*Product, *OperationResult, error)

	// GetProducts lists products. Page requests are 0-based; adapters on
	// cursor pagination translate transparently.
	GetProducts(ctx context.Context, page, pageSize int, filter ProductFilter) (*ProductPage, error)

	// UpdateStock applies a batched stock mutation. Items are processed
	// independently; one rejection does not abort the batch.
	UpdateStock(ctx context.Context, updates []StockUpdate) (*OperationResult, error)

	// UpdatePrices applies a batched price mutation
	UpdatePrices(ctx context.Context, updates []PriceUpdate) (*OperationResult, error)

	// UpdateStatus applies a batched listing-status mutation
	UpdateStatus(ctx context.Context, updates []StatusUpdate) (*OperationResult, error)

	// GetOrders lists orders matching the query
	GetOrders(ctx context.Context, query OrderQuery) (*OrderPage, error)

	// GetRecentOrders lists orders created since the given time, up to limit
	// items, driving pagination and rate-limit backoff internally
	GetRecentOrders(ctx context.Context, query OrderQuery, limit int) ([]Order, error)

	// GetOrderByID retrieves a single order, or ErrOrderNotFound
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// AcknowledgeOrder confirms receipt of an order on the marketplace.
	// Marketplace-side rejection is reported in the result, not thrown.
	AcknowledgeOrder(ctx context.Context, id string) (*OperationResult, error)

	// UpdateOrderStatus updates the order status on the marketplace,
	// attaching tracking info when provided
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus, tracking *TrackingInfo) (*OperationResult, error)

	// RateLimitStatus returns the adapter's current request budget, used by
	// pagination loops for adaptive throttling
	RateLimitStatus() RateLimitStatus

	// Close releases held resources. Safe to call multiple times.
	Close() error
}

// ---------------------------------------------------------------------------
// Registry Port Interface
// ---------------------------------------------------------------------------

// AdapterConstructor builds an uninitialized adapter instance
type AdapterConstructor func() Adapter

// AdapterRegistry resolves marketplace identifiers to initialized, cached
// adapter instances. At most one active adapter exists per normalized code;
// re-initialization replaces the cached entry (last write wins).
type AdapterRegistry interface {
	// Register associates a normalized code with an adapter constructor.
	// Re-registering the same code overwrites the previous constructor.
	Register(code Code, ctor AdapterConstructor)

	// Create normalizes the identifier, instantiates the registered
	// constructor, initializes it with the credentials, caches it and
	// returns it. Returns ErrNotSupported for unregistered identifiers.
	Create(ctx context.Context, id string, creds Credentials) (Adapter, error)

	// Get returns the cached active adapter, or ErrAdapterNotInitialized.
	// This call never constructs; callers must have called Create first.
	Get(id string) (Adapter, error)

	// Active returns the codes of all cached active adapters
	Active() []Code

	// Close closes and evicts one cached adapter
	Close(id string) error

	// CloseAll closes and evicts every cached adapter
	CloseAll() error
}
