// Package marketplace defines the domain model for external marketplace and
// shipping-carrier integrations.
//
// It contains the canonical product/order projections, the update payloads
// pushed to marketplaces, the uniform operation-result envelope, and the
// MarketplaceAdapter port that every vendor integration (Amazon, Shopify,
// Takealot, DHL, FedEx) implements. Concrete adapters live in the
// infrastructure layer; application services orchestrate them through the
// AdapterRegistry port.
package marketplace
