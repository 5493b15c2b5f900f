package booking

import (
	"context"

	"staybook/internal/domain/catalog"
)

// CatalogReader is the read side of the tenant/resource catalog.
type CatalogReader interface {
	GetTenant(ctx context.Context, id int64) (*catalog.Tenant, error)
	GetResource(ctx context.Context, id int64) (*catalog.Resource, error)
	ListActiveResources(ctx context.Context, tenantID int64, filter catalog.CapabilityFilter) ([]catalog.Resource, error)
}
