package catalog

import (
	"context"

	"storefront-engine/internal/domain"
)

// Repository exposes the vendor and product master data the engine reads.
type Repository interface {
	GetVendor(ctx context.Context, id string) (*domain.Vendor, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProductsByVendor(ctx context.Context, vendorID string) ([]domain.Product, error)
	UpsertVendor(ctx context.Context, v domain.Vendor) (*domain.Vendor, error)
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
}
