package seed

import (
	"context"
	"fmt"

	"storefront-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// CatalogWriter is where demo data is written.
type CatalogWriter interface {
	UpsertVendor(ctx context.Context, v domain.Vendor) (*domain.Vendor, error)
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type productSeed struct {
	ID          string
	Name        string
	Description string
	Price       string
}

type vendorSeed struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Products  []productSeed
}

var demo = []vendorSeed{
	{
		ID:        "demo-trattoria",
		Name:      "Trattoria da Luigi",
		Latitude:  52.5208,
		Longitude: 13.4094,
		Products: []productSeed{
			{ID: "demo-margherita", Name: "Pizza Margherita", Description: "Tomato, mozzarella, basil", Price: "3.99"},
			{ID: "demo-diavola", Name: "Pizza Diavola", Description: "Spicy salami", Price: "5.50"},
		},
	},
	{
		ID:        "demo-bakery",
		Name:      "Corner Bakery",
		Latitude:  52.5301,
		Longitude: 13.3850,
		Products: []productSeed{
			{ID: "demo-croissant", Name: "Butter Croissant", Description: "Baked every morning", Price: "2.49"},
		},
	},
}

// Apply inserts demo vendors and products for manual testing. It is idempotent since
// every write is an upsert keyed by id.
func Apply(ctx context.Context, catalog CatalogWriter) error {
	for _, v := range demo {
		_, err := catalog.UpsertVendor(ctx, domain.Vendor{
			ID:        v.ID,
			Name:      v.Name,
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
		})
		if err != nil {
			return fmt.Errorf("upsert vendor %s: %w", v.ID, err)
		}
		for _, p := range v.Products {
			_, err := catalog.UpsertProduct(ctx, domain.Product{
				ID:          p.ID,
				VendorID:    v.ID,
				Name:        p.Name,
				Description: p.Description,
				Price:       decimal.RequireFromString(p.Price),
			})
			if err != nil {
				return fmt.Errorf("upsert product %s: %w", p.ID, err)
			}
		}
	}
	return nil
}
