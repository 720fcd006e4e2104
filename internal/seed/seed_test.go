package seed

import (
	"context"
	"testing"

	"storefront-engine/internal/repository/catalog"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := catalog.NewMemory()

	for i := 0; i < 2; i++ {
		if err := Apply(ctx, repo); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	products, err := repo.ListProductsByVendor(ctx, "demo-trattoria")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 trattoria products, got %d", len(products))
	}
	p, err := repo.GetProduct(ctx, "demo-croissant")
	if err != nil {
		t.Fatalf("get croissant: %v", err)
	}
	if p.Price.StringFixed(2) != "2.49" || p.VendorID != "demo-bakery" {
		t.Fatalf("unexpected croissant %+v", p)
	}
}
