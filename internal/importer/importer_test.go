package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront-engine/internal/domain"
)

type stubCatalog struct {
	vendors  []domain.Vendor
	products []domain.Product
	err      error
}

func (s *stubCatalog) UpsertVendor(_ context.Context, v domain.Vendor) (*domain.Vendor, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.vendors = append(s.vendors, v)
	return &v, nil
}

func (s *stubCatalog) UpsertProduct(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.products = append(s.products, p)
	return &p, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `vendor.id,vendor.name,vendor.latitude,vendor.longitude,id,name,description,price,image
v-1,Luigi's,52.52,13.405,p-1,Margherita,Tomato and basil,3.99,https://example.com/m.jpg
,,,,p-2,Diavola,,5.5,
v-2,Corner Bakery,52.53,13.41,,,,,
,,,,p-3,Croissant,Butter,2.49,`

	repo := &stubCatalog{}
	res, err := NewCSVImporter(strings.NewReader(csvData), repo, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if res.Vendors != 2 || res.Products != 3 {
		t.Fatalf("expected 2 vendors and 3 products, got %+v", res)
	}
	if repo.vendors[0].Name != "Luigi's" || repo.vendors[0].Latitude != 52.52 {
		t.Fatalf("unexpected vendor %+v", repo.vendors[0])
	}
	if repo.products[1].VendorID != "v-1" || repo.products[1].Price.StringFixed(2) != "5.50" {
		t.Fatalf("continuation row should belong to v-1: %+v", repo.products[1])
	}
	if repo.products[2].VendorID != "v-2" || repo.products[2].Description != "Butter" {
		t.Fatalf("unexpected third product %+v", repo.products[2])
	}
	if repo.products[0].Image != "https://example.com/m.jpg" {
		t.Fatalf("expected image to be kept, got %q", repo.products[0].Image)
	}
}

func TestCSVImporter_RejectsOrphanProduct(t *testing.T) {
	csvData := `vendor.id,vendor.name,id,name,price
,,p-1,Margherita,3.99`

	_, err := NewCSVImporter(strings.NewReader(csvData), &stubCatalog{}, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "has no vendor") {
		t.Fatalf("expected orphan product error, got %v", err)
	}
}

func TestCSVImporter_InvalidRows(t *testing.T) {
	cases := map[string]string{
		"missing price":  "vendor.id,vendor.name,id,name,price\nv-1,Luigi's,p-1,Margherita,",
		"negative price": "vendor.id,vendor.name,id,name,price\nv-1,Luigi's,p-1,Margherita,-1",
		"bad latitude":   "vendor.id,vendor.name,vendor.latitude,id\nv-1,Luigi's,north,",
		"nameless":       "vendor.id,vendor.name\nv-1,",
		"no vendor col":  "id,name,price\np-1,Margherita,3.99",
	}
	for name, data := range cases {
		if _, err := NewCSVImporter(strings.NewReader(data), &stubCatalog{}, nil).Run(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestCSVImporter_PropagatesWriteErrors(t *testing.T) {
	csvData := "vendor.id,vendor.name\nv-1,Luigi's"
	repo := &stubCatalog{err: errors.New("db down")}

	_, err := NewCSVImporter(strings.NewReader(csvData), repo, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected write error, got %v", err)
	}
}
