package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront-engine/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogWriter receives the parsed vendors and products.
type CatalogWriter interface {
	UpsertVendor(ctx context.Context, v domain.Vendor) (*domain.Vendor, error)
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// Result counts what a run wrote.
type Result struct {
	Vendors  int
	Products int
}

// CSVImporter reads vendor/product CSV exports and upserts them into the catalog.
//
// A row with vendor.id starts a vendor; product columns on the same row or on following
// rows with an empty vendor.id belong to that vendor.
type CSVImporter struct {
	reader  *csv.Reader
	catalog CatalogWriter
	logger  *zap.Logger
}

func NewCSVImporter(r io.Reader, catalog CatalogWriter, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:  csvr,
		catalog: catalog,
		logger:  logger,
	}
}

type vendorRow struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}

type productRow struct {
	ID          string
	Name        string
	Description string
	Price       string
	Image       string
}

// Run parses CSV rows and upserts vendors and their products.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["vendor.id"]; !ok {
		return res, errors.New("missing vendor.id column")
	}

	var (
		currentVendor string
		line          = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}

		vendor, product, err := parseRow(record, index)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", line, err)
		}

		if vendor != nil {
			if err := i.saveVendor(ctx, vendor); err != nil {
				return res, err
			}
			currentVendor = vendor.ID
			res.Vendors++
		}
		if product == nil {
			continue
		}
		if currentVendor == "" {
			return res, fmt.Errorf("row %d: product %q has no vendor", line, product.ID)
		}
		if err := i.saveProduct(ctx, currentVendor, product); err != nil {
			return res, err
		}
		res.Products++
	}

	i.logger.Info("catalog import finished", zap.Int("vendors", res.Vendors), zap.Int("products", res.Products))
	return res, nil
}

func (i *CSVImporter) saveVendor(ctx context.Context, row *vendorRow) error {
	if row.Name == "" {
		return fmt.Errorf("invalid vendor row (missing name) for id %q", row.ID)
	}
	_, err := i.catalog.UpsertVendor(ctx, domain.Vendor{
		ID:        row.ID,
		Name:      row.Name,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
	})
	if err != nil {
		return fmt.Errorf("upsert vendor %q: %w", row.ID, err)
	}
	return nil
}

func (i *CSVImporter) saveProduct(ctx context.Context, vendorID string, row *productRow) error {
	if row.Name == "" || row.Price == "" {
		return fmt.Errorf("invalid product row (missing required fields) for id %q", row.ID)
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("invalid price for id %q: %s", row.ID, row.Price)
	}

	_, err = i.catalog.UpsertProduct(ctx, domain.Product{
		ID:          row.ID,
		VendorID:    vendorID,
		Name:        row.Name,
		Description: row.Description,
		Price:       price.Round(2),
		Image:       row.Image,
	})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.ID, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*vendorRow, *productRow, error) {
	var (
		vendor  *vendorRow
		product *productRow
	)

	if id := pick(record, index, "vendor.id"); id != "" {
		lat, err := parseCoord(pick(record, index, "vendor.latitude"))
		if err != nil {
			return nil, nil, fmt.Errorf("vendor %q latitude: %w", id, err)
		}
		lng, err := parseCoord(pick(record, index, "vendor.longitude"))
		if err != nil {
			return nil, nil, fmt.Errorf("vendor %q longitude: %w", id, err)
		}
		vendor = &vendorRow{
			ID:        id,
			Name:      pick(record, index, "vendor.name"),
			Latitude:  lat,
			Longitude: lng,
		}
	}

	if id := pick(record, index, "id"); id != "" {
		product = &productRow{
			ID:          id,
			Name:        pick(record, index, "name"),
			Description: pick(record, index, "description"),
			Price:       pick(record, index, "price"),
			Image:       pick(record, index, "image"),
		}
	}
	return vendor, product, nil
}

func parseCoord(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
