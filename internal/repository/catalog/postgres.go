package catalog

import (
	"context"
	"errors"

	"storefront-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepo struct {
	pool   querier
	logger *zap.Logger
}

func NewPostgres(pool querier, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	const q = `
SELECT id, name, latitude, longitude, created_at
FROM vendors
WHERE id = $1
`
	var v domain.Vendor
	err := r.pool.QueryRow(ctx, q, id).Scan(&v.ID, &v.Name, &v.Latitude, &v.Longitude, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("catalog repo: vendor not found", zap.String("vendor_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("catalog repo: get vendor", zap.String("vendor_id", id), zap.Error(err))
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id, vendor_id, name, COALESCE(description, ''), price_cents, COALESCE(image, ''), created_at
FROM products
WHERE id = $1
`
	var (
		p     domain.Product
		cents int64
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &cents, &p.Image, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("catalog repo: product not found", zap.String("product_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("catalog repo: get product", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	p.Price = fromCents(cents)
	return &p, nil
}

func (r *postgresRepo) ListProductsByVendor(ctx context.Context, vendorID string) ([]domain.Product, error) {
	const q = `
SELECT id, vendor_id, name, COALESCE(description, ''), price_cents, COALESCE(image, ''), created_at
FROM products
WHERE vendor_id = $1
ORDER BY created_at, id
`
	rows, err := r.pool.Query(ctx, q, vendorID)
	if err != nil {
		r.logger.Error("catalog repo: list products", zap.String("vendor_id", vendorID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var (
			p     domain.Product
			cents int64
		)
		if err := rows.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &cents, &p.Image, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Price = fromCents(cents)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("catalog repo: list products rows", zap.String("vendor_id", vendorID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("catalog repo: list products", zap.String("vendor_id", vendorID), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) UpsertVendor(ctx context.Context, v domain.Vendor) (*domain.Vendor, error) {
	const q = `
INSERT INTO vendors (id, name, latitude, longitude)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude
RETURNING id, name, latitude, longitude, created_at
`
	var out domain.Vendor
	err := r.pool.QueryRow(ctx, q, v.ID, v.Name, v.Latitude, v.Longitude).
		Scan(&out.ID, &out.Name, &out.Latitude, &out.Longitude, &out.CreatedAt)
	if err != nil {
		r.logger.Error("catalog repo: upsert vendor", zap.String("vendor_id", v.ID), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, vendor_id, name, description, price_cents, image)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''))
ON CONFLICT (id) DO UPDATE
SET vendor_id = EXCLUDED.vendor_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    image = EXCLUDED.image
RETURNING id, vendor_id, name, COALESCE(description, ''), price_cents, COALESCE(image, ''), created_at
`
	var (
		out   domain.Product
		cents int64
	)
	err := r.pool.QueryRow(ctx, q, p.ID, p.VendorID, p.Name, p.Description, toCents(p.Price), p.Image).
		Scan(&out.ID, &out.VendorID, &out.Name, &out.Description, &cents, &out.Image, &out.CreatedAt)
	if err != nil {
		r.logger.Error("catalog repo: upsert product", zap.String("product_id", p.ID), zap.Error(err))
		return nil, err
	}
	out.Price = fromCents(cents)
	return &out, nil
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
