package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soukly/storefront/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT c.id, c.code, c.name, c.discount_type,
		COALESCE(c.discount_value, 0), c.expires_at, c.usage_limit, c.times_used,
		COALESCE(c.min_purchase_amount, 0), c.first_time_only, COALESCE(c.user_id, ''),
		COALESCE((SELECT array_agg(cp.product_id) FROM coupon_products cp WHERE cp.coupon_id = c.id), '{}'),
		COALESCE((SELECT array_agg(cc.category) FROM coupon_categories cc WHERE cc.coupon_id = c.id), '{}')
		FROM coupons c WHERE UPPER(c.code) = UPPER($1)`

	insertCouponSQL = `INSERT INTO coupons (id, code, name, discount_type, discount_value,
		expires_at, usage_limit, times_used, min_purchase_amount, first_time_only, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))`

	insertCouponProductSQL  = `INSERT INTO coupon_products (coupon_id, product_id) VALUES ($1, $2)`
	insertCouponCategorySQL = `INSERT INTO coupon_categories (coupon_id, category) VALUES ($1, $2)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive), including its
// product and category restriction sets. Returns coupon.ErrNotFound when no
// coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Create persists a coupon together with its restriction sets.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin coupon create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.Name, string(c.Type), c.Value,
		c.ExpiresAt, c.UsageLimit, c.TimesUsed, c.MinPurchase, c.FirstTimeOnly, c.UserID,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}

	for _, pid := range c.ApplicableProducts {
		if _, err := tx.Exec(ctx, insertCouponProductSQL, c.ID, pid); err != nil {
			return fmt.Errorf("linking coupon %q to product %q: %w", c.Code, pid, err)
		}
	}
	for _, cat := range c.ApplicableCategories {
		if _, err := tx.Exec(ctx, insertCouponCategorySQL, c.ID, cat); err != nil {
			return fmt.Errorf("linking coupon %q to category %q: %w", c.Code, cat, err)
		}
	}

	return tx.Commit(ctx)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &discountType,
		&c.Value, &c.ExpiresAt, &c.UsageLimit, &c.TimesUsed,
		&c.MinPurchase, &c.FirstTimeOnly, &c.UserID,
		&c.ApplicableProducts, &c.ApplicableCategories,
	)
	c.Type = coupon.DiscountType(discountType)
	return c, err
}
