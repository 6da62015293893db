package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, discount_type, value, starts_at, ends_at,
		active, usage_limit, usage_count, min_purchase, public, created_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listPublicCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE public = TRUE AND active = TRUE ORDER BY created_at DESC`

	insertCouponSQL = `INSERT INTO coupons
		(id, code, description, discount_type, value, starts_at, ends_at,
		 active, usage_limit, min_purchase, public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	upsertCouponSQL = `INSERT INTO coupons
		(id, code, description, discount_type, value, starts_at, ends_at,
		 active, usage_limit, min_purchase, public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
			active = EXCLUDED.active, usage_limit = EXCLUDED.usage_limit,
			min_purchase = EXCLUDED.min_purchase, public = EXCLUDED.public`

	updateCouponSQL = `UPDATE coupons SET
		code = $2, description = $3, discount_type = $4, value = $5,
		starts_at = $6, ends_at = $7, active = $8, usage_limit = $9,
		min_purchase = $10, public = $11
		WHERE id = $1`

	setCouponActiveSQL = `UPDATE coupons SET active = $2 WHERE id = $1`

	// Conditional increment: the slot check and the increment are one
	// statement, so concurrent redemptions of the last slot cannot both
	// succeed.
	commitRedemptionSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`
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

// FindByCode looks up a coupon by its code, case-insensitively.
// Returns coupon.ErrNotFound when no coupon carries the code.
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

// GetByID returns a single coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return &c, nil
}

// ListPublic returns active public coupons; the Validator filters windows and
// usage on top.
func (r *CouponRepository) ListPublic(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listPublicCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing public coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Create persists a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.Value,
		c.StartsAt, c.EndsAt, c.Active, c.UsageLimit, c.MinPurchase, c.Public,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Upsert inserts or replaces a coupon. Used by the seeding and ingest CLIs.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.Value,
		c.StartsAt, c.EndsAt, c.Active, c.UsageLimit, c.MinPurchase, c.Public,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update rewrites a coupon's definition. Usage counters only move through
// CommitRedemption.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.Value,
		c.StartsAt, c.EndsAt, c.Active, c.UsageLimit, c.MinPurchase, c.Public,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// SetActive toggles a coupon's soft lifecycle flag.
func (r *CouponRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, setCouponActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("setting coupon %q active=%t: %w", id, active, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// CommitRedemption atomically consumes one usage slot for the coupon. A zero
// row count means no slot remained, which covers both an exhausted coupon and
// a lost race for the last slot.
func (r *CouponRepository) CommitRedemption(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, commitRedemptionSQL, id)
	if err != nil {
		return fmt.Errorf("committing redemption for coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		value        decimal.Decimal
		minPurchase  decimal.Decimal
		usageLimit   int32
		usageCount   int32
		createdAt    time.Time
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &value,
		&c.StartsAt, &c.EndsAt, &c.Active,
		&usageLimit, &usageCount, &minPurchase, &c.Public, &createdAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.Value = value
	c.MinPurchase = minPurchase
	c.UsageLimit = int(usageLimit)
	c.UsageCount = int(usageCount)
	c.CreatedAt = createdAt
	return c, err
}
