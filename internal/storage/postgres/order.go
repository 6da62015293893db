package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, items, subtotal, discount_total, coupon_code, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// Promotion usage moves best-effort inside the order transaction: an
	// exhausted promotion does not fail the order, its discount was already
	// filtered out at resolution time.
	consumePromotionUsageSQL = `UPDATE promotions SET usage_count = usage_count + 1
		WHERE id = ANY($1) AND (usage_limit = 0 OR usage_count < usage_limit)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, commits the coupon redemption and consumes
// promotion usage slots in a single transaction. When the coupon's last slot
// was taken by a concurrent order, the transaction rolls back and
// coupon.ErrUsageLimitReached is returned: no order row survives a lost race.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	discountTotal := o.PromoSavings.Add(o.CouponDiscount)
	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, linesJSON, o.Subtotal, discountTotal, o.CouponCode, o.Total,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if o.CouponID != "" {
		tag, err := tx.Exec(ctx, commitRedemptionSQL, o.CouponID)
		if err != nil {
			return fmt.Errorf("committing redemption for coupon %q: %w", o.CouponID, err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrUsageLimitReached
		}
	}

	if len(o.PromotionIDs) > 0 {
		if _, err := tx.Exec(ctx, consumePromotionUsageSQL, o.PromotionIDs); err != nil {
			return fmt.Errorf("consuming promotion usage: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}
