package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

const (
	promotionColumns = `id, name, description, discount_type, value, starts_at, ends_at,
		active, kind, categories, product_ids, min_purchase,
		usage_limit, usage_count, priority, created_at`

	listActivePromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE active = TRUE ORDER BY priority DESC, created_at DESC`

	getPromotionByIDSQL = `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	insertPromotionSQL = `INSERT INTO promotions
		(id, name, description, discount_type, value, starts_at, ends_at,
		 active, kind, categories, product_ids, min_purchase, usage_limit, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updatePromotionSQL = `UPDATE promotions SET
		name = $2, description = $3, discount_type = $4, value = $5,
		starts_at = $6, ends_at = $7, active = $8, kind = $9,
		categories = $10, product_ids = $11, min_purchase = $12,
		usage_limit = $13, priority = $14
		WHERE id = $1`

	setPromotionActiveSQL = `UPDATE promotions SET active = $2 WHERE id = $1`

	// Conditional increment: consumes a usage slot only while one remains,
	// so two racing commits cannot both take the last slot.
	commitPromotionUsageSQL = `UPDATE promotions SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`
)

var _ promo.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promo.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ListActive returns every promotion with the active flag set. Window and
// usage filtering is the Resolver's job.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// GetByID returns a single promotion by its identifier.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	return &p, nil
}

// Create persists a new promotion.
func (r *PromotionRepository) Create(ctx context.Context, p *promo.Promotion) error {
	_, err := r.pool.Exec(ctx, insertPromotionSQL,
		p.ID, p.Name, p.Description, string(p.DiscountType), p.Value,
		p.StartsAt, p.EndsAt, p.Active, string(p.Kind),
		p.Categories, p.ProductIDs, p.MinPurchase, p.UsageLimit, p.Priority,
	)
	if err != nil {
		return fmt.Errorf("creating promotion %q: %w", p.ID, err)
	}
	return nil
}

// Update rewrites a promotion's definition. Usage counters are never touched
// here; they only move through CommitUsage.
func (r *PromotionRepository) Update(ctx context.Context, p *promo.Promotion) error {
	tag, err := r.pool.Exec(ctx, updatePromotionSQL,
		p.ID, p.Name, p.Description, string(p.DiscountType), p.Value,
		p.StartsAt, p.EndsAt, p.Active, string(p.Kind),
		p.Categories, p.ProductIDs, p.MinPurchase, p.UsageLimit, p.Priority,
	)
	if err != nil {
		return fmt.Errorf("updating promotion %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

// SetActive toggles a promotion's soft lifecycle flag.
func (r *PromotionRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, setPromotionActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("setting promotion %q active=%t: %w", id, active, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

// CommitUsage atomically consumes one usage slot for the promotion.
func (r *PromotionRepository) CommitUsage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, commitPromotionUsageSQL, id)
	if err != nil {
		return fmt.Errorf("committing usage for promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrUsageExhausted
	}
	return nil
}

func scanPromotion(row pgx.CollectableRow) (promo.Promotion, error) {
	var (
		p            promo.Promotion
		discountType string
		kind         string
		value        decimal.Decimal
		minPurchase  decimal.Decimal
		usageLimit   int32
		usageCount   int32
		priority     int32
		createdAt    time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &discountType, &value,
		&p.StartsAt, &p.EndsAt, &p.Active, &kind,
		&p.Categories, &p.ProductIDs, &minPurchase,
		&usageLimit, &usageCount, &priority, &createdAt,
	)
	p.DiscountType = promo.DiscountType(discountType)
	p.Kind = promo.Kind(kind)
	p.Value = value
	p.MinPurchase = minPurchase
	p.UsageLimit = int(usageLimit)
	p.UsageCount = int(usageCount)
	p.Priority = int(priority)
	p.CreatedAt = createdAt
	return p, err
}
