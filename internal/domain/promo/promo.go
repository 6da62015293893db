// Package promo implements time-bounded promotion campaigns and the
// resolution of the single best promotion for a product's displayed price.
package promo

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promotion discount strategies.
type DiscountType string

const (
	// DiscountPercentage reduces the base price by a percentage of itself.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixedAmount subtracts a fixed monetary amount, floored at zero.
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Kind enumerates the scopes a promotion can target.
type Kind string

const (
	// KindStoreWide applies to every product in the catalog.
	KindStoreWide Kind = "store_wide"
	// KindCategory applies to products whose category is listed on the promotion.
	KindCategory Kind = "category"
	// KindProductSpecific applies only to explicitly listed products.
	KindProductSpecific Kind = "product_specific"
	// KindClearance applies to clearance-flagged products (or listed ones).
	KindClearance Kind = "clearance"
)

// ErrNotFound is returned when a requested promotion does not exist.
var ErrNotFound = errors.New("promotion not found")

// Promotion is an administrator-defined discount campaign. A promotion with
// UsageLimit == 0 has unlimited uses.
type Promotion struct {
	ID           string
	Name         string
	Description  string
	DiscountType DiscountType
	Value        decimal.Decimal
	StartsAt     time.Time
	EndsAt       time.Time
	Active       bool
	Kind         Kind
	Categories   []string
	ProductIDs   []string
	MinPurchase  decimal.Decimal
	UsageLimit   int
	UsageCount   int
	Priority     int
	CreatedAt    time.Time
}

// CurrentAt reports whether the promotion is active and inside its window.
func (p *Promotion) CurrentAt(now time.Time) bool {
	return p.Active && !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// HasUsageLeft reports whether the promotion still has redemption slots.
func (p *Promotion) HasUsageLeft() bool {
	return p.UsageLimit == 0 || p.UsageCount < p.UsageLimit
}

// Target carries the product attributes relevant to promotion matching.
type Target struct {
	ProductID   string
	Category    string
	BasePrice   decimal.Decimal
	OnClearance bool
}

// AppliesTo reports whether the promotion's scope matches the given product.
func (p *Promotion) AppliesTo(t Target) bool {
	switch p.Kind {
	case KindStoreWide:
		return true
	case KindCategory:
		return slices.Contains(p.Categories, t.Category)
	case KindProductSpecific:
		return slices.Contains(p.ProductIDs, t.ProductID)
	case KindClearance:
		return t.OnClearance || slices.Contains(p.ProductIDs, t.ProductID)
	default:
		return false
	}
}

// Repository defines persistence operations for promotions.
type Repository interface {
	// ListActive returns every promotion with the active flag set. Window and
	// usage filtering happens in the Resolver, which owns those rules.
	ListActive(ctx context.Context) ([]Promotion, error)
	GetByID(ctx context.Context, id string) (*Promotion, error)
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	SetActive(ctx context.Context, id string, active bool) error
	// CommitUsage atomically consumes one usage slot. It returns
	// ErrUsageExhausted when no slot remains.
	CommitUsage(ctx context.Context, id string) error
}

// ErrUsageExhausted is returned by CommitUsage when a promotion's usage limit
// has been reached, including when a concurrent commit took the last slot.
var ErrUsageExhausted = errors.New("promotion usage limit reached")
