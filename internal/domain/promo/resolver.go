package promo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Quote is the result of resolving a product's price against the current
// promotion set. It is what the storefront renders and what the catalog may
// persist as an advisory cache.
type Quote struct {
	HasDiscount     bool            `json:"hasDiscount"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	DiscountPercent int64           `json:"discountPercent"`
	PromotionID     string          `json:"promotionId,omitempty"`
	Badge           string          `json:"badge,omitempty"`
}

// Resolver picks the single best applicable promotion for a product and
// computes the resulting price. Resolution is a pure function of its inputs;
// the logger is only used to flag invalid catalog data.
type Resolver struct {
	lg *zap.Logger
}

// NewResolver creates a Resolver. A nil logger disables warning output.
func NewResolver(lg *zap.Logger) *Resolver {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Resolver{lg: lg}
}

// Resolve computes the display price for a product. Minimum purchase
// constraints are ignored here: they reference a cart subtotal the product
// page cannot know, so the display is optimistic and checkout re-resolves
// with ResolveForCart before pricing an order.
func (r *Resolver) Resolve(t Target, promotions []Promotion, now time.Time) Quote {
	return r.resolve(t, promotions, now, decimal.Decimal{}, false)
}

// ResolveForCart computes the authoritative checkout price for a product,
// enforcing each promotion's minimum purchase against the cart subtotal.
func (r *Resolver) ResolveForCart(t Target, promotions []Promotion, now time.Time, subtotal decimal.Decimal) Quote {
	return r.resolve(t, promotions, now, subtotal, true)
}

func (r *Resolver) resolve(t Target, promotions []Promotion, now time.Time, subtotal decimal.Decimal, enforceMin bool) Quote {
	if !t.BasePrice.IsPositive() {
		r.lg.Warn("refusing to discount non-positive base price",
			zap.String("product_id", t.ProductID),
			zap.String("base_price", t.BasePrice.String()),
		)
		return Quote{OriginalPrice: t.BasePrice, FinalPrice: t.BasePrice}
	}

	original := t.BasePrice.Round(2)

	var best *Promotion
	var bestAmount decimal.Decimal
	for i := range promotions {
		p := &promotions[i]
		if !p.CurrentAt(now) || !p.HasUsageLeft() || !p.AppliesTo(t) {
			continue
		}
		if enforceMin && p.MinPurchase.IsPositive() && subtotal.LessThan(p.MinPurchase) {
			continue
		}

		amount := discountAmount(p, original)
		if best == nil || betterThan(p, amount, best, bestAmount) {
			best, bestAmount = p, amount
		}
	}

	if best == nil {
		return Quote{OriginalPrice: original, FinalPrice: original}
	}

	final := original.Sub(bestAmount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	final = final.Round(2)

	if final.GreaterThanOrEqual(original) {
		// A matching promotion that moves the price nowhere is a data
		// problem (e.g. fixed_amount of zero). Surface it instead of
		// inventing a discount.
		r.lg.Warn("promotion matched but yields no discount",
			zap.String("promotion_id", best.ID),
			zap.String("product_id", t.ProductID),
		)
		return Quote{OriginalPrice: original, FinalPrice: original}
	}

	percent := decimal.NewFromInt(1).
		Sub(final.Div(original)).
		Mul(hundred).
		Round(0).
		IntPart()

	return Quote{
		HasDiscount:     true,
		OriginalPrice:   original,
		FinalPrice:      final,
		DiscountPercent: percent,
		PromotionID:     best.ID,
		Badge:           badgeText(best, percent),
	}
}

// discountAmount returns the absolute price reduction the promotion yields on
// the given base price, before flooring at zero.
func discountAmount(p *Promotion, base decimal.Decimal) decimal.Decimal {
	switch p.DiscountType {
	case DiscountPercentage:
		return base.Mul(p.Value).Div(hundred)
	case DiscountFixedAmount:
		return decimal.Min(p.Value, base)
	default:
		return decimal.Zero
	}
}

// betterThan implements the promotion tie-break: highest priority wins, then
// the larger absolute discount, then the most recently created, then the
// smallest ID. The rule is total, so resolution is deterministic for any
// promotion set.
func betterThan(p *Promotion, amount decimal.Decimal, best *Promotion, bestAmount decimal.Decimal) bool {
	if p.Priority != best.Priority {
		return p.Priority > best.Priority
	}
	if !amount.Equal(bestAmount) {
		return amount.GreaterThan(bestAmount)
	}
	if !p.CreatedAt.Equal(best.CreatedAt) {
		return p.CreatedAt.After(best.CreatedAt)
	}
	return p.ID < best.ID
}

func badgeText(p *Promotion, percent int64) string {
	if p.Kind == KindClearance {
		return "CLEARANCE"
	}
	if p.DiscountType == DiscountFixedAmount {
		return fmt.Sprintf("Save $%s", p.Value.Round(2).StringFixed(2))
	}
	return fmt.Sprintf("%d%% OFF", percent)
}
