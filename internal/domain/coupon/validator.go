package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validator checks whether a coupon code may be redeemed against a cart
// subtotal and computes the discount it would grant. Validation never mutates
// usage counters; redemption happens through the separate Commit call once an
// order is confirmed.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate looks up the coupon and runs the validity checks in their
// documented order: active, window, usage, minimum purchase. The first
// failing check determines the returned error.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Redemption, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if !c.Active {
		return nil, ErrInactive
	}
	if now.Before(c.StartsAt) {
		return nil, ErrNotYetStarted
	}
	if now.After(c.EndsAt) {
		return nil, ErrExpired
	}
	if !c.HasUsageLeft() {
		return nil, ErrUsageLimitReached
	}
	if c.MinPurchase.IsPositive() && subtotal.LessThan(c.MinPurchase) {
		return nil, &MinPurchaseError{
			Required:  c.MinPurchase,
			Shortfall: c.MinPurchase.Sub(subtotal).Round(2),
		}
	}

	return &Redemption{
		Coupon:         *c,
		DiscountAmount: discountAmount(c, subtotal),
	}, nil
}

// Commit consumes one redemption slot for the coupon. It must be called
// exactly once per successfully placed order, never on mere validation.
func (v *Validator) Commit(ctx context.Context, id string) error {
	return v.repo.CommitRedemption(ctx, id)
}

// ListPublic returns the public coupons that are currently redeemable:
// active, inside their window, with usage slots left. Minimum purchase is not
// checked since it depends on a cart that does not exist yet.
func (v *Validator) ListPublic(ctx context.Context) ([]Coupon, error) {
	all, err := v.repo.ListPublic(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list public coupons")
	}

	now := v.now()
	current := all[:0]
	for _, c := range all {
		if c.Active && !now.Before(c.StartsAt) && !now.After(c.EndsAt) && c.HasUsageLeft() {
			current = append(current, c)
		}
	}
	return current, nil
}

// discountAmount computes the discount for a validated coupon, clamped so the
// order total can never go negative.
func discountAmount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		amount = c.Value
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2)
}
