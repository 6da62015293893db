// Package coupon implements code-redeemable, usage-limited checkout discounts.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Validation failures, one sentinel per reportable reason. The order in which
// Validator checks them is part of the contract: the first failing check wins.
var (
	// ErrNotFound is returned when no coupon matches the code. Callers must
	// surface it as a generic invalid-code message without confirming whether
	// the code ever existed.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been deactivated.
	ErrInactive = errors.New("coupon is not active")
	// ErrNotYetStarted is returned before the coupon's window opens.
	ErrNotYetStarted = errors.New("coupon is not yet valid")
	// ErrExpired is returned after the coupon's window closes.
	ErrExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when every redemption slot is taken,
	// including when a concurrent commit consumed the last one.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// MinPurchaseError is returned when the cart subtotal is below the coupon's
// minimum purchase. It carries how much more the customer must spend.
type MinPurchaseError struct {
	Required  decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("spend $%s more to use this coupon (minimum purchase $%s)",
		e.Shortfall.StringFixed(2), e.Required.StringFixed(2))
}

// Coupon is a code-redeemable discount. A coupon with UsageLimit == 0 has
// unlimited uses; administrator-created coupons default to a single use.
type Coupon struct {
	ID           string
	Code         string
	Description  string
	DiscountType DiscountType
	Value        decimal.Decimal
	StartsAt     time.Time
	EndsAt       time.Time
	Active       bool
	UsageLimit   int
	UsageCount   int
	MinPurchase  decimal.Decimal
	Public       bool
	CreatedAt    time.Time
}

// HasUsageLeft reports whether the coupon still has redemption slots.
func (c *Coupon) HasUsageLeft() bool {
	return c.UsageLimit == 0 || c.UsageCount < c.UsageLimit
}

// Redemption is a successfully validated coupon application. It is a
// statement of intent only: nothing is consumed until Commit.
type Redemption struct {
	Coupon         Coupon
	DiscountAmount decimal.Decimal
}

// Repository defines persistence operations for coupons.
type Repository interface {
	// FindByCode looks a coupon up by code, case-insensitively.
	// Returns ErrNotFound when no coupon carries the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// ListPublic returns active public coupons for banner display.
	ListPublic(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	SetActive(ctx context.Context, id string, active bool) error
	// CommitRedemption atomically consumes one usage slot: it increments
	// usage_count only while usage_count < usage_limit, in a single
	// conditional update. Returns ErrUsageLimitReached when no slot remains,
	// which is also how a lost race surfaces.
	CommitRedemption(ctx context.Context, id string) error
}
