package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Line is a priced order line. UnitPrice is the authoritative checkout price
// after promotion resolution; BasePrice is the undiscounted catalog price.
type Line struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	BasePrice   decimal.Decimal `json:"base_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	PromotionID string          `json:"promotion_id,omitempty"`
}

// Order is a completed customer order with its full discount breakdown.
// CouponID is set when a coupon was applied; persisting the order and
// committing the coupon redemption happen atomically.
type Order struct {
	ID             string
	Lines          []Line
	Subtotal       decimal.Decimal
	PromoSavings   decimal.Decimal
	CouponDiscount decimal.Decimal
	Total          decimal.Decimal
	CouponCode     string
	CouponID       string
	PromotionIDs   []string
	CreatedAt      time.Time
}

// Repository defines persistence for orders. Create must persist the order,
// commit the coupon redemption (when CouponID is set) and consume promotion
// usage slots in one transaction, so a lost redemption race leaves no order
// behind.
type Repository interface {
	Create(ctx context.Context, o *Order) error
}
