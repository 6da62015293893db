package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/product"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = fmt.Errorf("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Item is a requested order line before pricing.
type Item struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items      []Item
	CouponCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order *Order
}

// Service encapsulates order placement. Unlike the optimistic product-page
// display, checkout re-resolves every promotion against the real cart
// subtotal, so minimum purchase constraints are enforced here.
type Service struct {
	products product.Repository
	promos   promo.Repository
	resolver *promo.Resolver
	coupons  *coupon.Validator
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	promos promo.Repository,
	resolver *promo.Resolver,
	coupons *coupon.Validator,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		promos:   promos,
		resolver: resolver,
		coupons:  coupons,
		orders:   orders,
		now:      time.Now,
	}
}

// PlaceOrder validates items, prices every line through the promotion
// resolver, applies the coupon against the discounted subtotal, and persists
// the order together with the coupon redemption. A coupon whose last slot was
// taken by a concurrent order fails the whole placement with
// coupon.ErrUsageLimitReached and leaves no order behind.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}
	for _, item := range req.Items {
		if _, ok := productMap[item.ProductID]; !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
	}

	promotions, err := s.promos.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}

	now := s.now()

	// Promotion minimum purchase references the undiscounted cart subtotal.
	baseSubtotal := decimal.Zero
	for _, item := range req.Items {
		p := productMap[item.ProductID]
		baseSubtotal = baseSubtotal.Add(p.BasePrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	lines := make([]Line, len(req.Items))
	subtotal := decimal.Zero
	promoSavings := decimal.Zero
	seenPromos := make(map[string]struct{})
	var promoIDs []string
	for i, item := range req.Items {
		p := productMap[item.ProductID]
		q := s.resolver.ResolveForCart(promo.Target{
			ProductID:   p.ID,
			Category:    p.Category,
			BasePrice:   p.BasePrice,
			OnClearance: p.OnClearance,
		}, promotions, now, baseSubtotal)

		qty := decimal.NewFromInt(int64(item.Quantity))
		lineTotal := q.FinalPrice.Mul(qty).Round(2)
		lines[i] = Line{
			ProductID:   p.ID,
			Name:        p.Name,
			Quantity:    item.Quantity,
			BasePrice:   q.OriginalPrice,
			UnitPrice:   q.FinalPrice,
			LineTotal:   lineTotal,
			PromotionID: q.PromotionID,
		}
		subtotal = subtotal.Add(lineTotal)
		promoSavings = promoSavings.Add(q.OriginalPrice.Sub(q.FinalPrice).Mul(qty))

		if q.PromotionID != "" {
			if _, ok := seenPromos[q.PromotionID]; !ok {
				seenPromos[q.PromotionID] = struct{}{}
				promoIDs = append(promoIDs, q.PromotionID)
			}
		}
	}

	couponDiscount := decimal.Zero
	couponID := ""
	if req.CouponCode != "" {
		red, err := s.coupons.Validate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		couponDiscount = red.DiscountAmount
		couponID = red.Coupon.ID
	}

	total := subtotal.Sub(couponDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:             uuid.New().String(),
		Lines:          lines,
		Subtotal:       subtotal.Round(2),
		PromoSavings:   promoSavings.Round(2),
		CouponDiscount: couponDiscount.Round(2),
		Total:          total.Round(2),
		CouponCode:     req.CouponCode,
		CouponID:       couponID,
		PromotionIDs:   promoIDs,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{Order: o}, nil
}
