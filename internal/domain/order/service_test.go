package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/product"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockPromoRepo struct {
	active []promo.Promotion
}

func (m *mockPromoRepo) ListActive(_ context.Context) ([]promo.Promotion, error) {
	return m.active, nil
}
func (m *mockPromoRepo) GetByID(_ context.Context, _ string) (*promo.Promotion, error) {
	return nil, promo.ErrNotFound
}
func (m *mockPromoRepo) Create(_ context.Context, _ *promo.Promotion) error { return nil }
func (m *mockPromoRepo) Update(_ context.Context, _ *promo.Promotion) error { return nil }
func (m *mockPromoRepo) SetActive(_ context.Context, _ string, _ bool) error {
	return nil
}
func (m *mockPromoRepo) CommitUsage(_ context.Context, _ string) error { return nil }

type mockCouponRepo struct {
	coupon *coupon.Coupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*coupon.Coupon, error) {
	if m.coupon == nil {
		return nil, coupon.ErrNotFound
	}
	return m.coupon, nil
}
func (m *mockCouponRepo) ListPublic(_ context.Context) ([]coupon.Coupon, error) { return nil, nil }
func (m *mockCouponRepo) GetByID(_ context.Context, _ string) (*coupon.Coupon, error) {
	return m.coupon, nil
}
func (m *mockCouponRepo) Create(_ context.Context, _ *coupon.Coupon) error { return nil }
func (m *mockCouponRepo) Update(_ context.Context, _ *coupon.Coupon) error { return nil }
func (m *mockCouponRepo) SetActive(_ context.Context, _ string, _ bool) error {
	return nil
}
func (m *mockCouponRepo) CommitRedemption(_ context.Context, _ string) error { return nil }

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.lastOrder = o
	return nil
}

// --- Helpers ---

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func catalog() *mockProductRepo {
	return &mockProductRepo{byID: map[string]product.Product{
		"tee-1": {ID: "tee-1", Name: "Classic Tee", Category: "basics", BasePrice: price("50")},
		"tee-2": {ID: "tee-2", Name: "Graphic Tee", Category: "graphic-tees", BasePrice: price("25")},
	}}
}

func twentyOff() promo.Promotion {
	return promo.Promotion{
		ID:           "promo-20",
		DiscountType: promo.DiscountPercentage,
		Value:        decimal.NewFromInt(20),
		StartsAt:     fixedNow.Add(-time.Hour),
		EndsAt:       fixedNow.Add(time.Hour),
		Active:       true,
		Kind:         promo.KindStoreWide,
	}
}

func newTestService(
	products product.Repository,
	promos promo.Repository,
	coupons coupon.Repository,
	orders Repository,
) *Service {
	cv := coupon.NewValidator(coupons)
	svc := NewService(products, promos, promo.NewResolver(nil), cv, orders)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// --- Tests ---

func TestService_PlaceOrder_NoDiscounts(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(catalog(), &mockPromoRepo{}, &mockCouponRepo{}, orders)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "tee-1", Quantity: 2}, {ProductID: "tee-2", Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, "125.00", res.Order.Total.StringFixed(2))
	assert.Equal(t, "0.00", res.Order.PromoSavings.StringFixed(2))
	assert.Empty(t, res.Order.PromotionIDs)
	require.NotNil(t, orders.lastOrder)
}

func TestService_PlaceOrder_PromotionApplied(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(catalog(), &mockPromoRepo{active: []promo.Promotion{twentyOff()}}, &mockCouponRepo{}, orders)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "tee-1", Quantity: 1}},
	})

	require.NoError(t, err)
	o := res.Order
	assert.Equal(t, "40.00", o.Total.StringFixed(2))
	assert.Equal(t, "10.00", o.PromoSavings.StringFixed(2))
	assert.Equal(t, []string{"promo-20"}, o.PromotionIDs)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "promo-20", o.Lines[0].PromotionID)
	assert.Equal(t, "40.00", o.Lines[0].UnitPrice.StringFixed(2))
}

func TestService_PlaceOrder_MinPurchasePromotionNeedsSubtotal(t *testing.T) {
	p := twentyOff()
	p.MinPurchase = decimal.NewFromInt(100)
	promos := &mockPromoRepo{active: []promo.Promotion{p}}

	svc := newTestService(catalog(), promos, &mockCouponRepo{}, &mockOrderRepo{})

	// One tee: subtotal 50 < 100, promotion must not apply at checkout.
	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "tee-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", res.Order.Total.StringFixed(2))

	// Three tees: subtotal 150 >= 100, promotion applies.
	res, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "tee-1", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "120.00", res.Order.Total.StringFixed(2))
}

func TestService_PlaceOrder_CouponApplied(t *testing.T) {
	coupons := &mockCouponRepo{coupon: &coupon.Coupon{
		ID:           "c1",
		Code:         "SAVE15",
		DiscountType: coupon.DiscountFixed,
		Value:        decimal.NewFromInt(15),
		StartsAt:     fixedNow.Add(-time.Hour),
		EndsAt:       fixedNow.Add(time.Hour),
		Active:       true,
		UsageLimit:   10,
		UsageCount:   9,
		MinPurchase:  decimal.NewFromInt(50),
	}}
	orders := &mockOrderRepo{}
	svc := newTestService(catalog(), &mockPromoRepo{}, coupons, orders)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []Item{{ProductID: "tee-1", Quantity: 2}},
		CouponCode: "SAVE15",
	})

	require.NoError(t, err)
	o := res.Order
	assert.Equal(t, "100.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "15.00", o.CouponDiscount.StringFixed(2))
	assert.Equal(t, "85.00", o.Total.StringFixed(2))
	assert.Equal(t, "c1", o.CouponID)
	assert.Equal(t, "SAVE15", o.CouponCode)
}

func TestService_PlaceOrder_CouponValidatedAgainstDiscountedSubtotal(t *testing.T) {
	coupons := &mockCouponRepo{coupon: &coupon.Coupon{
		ID:           "c1",
		Code:         "PICKY",
		DiscountType: coupon.DiscountFixed,
		Value:        decimal.NewFromInt(5),
		StartsAt:     fixedNow.Add(-time.Hour),
		EndsAt:       fixedNow.Add(time.Hour),
		Active:       true,
		MinPurchase:  decimal.NewFromInt(45),
	}}
	promos := &mockPromoRepo{active: []promo.Promotion{twentyOff()}}
	svc := newTestService(catalog(), promos, coupons, &mockOrderRepo{})

	// Base subtotal 50, discounted to 40 — below the coupon's 45 minimum.
	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []Item{{ProductID: "tee-1", Quantity: 1}},
		CouponCode: "PICKY",
	})

	var mpErr *coupon.MinPurchaseError
	require.ErrorAs(t, err, &mpErr)
	assert.Equal(t, "5.00", mpErr.Shortfall.StringFixed(2))
}

func TestService_PlaceOrder_InputValidation(t *testing.T) {
	svc := newTestService(catalog(), &mockPromoRepo{}, &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	assert.ErrorIs(t, err, ErrEmptyItems)

	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "tee-1", Quantity: 0}},
	})
	var iqErr *InvalidQuantityError
	assert.ErrorAs(t, err, &iqErr)

	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "nope", Quantity: 1}},
	})
	var pnfErr *ProductNotFoundError
	assert.ErrorAs(t, err, &pnfErr)
}

func TestService_PlaceOrder_InvalidCouponFailsOrder(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(catalog(), &mockPromoRepo{}, &mockCouponRepo{}, orders)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []Item{{ProductID: "tee-1", Quantity: 1}},
		CouponCode: "BOGUS",
	})

	require.ErrorIs(t, err, coupon.ErrNotFound)
	assert.Nil(t, orders.lastOrder, "failed coupon must not create an order")
}

func TestService_PlaceOrder_LostRedemptionRace(t *testing.T) {
	coupons := &mockCouponRepo{coupon: &coupon.Coupon{
		ID:           "c1",
		Code:         "LAST1",
		DiscountType: coupon.DiscountFixed,
		Value:        decimal.NewFromInt(5),
		StartsAt:     fixedNow.Add(-time.Hour),
		EndsAt:       fixedNow.Add(time.Hour),
		Active:       true,
		UsageLimit:   1,
	}}
	// The transactional repository reports the lost race on Create.
	orders := &mockOrderRepo{err: coupon.ErrUsageLimitReached}
	svc := newTestService(catalog(), &mockPromoRepo{}, coupons, orders)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []Item{{ProductID: "tee-1", Quantity: 1}},
		CouponCode: "LAST1",
	})

	require.ErrorIs(t, err, coupon.ErrUsageLimitReached)
	assert.Nil(t, orders.lastOrder)
}
