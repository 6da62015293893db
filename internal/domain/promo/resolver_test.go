package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func currentWindow() (time.Time, time.Time) {
	return fixedNow.Add(-24 * time.Hour), fixedNow.Add(24 * time.Hour)
}

func storeWide(id string, dt DiscountType, value int64, priority int) Promotion {
	start, end := currentWindow()
	return Promotion{
		ID:           id,
		Name:         id,
		DiscountType: dt,
		Value:        decimal.NewFromInt(value),
		StartsAt:     start,
		EndsAt:       end,
		Active:       true,
		Kind:         KindStoreWide,
		Priority:     priority,
		CreatedAt:    fixedNow.Add(-48 * time.Hour),
	}
}

func TestResolver_Resolve(t *testing.T) {
	start, end := currentWindow()
	tee := Target{ProductID: "tee-1", Category: "graphic-tees", BasePrice: decimal.NewFromInt(50)}

	tests := []struct {
		name        string
		target      Target
		promotions  []Promotion
		wantFinal   string
		wantPercent int64
		wantPromo   string
	}{
		{
			name:        "store wide percentage",
			target:      tee,
			promotions:  []Promotion{storeWide("p1", DiscountPercentage, 20, 1)},
			wantFinal:   "40",
			wantPercent: 20,
			wantPromo:   "p1",
		},
		{
			name:        "fixed amount",
			target:      tee,
			promotions:  []Promotion{storeWide("p1", DiscountFixedAmount, 15, 1)},
			wantFinal:   "35",
			wantPercent: 30,
			wantPromo:   "p1",
		},
		{
			name:       "fixed amount larger than price floors at zero",
			target:     Target{ProductID: "tee-1", BasePrice: decimal.NewFromInt(10)},
			promotions: []Promotion{storeWide("p1", DiscountFixedAmount, 25, 1)},
			wantFinal:  "0", wantPercent: 100, wantPromo: "p1",
		},
		{
			name:   "category promotion matches product category",
			target: tee,
			promotions: []Promotion{{
				ID: "cat", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(10),
				StartsAt: start, EndsAt: end, Active: true,
				Kind: KindCategory, Categories: []string{"graphic-tees"},
			}},
			wantFinal: "45", wantPercent: 10, wantPromo: "cat",
		},
		{
			name:   "category promotion skips other categories",
			target: tee,
			promotions: []Promotion{{
				ID: "cat", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(10),
				StartsAt: start, EndsAt: end, Active: true,
				Kind: KindCategory, Categories: []string{"hoodies"},
			}},
			wantFinal: "50",
		},
		{
			name:   "product specific promotion",
			target: tee,
			promotions: []Promotion{{
				ID: "ps", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(25),
				StartsAt: start, EndsAt: end, Active: true,
				Kind: KindProductSpecific, ProductIDs: []string{"tee-1"},
			}},
			wantFinal: "37.5", wantPercent: 25, wantPromo: "ps",
		},
		{
			name:   "clearance matches flagged product",
			target: Target{ProductID: "tee-1", BasePrice: decimal.NewFromInt(50), OnClearance: true},
			promotions: []Promotion{{
				ID: "cl", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(40),
				StartsAt: start, EndsAt: end, Active: true, Kind: KindClearance,
			}},
			wantFinal: "30", wantPercent: 40, wantPromo: "cl",
		},
		{
			name:   "clearance skips unflagged product",
			target: tee,
			promotions: []Promotion{{
				ID: "cl", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(40),
				StartsAt: start, EndsAt: end, Active: true, Kind: KindClearance,
			}},
			wantFinal: "50",
		},
		{
			name:   "expired promotion is ignored",
			target: tee,
			promotions: []Promotion{{
				ID: "old", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(20),
				StartsAt: fixedNow.Add(-72 * time.Hour), EndsAt: fixedNow.Add(-48 * time.Hour),
				Active: true, Kind: KindStoreWide,
			}},
			wantFinal: "50",
		},
		{
			name:   "not yet started promotion is ignored",
			target: tee,
			promotions: []Promotion{{
				ID: "fut", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(20),
				StartsAt: fixedNow.Add(24 * time.Hour), EndsAt: fixedNow.Add(48 * time.Hour),
				Active: true, Kind: KindStoreWide,
			}},
			wantFinal: "50",
		},
		{
			name:   "usage exhausted promotion is ignored",
			target: tee,
			promotions: func() []Promotion {
				p := storeWide("p1", DiscountPercentage, 20, 1)
				p.UsageLimit = 100
				p.UsageCount = 100
				return []Promotion{p}
			}(),
			wantFinal: "50",
		},
		{
			name:   "higher priority wins over bigger discount",
			target: tee,
			promotions: []Promotion{
				storeWide("big", DiscountPercentage, 30, 1),
				storeWide("vip", DiscountPercentage, 10, 5),
			},
			wantFinal: "45", wantPercent: 10, wantPromo: "vip",
		},
		{
			name:   "equal priority picks larger discount",
			target: tee,
			promotions: []Promotion{
				storeWide("ten", DiscountPercentage, 10, 5),
				storeWide("fifteen", DiscountPercentage, 15, 5),
			},
			wantFinal: "42.5", wantPercent: 15, wantPromo: "fifteen",
		},
		{
			name:   "min purchase is ignored at display time",
			target: tee,
			promotions: func() []Promotion {
				p := storeWide("bulk", DiscountPercentage, 20, 1)
				p.MinPurchase = decimal.NewFromInt(200)
				return []Promotion{p}
			}(),
			wantFinal: "40", wantPercent: 20, wantPromo: "bulk",
		},
		{
			name:      "no promotions",
			target:    tee,
			wantFinal: "50",
		},
	}

	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := r.Resolve(tt.target, tt.promotions, fixedNow)

			require.True(t, decimal.RequireFromString(tt.wantFinal).Equal(q.FinalPrice),
				"expected final %s, got %s", tt.wantFinal, q.FinalPrice)
			assert.Equal(t, tt.wantPromo != "", q.HasDiscount)
			assert.Equal(t, tt.wantPromo, q.PromotionID)
			assert.Equal(t, tt.wantPercent, q.DiscountPercent)
			assert.True(t, tt.target.BasePrice.Round(2).Equal(q.OriginalPrice))
		})
	}
}

func TestResolver_TieBreakIsDeterministic(t *testing.T) {
	tee := Target{ProductID: "tee-1", BasePrice: decimal.NewFromInt(50)}
	a := storeWide("a", DiscountPercentage, 15, 5)
	b := storeWide("b", DiscountPercentage, 10, 5)

	r := NewResolver(nil)
	for range 50 {
		q1 := r.Resolve(tee, []Promotion{a, b}, fixedNow)
		q2 := r.Resolve(tee, []Promotion{b, a}, fixedNow)
		assert.Equal(t, "a", q1.PromotionID)
		assert.Equal(t, q1, q2)
	}
}

func TestResolver_EqualAmountPrefersNewest(t *testing.T) {
	tee := Target{ProductID: "tee-1", BasePrice: decimal.NewFromInt(50)}
	older := storeWide("older", DiscountPercentage, 20, 5)
	newer := storeWide("newer", DiscountPercentage, 20, 5)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	q := NewResolver(nil).Resolve(tee, []Promotion{older, newer}, fixedNow)
	assert.Equal(t, "newer", q.PromotionID)
}

func TestResolver_NonPositiveBasePrice(t *testing.T) {
	r := NewResolver(nil)
	promos := []Promotion{storeWide("p1", DiscountPercentage, 20, 1)}

	for _, price := range []int64{0, -10} {
		q := r.Resolve(Target{ProductID: "bad", BasePrice: decimal.NewFromInt(price)}, promos, fixedNow)
		assert.False(t, q.HasDiscount)
		assert.Empty(t, q.PromotionID)
		assert.True(t, q.FinalPrice.Equal(q.OriginalPrice))
	}
}

func TestResolver_ZeroValuePromotionYieldsNoDiscount(t *testing.T) {
	tee := Target{ProductID: "tee-1", BasePrice: decimal.NewFromInt(50)}
	q := NewResolver(nil).Resolve(tee, []Promotion{storeWide("zero", DiscountFixedAmount, 0, 9)}, fixedNow)

	assert.False(t, q.HasDiscount)
	assert.True(t, q.FinalPrice.Equal(decimal.NewFromInt(50)))
}

func TestResolver_ResolveForCart(t *testing.T) {
	tee := Target{ProductID: "tee-1", BasePrice: decimal.NewFromInt(50)}
	bulk := storeWide("bulk", DiscountPercentage, 20, 1)
	bulk.MinPurchase = decimal.NewFromInt(100)

	r := NewResolver(nil)

	q := r.ResolveForCart(tee, []Promotion{bulk}, fixedNow, decimal.NewFromInt(60))
	assert.False(t, q.HasDiscount, "subtotal below min purchase must not discount")

	q = r.ResolveForCart(tee, []Promotion{bulk}, fixedNow, decimal.NewFromInt(150))
	require.True(t, q.HasDiscount)
	assert.True(t, decimal.NewFromInt(40).Equal(q.FinalPrice))
}

func TestResolver_Idempotent(t *testing.T) {
	tee := Target{ProductID: "tee-1", Category: "graphic-tees", BasePrice: decimal.RequireFromString("49.99")}
	promos := []Promotion{
		storeWide("a", DiscountPercentage, 33, 2),
		storeWide("b", DiscountFixedAmount, 5, 2),
	}

	r := NewResolver(nil)
	first := r.Resolve(tee, promos, fixedNow)
	for range 10 {
		assert.Equal(t, first, r.Resolve(tee, promos, fixedNow))
	}
}

func TestResolver_HalfUpRounding(t *testing.T) {
	// 33.335 rounds up to 33.34 with half-up currency rounding.
	tee := Target{ProductID: "tee-1", BasePrice: decimal.RequireFromString("66.67")}
	q := NewResolver(nil).Resolve(tee, []Promotion{storeWide("half", DiscountPercentage, 50, 1)}, fixedNow)

	require.True(t, q.HasDiscount)
	assert.Equal(t, "33.34", q.FinalPrice.StringFixed(2))
}

func TestBadgeText(t *testing.T) {
	pct := storeWide("p", DiscountPercentage, 20, 1)
	fixed := storeWide("f", DiscountFixedAmount, 15, 1)
	clearance := storeWide("c", DiscountPercentage, 40, 1)
	clearance.Kind = KindClearance

	assert.Equal(t, "20% OFF", badgeText(&pct, 20))
	assert.Equal(t, "Save $15.00", badgeText(&fixed, 30))
	assert.Equal(t, "CLEARANCE", badgeText(&clearance, 40))
}
