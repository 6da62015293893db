// Package pricecache caches resolved price quotes. The cache is advisory:
// the promotion resolver remains the source of truth, entries carry a short
// TTL and every admin write to promotions or coupons invalidates the lot.
package pricecache

import (
	"context"
	"time"

	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

// Cache stores per-product price quotes.
type Cache interface {
	GetQuote(ctx context.Context, productID string) (*promo.Quote, bool, error)
	SetQuote(ctx context.Context, productID string, q *promo.Quote, ttl time.Duration) error
	InvalidateAll(ctx context.Context) error
}

// Noop is used when no Redis is configured; every read misses.
type Noop struct{}

func (Noop) GetQuote(_ context.Context, _ string) (*promo.Quote, bool, error) {
	return nil, false, nil
}

func (Noop) SetQuote(_ context.Context, _ string, _ *promo.Quote, _ time.Duration) error {
	return nil
}

func (Noop) InvalidateAll(_ context.Context) error { return nil }
