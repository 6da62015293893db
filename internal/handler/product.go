package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"

	"github.com/jaimin0609/tee-pricing/internal/domain/product"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

// listProducts returns the catalog with each product's resolved display price.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.products.List(ctx)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list products"))
		return
	}

	promotions, err := h.promos.ListActive(ctx)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list promotions"))
		return
	}

	now := time.Now()
	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		q := h.quoteFor(ctx, p, promotions, now)
		h.encodeProduct(&e, p, q)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// getProduct returns a single product with its resolved display price.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.products.GetByID(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	promotions, err := h.promos.ListActive(ctx)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list promotions"))
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, *p, h.quoteFor(ctx, *p, promotions, time.Now()))
	writeJSON(w, http.StatusOK, &e)
}

// quoteFor resolves a product's display price, consulting the advisory cache
// first. Cache failures are logged and treated as misses: pricing must not
// depend on Redis being up.
func (h *Handler) quoteFor(ctx context.Context, p product.Product, promotions []promo.Promotion, now time.Time) promo.Quote {
	if q, ok, err := h.cache.GetQuote(ctx, p.ID); err != nil {
		zctx.From(ctx).Warn("price cache read failed", zap.Error(err), zap.String("product_id", p.ID))
	} else if ok {
		return *q
	}

	q := h.resolver.Resolve(promo.Target{
		ProductID:   p.ID,
		Category:    p.Category,
		BasePrice:   p.BasePrice,
		OnClearance: p.OnClearance,
	}, promotions, now)

	if err := h.cache.SetQuote(ctx, p.ID, &q, h.quoteTTL); err != nil {
		zctx.From(ctx).Warn("price cache write failed", zap.Error(err), zap.String("product_id", p.ID))
	}
	return q
}

// encodeProduct writes a product with its price quote. Image paths are
// prefixed with the configured image base URL.
func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product, q promo.Quote) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	money(e, "price", q.OriginalPrice)
	money(e, "finalPrice", q.FinalPrice)
	e.FieldStart("hasDiscount")
	e.Bool(q.HasDiscount)
	if q.HasDiscount {
		e.FieldStart("discountPercent")
		e.Int64(q.DiscountPercent)
		e.FieldStart("promotionId")
		e.Str(q.PromotionID)
		e.FieldStart("badge")
		e.Str(q.Badge)
	}
	e.FieldStart("onClearance")
	e.Bool(p.OnClearance)
	e.FieldStart("image")
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(h.imageBaseURL + p.Image.Thumbnail)
	e.FieldStart("mobile")
	e.Str(h.imageBaseURL + p.Image.Mobile)
	e.FieldStart("tablet")
	e.Str(h.imageBaseURL + p.Image.Tablet)
	e.FieldStart("desktop")
	e.Str(h.imageBaseURL + p.Image.Desktop)
	e.ObjEnd()
	e.ObjEnd()
}
