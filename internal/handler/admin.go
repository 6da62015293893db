package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

type promotionRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	DiscountType string   `json:"discountType"`
	Value        float64  `json:"value"`
	StartsAt     string   `json:"startsAt"`
	EndsAt       string   `json:"endsAt"`
	Active       *bool    `json:"active"`
	Kind         string   `json:"kind"`
	Categories   []string `json:"categories"`
	ProductIDs   []string `json:"productIds"`
	MinPurchase  float64  `json:"minPurchase"`
	UsageLimit   int      `json:"usageLimit"`
	Priority     int      `json:"priority"`
}

func (req *promotionRequest) toDomain() (*promo.Promotion, error) {
	switch promo.DiscountType(req.DiscountType) {
	case promo.DiscountPercentage, promo.DiscountFixedAmount:
	default:
		return nil, errors.Errorf("unknown discount type %q", req.DiscountType)
	}
	switch promo.Kind(req.Kind) {
	case promo.KindStoreWide, promo.KindCategory, promo.KindProductSpecific, promo.KindClearance:
	default:
		return nil, errors.Errorf("unknown promotion kind %q", req.Kind)
	}
	if req.Name == "" {
		return nil, errors.New("name required")
	}
	if req.Value <= 0 {
		return nil, errors.New("value must be positive")
	}
	if req.DiscountType == string(promo.DiscountPercentage) && req.Value > 100 {
		return nil, errors.New("percentage value must not exceed 100")
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, errors.Wrap(err, "parse startsAt")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, errors.Wrap(err, "parse endsAt")
	}
	if !endsAt.After(startsAt) {
		return nil, errors.New("endsAt must be after startsAt")
	}
	if req.UsageLimit < 0 {
		return nil, errors.New("usageLimit must not be negative")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return &promo.Promotion{
		Name:         req.Name,
		Description:  req.Description,
		DiscountType: promo.DiscountType(req.DiscountType),
		Value:        decimal.NewFromFloat(req.Value),
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		Active:       active,
		Kind:         promo.Kind(req.Kind),
		Categories:   req.Categories,
		ProductIDs:   req.ProductIDs,
		MinPurchase:  decimal.NewFromFloat(req.MinPurchase),
		UsageLimit:   req.UsageLimit,
		Priority:     req.Priority,
	}, nil
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = uuid.New().String()

	if err := h.promos.Create(r.Context(), p); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "create promotion"))
		return
	}
	h.invalidateQuotes(r)

	var e jx.Encoder
	encodePromotion(&e, p)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = chi.URLParam(r, "promotionID")

	if err := h.promos.Update(r.Context(), p); err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "update promotion"))
		return
	}
	h.invalidateQuotes(r)

	var e jx.Encoder
	encodePromotion(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) deactivatePromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "promotionID")
	if err := h.promos.SetActive(r.Context(), id, false); err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "deactivate promotion"))
		return
	}
	h.invalidateQuotes(r)
	w.WriteHeader(http.StatusNoContent)
}

type couponRequest struct {
	Code         string  `json:"code"`
	Description  string  `json:"description"`
	DiscountType string  `json:"discountType"`
	Value        float64 `json:"value"`
	StartsAt     string  `json:"startsAt"`
	EndsAt       string  `json:"endsAt"`
	Active       *bool   `json:"active"`
	UsageLimit   *int    `json:"usageLimit"`
	MinPurchase  float64 `json:"minPurchase"`
	Public       bool    `json:"public"`
}

func (req *couponRequest) toDomain() (*coupon.Coupon, error) {
	if req.Code == "" {
		return nil, errors.New("code required")
	}
	switch coupon.DiscountType(req.DiscountType) {
	case coupon.DiscountPercentage, coupon.DiscountFixed:
	default:
		return nil, errors.Errorf("unknown discount type %q", req.DiscountType)
	}
	if req.Value <= 0 {
		return nil, errors.New("value must be positive")
	}
	if req.DiscountType == string(coupon.DiscountPercentage) && req.Value > 100 {
		return nil, errors.New("percentage value must not exceed 100")
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, errors.Wrap(err, "parse startsAt")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, errors.Wrap(err, "parse endsAt")
	}
	if !endsAt.After(startsAt) {
		return nil, errors.New("endsAt must be after startsAt")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	// Administrator-created coupons are single-use unless told otherwise;
	// an explicit 0 means unlimited.
	usageLimit := 1
	if req.UsageLimit != nil {
		if *req.UsageLimit < 0 {
			return nil, errors.New("usageLimit must not be negative")
		}
		usageLimit = *req.UsageLimit
	}

	return &coupon.Coupon{
		Code:         req.Code,
		Description:  req.Description,
		DiscountType: coupon.DiscountType(req.DiscountType),
		Value:        decimal.NewFromFloat(req.Value),
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		Active:       active,
		UsageLimit:   usageLimit,
		MinPurchase:  decimal.NewFromFloat(req.MinPurchase),
		Public:       req.Public,
	}, nil
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.ID = uuid.New().String()

	if err := h.couponRepo.Create(r.Context(), c); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "create coupon"))
		return
	}
	h.invalidateQuotes(r)

	var e jx.Encoder
	encodeCoupon(&e, c)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.ID = chi.URLParam(r, "couponID")

	if err := h.couponRepo.Update(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "update coupon"))
		return
	}
	h.invalidateQuotes(r)

	var e jx.Encoder
	encodeCoupon(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) deactivateCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "couponID")
	if err := h.couponRepo.SetActive(r.Context(), id, false); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "deactivate coupon"))
		return
	}
	h.invalidateQuotes(r)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateQuotes drops every cached price quote after an admin write. The
// cache is advisory, so a failed invalidation only delays fresh prices by one
// TTL; it never fails the admin request.
func (h *Handler) invalidateQuotes(r *http.Request) {
	ctx := r.Context()
	if err := h.cache.InvalidateAll(ctx); err != nil {
		zctx.From(ctx).Warn("price cache invalidation failed", zap.Error(err))
	}
}

func encodePromotion(e *jx.Encoder, p *promo.Promotion) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("discountType")
	e.Str(string(p.DiscountType))
	money(e, "value", p.Value)
	timestamp(e, "startsAt", p.StartsAt)
	timestamp(e, "endsAt", p.EndsAt)
	e.FieldStart("active")
	e.Bool(p.Active)
	e.FieldStart("kind")
	e.Str(string(p.Kind))
	if len(p.Categories) > 0 {
		e.FieldStart("categories")
		e.ArrStart()
		for _, c := range p.Categories {
			e.Str(c)
		}
		e.ArrEnd()
	}
	if len(p.ProductIDs) > 0 {
		e.FieldStart("productIds")
		e.ArrStart()
		for _, id := range p.ProductIDs {
			e.Str(id)
		}
		e.ArrEnd()
	}
	money(e, "minPurchase", p.MinPurchase)
	e.FieldStart("usageLimit")
	e.Int(p.UsageLimit)
	e.FieldStart("usageCount")
	e.Int(p.UsageCount)
	e.FieldStart("priority")
	e.Int(p.Priority)
	e.ObjEnd()
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("discountType")
	e.Str(string(c.DiscountType))
	money(e, "value", c.Value)
	timestamp(e, "startsAt", c.StartsAt)
	timestamp(e, "endsAt", c.EndsAt)
	e.FieldStart("active")
	e.Bool(c.Active)
	e.FieldStart("usageLimit")
	e.Int(c.UsageLimit)
	e.FieldStart("usageCount")
	e.Int(c.UsageCount)
	money(e, "minPurchase", c.MinPurchase)
	e.FieldStart("public")
	e.Bool(c.Public)
	e.ObjEnd()
}
