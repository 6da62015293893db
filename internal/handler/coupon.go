package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
)

// Machine-readable rejection reasons for coupon validation responses.
const (
	reasonInvalidCode        = "invalid_code"
	reasonInactive           = "inactive"
	reasonNotYetStarted      = "not_yet_started"
	reasonExpired            = "expired"
	reasonUsageLimitReached  = "usage_limit_reached"
	reasonMinPurchaseNotMet  = "minimum_purchase_not_met"
)

type validateCouponRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

// validateCoupon checks a coupon against a cart subtotal without consuming a
// redemption slot. Every outcome is a 200: the valid flag and reason carry the
// verdict so the storefront can render it inline.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}
	if req.Subtotal < 0 {
		writeError(w, http.StatusBadRequest, "subtotal must not be negative")
		return
	}

	subtotal := decimal.NewFromFloat(req.Subtotal)
	red, err := h.coupons.Validate(r.Context(), req.Code, subtotal)
	if err != nil {
		h.writeCouponRejection(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(true)
	e.FieldStart("code")
	e.Str(red.Coupon.Code)
	e.FieldStart("description")
	e.Str(red.Coupon.Description)
	money(&e, "discountAmount", red.DiscountAmount)
	money(&e, "newTotal", subtotal.Sub(red.DiscountAmount).Round(2))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// writeCouponRejection maps a validation error to its reason string. Unknown
// codes share the generic invalid_code message so the endpoint never confirms
// whether a code exists.
func (h *Handler) writeCouponRejection(w http.ResponseWriter, r *http.Request, err error) {
	var reason, message string
	var shortfall decimal.Decimal

	var minErr *coupon.MinPurchaseError
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		reason, message = reasonInvalidCode, "invalid coupon code"
	case errors.Is(err, coupon.ErrInactive):
		reason, message = reasonInactive, "this coupon is no longer active"
	case errors.Is(err, coupon.ErrNotYetStarted):
		reason, message = reasonNotYetStarted, "this coupon is not valid yet"
	case errors.Is(err, coupon.ErrExpired):
		reason, message = reasonExpired, "this coupon has expired"
	case errors.Is(err, coupon.ErrUsageLimitReached):
		reason, message = reasonUsageLimitReached, "this coupon has reached its usage limit"
	case errors.As(err, &minErr):
		reason, message = reasonMinPurchaseNotMet, minErr.Error()
		shortfall = minErr.Shortfall
	default:
		writeInternalError(w, r, errors.Wrap(err, "validate coupon"))
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(false)
	e.FieldStart("reason")
	e.Str(reason)
	e.FieldStart("message")
	e.Str(message)
	if reason == reasonMinPurchaseNotMet {
		money(&e, "shortfall", shortfall)
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// listPublicCoupons returns the currently redeemable public coupons for the
// storefront banner.
func (h *Handler) listPublicCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListPublic(r.Context())
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list public coupons"))
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, c := range coupons {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(c.Code)
		e.FieldStart("description")
		e.Str(c.Description)
		e.FieldStart("discountType")
		e.Str(string(c.DiscountType))
		money(&e, "value", c.Value)
		if c.MinPurchase.IsPositive() {
			money(&e, "minPurchase", c.MinPurchase)
		}
		timestamp(&e, "endsAt", c.EndsAt)
		e.ObjEnd()
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}
