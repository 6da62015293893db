package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/order"
)

type placeOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	CouponCode string `json:"couponCode"`
}

// placeOrder prices the cart authoritatively and persists the order. Checkout
// never trusts prices the client saw: every line is re-resolved here.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.orderService.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Items:      items,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	o := result.Order
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	money(&e, "subtotal", o.Subtotal)
	money(&e, "promoSavings", o.PromoSavings)
	money(&e, "couponDiscount", o.CouponDiscount)
	money(&e, "total", o.Total)
	if o.CouponCode != "" {
		e.FieldStart("couponCode")
		e.Str(o.CouponCode)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, line := range o.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(line.ProductID)
		e.FieldStart("name")
		e.Str(line.Name)
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		money(&e, "basePrice", line.BasePrice)
		money(&e, "unitPrice", line.UnitPrice)
		money(&e, "lineTotal", line.LineTotal)
		if line.PromotionID != "" {
			e.FieldStart("promotionId")
			e.Str(line.PromotionID)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

// writeOrderError maps order placement failures onto HTTP statuses. Coupon
// rejections surface as 422 with the coupon's message; a redemption race lost
// at commit time looks identical to one lost at validation.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *order.ProductNotFoundError
		invalidQty *order.InvalidQuantityError
		minErr     *coupon.MinPurchaseError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "items required")
	case errors.As(err, &invalidQty):
		writeError(w, http.StatusUnprocessableEntity, invalidQty.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusUnprocessableEntity, notFound.Error())
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrNotYetStarted),
		errors.Is(err, coupon.ErrExpired):
		writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.Is(err, coupon.ErrUsageLimitReached):
		writeError(w, http.StatusConflict, "this coupon has reached its usage limit")
	case errors.As(err, &minErr):
		writeError(w, http.StatusUnprocessableEntity, minErr.Error())
	default:
		writeInternalError(w, r, errors.Wrap(err, "place order"))
	}
}
