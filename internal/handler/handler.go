// Package handler exposes the REST surface: the storefront read paths,
// coupon validation, order placement and the promotion/coupon admin API.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/order"
	"github.com/jaimin0609/tee-pricing/internal/domain/product"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
	"github.com/jaimin0609/tee-pricing/internal/pricecache"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// QuoteTTL bounds how long a cached price quote may serve reads.
	QuoteTTL time.Duration
}

// Handler wires the domain services to HTTP.
type Handler struct {
	products     product.Repository
	promos       promo.Repository
	resolver     *promo.Resolver
	coupons      *coupon.Validator
	couponRepo   coupon.Repository
	orderService *order.Service
	cache        pricecache.Cache
	imageBaseURL string
	quoteTTL     time.Duration
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	promos promo.Repository,
	resolver *promo.Resolver,
	coupons *coupon.Validator,
	couponRepo coupon.Repository,
	orderService *order.Service,
	cache pricecache.Cache,
) *Handler {
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 5 * time.Minute
	}
	if cache == nil {
		cache = pricecache.Noop{}
	}
	return &Handler{
		products:     products,
		promos:       promos,
		resolver:     resolver,
		coupons:      coupons,
		couponRepo:   couponRepo,
		orderService: orderService,
		cache:        cache,
		imageBaseURL: cfg.ImageBaseURL,
		quoteTTL:     cfg.QuoteTTL,
	}
}

// Routes builds the API router. Order placement and the admin surface sit
// behind the given auth middleware; the storefront read paths are public.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Post("/coupons/validate", h.validateCoupon)
	r.Get("/coupons/public", h.listPublicCoupons)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/order", h.placeOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/promotions", h.createPromotion)
			r.Put("/promotions/{promotionID}", h.updatePromotion)
			r.Post("/promotions/{promotionID}/deactivate", h.deactivatePromotion)
			r.Post("/coupons", h.createCoupon)
			r.Put("/coupons/{couponID}", h.updateCoupon)
			r.Post("/coupons/{couponID}/deactivate", h.deactivateCoupon)
		})
	})

	return r
}
