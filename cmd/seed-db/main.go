package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jaimin0609/tee-pricing/internal/domain/auth"
	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/product"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
	"github.com/jaimin0609/tee-pricing/internal/handler"
	"github.com/jaimin0609/tee-pricing/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	OnClearance bool            `json:"onClearance"`
	Image       struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or TEE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or TEE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("TEE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or TEE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("TEE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedPromotions(ctx, postgres.NewPromotionRepository(pool)); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, &product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			BasePrice:   p.Price,
			OnClearance: p.OnClearance,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedPromotions(ctx context.Context, repo *postgres.PromotionRepository) error {
	slog.Info("seeding demo promotions")

	now := time.Now().UTC()
	promotions := []promo.Promotion{
		{
			ID:           uuid.New().String(),
			Name:         "Summer Sale",
			Description:  "20% off all tees",
			DiscountType: promo.DiscountPercentage,
			Value:        decimal.NewFromInt(20),
			StartsAt:     now,
			EndsAt:       now.AddDate(0, 1, 0),
			Active:       true,
			Kind:         promo.KindCategory,
			Categories:   []string{"tees"},
			Priority:     10,
		},
		{
			ID:           uuid.New().String(),
			Name:         "Clearance",
			Description:  "Final markdowns on clearance stock",
			DiscountType: promo.DiscountPercentage,
			Value:        decimal.NewFromInt(40),
			StartsAt:     now,
			EndsAt:       now.AddDate(0, 3, 0),
			Active:       true,
			Kind:         promo.KindClearance,
			Priority:     20,
		},
	}

	for _, p := range promotions {
		if err := repo.Create(ctx, &p); err != nil {
			return errors.Wrapf(err, "create promotion %s", p.Name)
		}

		slog.Info("created promotion", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding demo coupons")

	now := time.Now().UTC()
	coupons := []coupon.Coupon{
		{
			ID:           uuid.New().String(),
			Code:         "WELCOME10",
			Description:  "10% off your first order",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			StartsAt:     now,
			EndsAt:       now.AddDate(1, 0, 0),
			Active:       true,
			UsageLimit:   0, // unlimited
			Public:       true,
		},
		{
			ID:           uuid.New().String(),
			Code:         "SAVE15",
			Description:  "$15 off orders over $75",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(15),
			StartsAt:     now,
			EndsAt:       now.AddDate(0, 6, 0),
			Active:       true,
			UsageLimit:   0,
			MinPurchase:  decimal.NewFromInt(75),
			Public:       true,
		},
	}

	for _, c := range coupons {
		if err := repo.Upsert(ctx, &c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: handler.HashAPIKey([]byte(pepper), apiKey),
		Name:    "Default test key",
		Scopes:  []string{"create_order"},
	}
	if err := repo.Upsert(ctx, info, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))

	return nil
}
