package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/jaimin0609/tee-pricing/internal/domain/coupon"
	"github.com/jaimin0609/tee-pricing/internal/domain/order"
	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
	"github.com/jaimin0609/tee-pricing/internal/handler"
	"github.com/jaimin0609/tee-pricing/internal/pricecache"
	"github.com/jaimin0609/tee-pricing/internal/storage/postgres"
	"github.com/jaimin0609/tee-pricing/pkg/health"
	"github.com/jaimin0609/tee-pricing/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Price quote cache: Redis when configured, otherwise every read misses.
	var cache pricecache.Cache = pricecache.Noop{}
	var redisCache *pricecache.Redis
	if cfg.RedisURL != "" {
		redisCache, err = pricecache.NewRedis(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "create redis cache")
		}
		defer func() { _ = redisCache.Close() }()
		cache = redisCache
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool.Ping))
	if redisCache != nil {
		healthSvc.AddReadinessCheck("redis", 5*time.Second, health.PingCheck(redisCache.Ping))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	promoRepo := postgres.NewPromotionRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	resolver := promo.NewResolver(lg.Named("resolver"))
	couponValidator := coupon.NewValidator(couponRepo)
	orderService := order.NewService(productRepo, promoRepo, resolver, couponValidator, orderRepo)

	// HTTP handlers.
	h := handler.New(
		handler.Config{
			ImageBaseURL: cfg.ImageBaseURL,
			QuoteTTL:     cfg.QuoteCacheTTL,
		},
		productRepo,
		promoRepo,
		resolver,
		couponValidator,
		couponRepo,
		orderService,
		cache,
	)
	apiRoutes := h.Routes(handler.APIKeyAuth(apikeyRepo, []byte(cfg.APIKeyPepper)))

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", apiRoutes))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("tee-pricing-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
