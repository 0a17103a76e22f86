package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbankart/storefront-backend/api/routes"
	"github.com/urbankart/storefront-backend/internal/address"
	"github.com/urbankart/storefront-backend/internal/auth"
	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/internal/checkout"
	"github.com/urbankart/storefront-backend/internal/orders"
	"github.com/urbankart/storefront-backend/internal/payments"
	product "github.com/urbankart/storefront-backend/internal/products"
	"github.com/urbankart/storefront-backend/internal/promo"
	"github.com/urbankart/storefront-backend/internal/reviews"
	"github.com/urbankart/storefront-backend/internal/users"
	"github.com/urbankart/storefront-backend/internal/wishlist"
	"github.com/urbankart/storefront-backend/pkg/auth/session"
	"github.com/urbankart/storefront-backend/pkg/config"
	"github.com/urbankart/storefront-backend/pkg/db"
	"github.com/urbankart/storefront-backend/pkg/logger"
	"github.com/urbankart/storefront-backend/pkg/metrics"
	"github.com/urbankart/storefront-backend/pkg/migrate"
	"github.com/urbankart/storefront-backend/pkg/outbox"
	"github.com/urbankart/storefront-backend/pkg/razorpay"
	"github.com/urbankart/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	fatal := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal("failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal("failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal("failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fatal("failed to create session manager", err)
	}

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	productRepo := product.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	addressRepo := address.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		fatal("failed to create auth service", err)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fatal("failed to create register service", err)
	}

	productService, err := product.NewService(productRepo, logg, cfg.Catalog.BrowseTimeout)
	if err != nil {
		fatal("failed to create product service", err)
	}

	cartService, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		fatal("failed to create cart service", err)
	}

	calculator := checkout.NewCalculator(
		promo.NewEvaluator(promo.DefaultRegistry()),
		checkout.Policy{
			ShippingFee:           cfg.Checkout.ShippingFeeAmount(),
			FreeShippingThreshold: cfg.Checkout.FreeShippingThresholdAmount(),
		},
	)

	newUserWindow := time.Duration(cfg.Checkout.NewUserWindowDays) * 24 * time.Hour
	checkoutService, err := checkout.NewService(
		dbClient,
		checkout.NewRepository(gormDB),
		cartRepo,
		usersRepo,
		addressRepo,
		calculator,
		outboxSvc,
		newUserWindow,
	)
	if err != nil {
		fatal("failed to create checkout service", err)
	}

	razorpayClient, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		fatal("failed to create razorpay client", err)
	}

	paymentsService, err := payments.NewService(
		dbClient,
		payments.NewRepository(gormDB),
		cartRepo,
		razorpayClient,
		outboxSvc,
	)
	if err != nil {
		fatal("failed to create payments service", err)
	}

	returnWindow := time.Duration(cfg.Checkout.ReturnWindowDays) * 24 * time.Hour
	ordersService, err := orders.NewService(dbClient, orders.NewRepository(gormDB), outboxSvc, returnWindow)
	if err != nil {
		fatal("failed to create orders service", err)
	}

	addressService, err := address.NewService(dbClient, addressRepo)
	if err != nil {
		fatal("failed to create address service", err)
	}

	wishlistService, err := wishlist.NewService(wishlist.NewRepository(gormDB), productRepo)
	if err != nil {
		fatal("failed to create wishlist service", err)
	}

	reviewsService, err := reviews.NewService(reviews.NewRepository(gormDB), productRepo)
	if err != nil {
		fatal("failed to create reviews service", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	router := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Session:         sessionManager,
		AuthService:     authService,
		RegisterService: registerService,
		ProductService:  productService,
		CartService:     cartService,
		CheckoutService: checkoutService,
		PaymentsService: paymentsService,
		OrdersService:   ordersService,
		AddressService:  addressService,
		WishlistService: wishlistService,
		ReviewsService:  reviewsService,
		HTTPMetrics:     httpMetrics,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
