package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urbankart/storefront-backend/api/controllers"
	"github.com/urbankart/storefront-backend/api/middleware"
	"github.com/urbankart/storefront-backend/internal/address"
	"github.com/urbankart/storefront-backend/internal/auth"
	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/internal/checkout"
	"github.com/urbankart/storefront-backend/internal/orders"
	"github.com/urbankart/storefront-backend/internal/payments"
	product "github.com/urbankart/storefront-backend/internal/products"
	"github.com/urbankart/storefront-backend/internal/reviews"
	"github.com/urbankart/storefront-backend/internal/wishlist"
	"github.com/urbankart/storefront-backend/pkg/auth/session"
	"github.com/urbankart/storefront-backend/pkg/config"
	"github.com/urbankart/storefront-backend/pkg/db"
	"github.com/urbankart/storefront-backend/pkg/enums"
	"github.com/urbankart/storefront-backend/pkg/logger"
	"github.com/urbankart/storefront-backend/pkg/metrics"
	pkgredis "github.com/urbankart/storefront-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *pkgredis.Client
	Session session.AccessSessionChecker

	AuthService     auth.Service
	RegisterService auth.RegisterService
	ProductService  *product.Service
	CartService     *cart.Service
	CheckoutService *checkout.Service
	PaymentsService *payments.Service
	OrdersService   *orders.Service
	AddressService  *address.Service
	WishlistService *wishlist.Service
	ReviewsService  *reviews.Service

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
				Post("/login", controllers.AuthLogin(deps.AuthService, logg))
			r.With(
				middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
				middleware.Idempotency(deps.Redis, logg),
			).Post("/register", controllers.AuthRegister(deps.RegisterService, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
			r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
		})

		// Public catalog reads.
		r.Group(func(r chi.Router) {
			r.Get("/products", controllers.ProductsBrowse(deps.ProductService, logg))
			r.Get("/products/{productId}", controllers.ProductDetail(deps.ProductService, logg))
			r.Get("/products/{productId}/reviews", controllers.ReviewsList(deps.ReviewsService, logg))
		})

		// Authenticated customer surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.CartService, logg))
				r.Delete("/", controllers.CartClear(deps.CartService, logg))
				r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
				r.Put("/items/{productId}", controllers.CartUpdateItem(deps.CartService, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.CartService, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/create-order", controllers.CheckoutCreateOrder(deps.CheckoutService, deps.PaymentsService, logg))
				r.Post("/verify-payment", controllers.CheckoutVerifyPayment(deps.PaymentsService, logg))
			})
			r.Post("/promo/validate", controllers.PromoValidate(deps.CheckoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(deps.OrdersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.OrdersService, logg))
				r.Post("/{orderId}/return", controllers.OrderReturnRequest(deps.OrdersService, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(deps.AddressService, logg))
				r.Post("/", controllers.AddressCreate(deps.AddressService, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(deps.AddressService, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(deps.AddressService, logg))
				r.Post("/{addressId}/default", controllers.AddressSetDefault(deps.AddressService, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(deps.WishlistService, logg))
				r.Post("/", controllers.WishlistAdd(deps.WishlistService, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(deps.WishlistService, logg))
			})

			r.Put("/products/{productId}/review", controllers.ReviewPut(deps.ReviewsService, logg))
			r.Delete("/products/{productId}/review", controllers.ReviewDelete(deps.ReviewsService, logg))
		})
	})

	// Admin surface.
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
				Post("/login", controllers.AdminAuthLogin(deps.AuthService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductsList(deps.ProductService, logg))
				r.Post("/", controllers.AdminProductCreate(deps.ProductService, logg))
				r.Get("/{productId}", controllers.AdminProductDetail(deps.ProductService, logg))
				r.Put("/{productId}", controllers.AdminProductUpdate(deps.ProductService, logg))
				r.Delete("/{productId}", controllers.AdminProductDelete(deps.ProductService, logg))
				r.Post("/{productId}/stock", controllers.AdminProductAdjustStock(deps.ProductService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersList(deps.OrdersService, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(deps.OrdersService, logg))
				r.Post("/{orderId}/status", controllers.AdminOrderStatus(deps.OrdersService, logg))
			})
		})
	})

	return r
}
