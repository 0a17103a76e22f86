package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Razorpay      RazorpayConfig
	Checkout      CheckoutConfig
	Catalog       CatalogConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"URBANKART_APP_ENV" required:"true"`
	Port         string `envconfig:"URBANKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"URBANKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"URBANKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"URBANKART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"URBANKART_DB_DSN"`
	Driver string `envconfig:"URBANKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"URBANKART_DB_HOST"`
	LegacyPort     int    `envconfig:"URBANKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"URBANKART_DB_USER"`
	LegacyPassword string `envconfig:"URBANKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"URBANKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"URBANKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"URBANKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"URBANKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"URBANKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"URBANKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"URBANKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"URBANKART_REDIS_ADDR"`
	Password     string        `envconfig:"URBANKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"URBANKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"URBANKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"URBANKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"URBANKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"URBANKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"URBANKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"URBANKART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"URBANKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"URBANKART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"URBANKART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"URBANKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"URBANKART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"URBANKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"URBANKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"URBANKART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"URBANKART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"URBANKART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"URBANKART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"URBANKART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"URBANKART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"URBANKART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"URBANKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"URBANKART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"URBANKART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"URBANKART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"URBANKART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"URBANKART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"URBANKART_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"URBANKART_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"URBANKART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"URBANKART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"URBANKART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"URBANKART_RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"URBANKART_RAZORPAY_KEY_SECRET"`
	BaseURL   string        `envconfig:"URBANKART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout   time.Duration `envconfig:"URBANKART_RAZORPAY_TIMEOUT" default:"10s"`
}

type CheckoutConfig struct {
	ShippingFee           string        `envconfig:"URBANKART_CHECKOUT_SHIPPING_FEE" default:"100"`
	FreeShippingThreshold string        `envconfig:"URBANKART_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"1000"`
	PendingOrderTTL       time.Duration `envconfig:"URBANKART_CHECKOUT_PENDING_ORDER_TTL" default:"24h"`
	NewUserWindowDays     int           `envconfig:"URBANKART_CHECKOUT_NEW_USER_WINDOW_DAYS" default:"15"`
	ReturnWindowDays      int           `envconfig:"URBANKART_CHECKOUT_RETURN_WINDOW_DAYS" default:"30"`
}

// ShippingFeeAmount parses the configured flat shipping fee. Invalid
// values fall back to zero so a bad deploy degrades to free shipping
// instead of refusing orders.
func (c CheckoutConfig) ShippingFeeAmount() decimal.Decimal {
	return parseAmount(c.ShippingFee)
}

// FreeShippingThresholdAmount parses the subtotal at which shipping
// becomes free.
func (c CheckoutConfig) FreeShippingThresholdAmount() decimal.Decimal {
	return parseAmount(c.FreeShippingThreshold)
}

func parseAmount(raw string) decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

type CatalogConfig struct {
	BrowseTimeout time.Duration `envconfig:"URBANKART_CATALOG_BROWSE_TIMEOUT" default:"8s"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"URBANKART_CRON_TICK_INTERVAL" default:"1m"`
	ReaperBatch  int           `envconfig:"URBANKART_CRON_REAPER_BATCH" default:"100"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
