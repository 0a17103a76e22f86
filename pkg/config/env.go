package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// envconfig tags so the prefix only matters for untagged fields.
const EnvPrefix = "URBANKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names shared between Load, tests, and tooling.
const (
	EnvAppEnv   = "URBANKART_APP_ENV"
	EnvPort     = "URBANKART_APP_PORT"
	EnvLogLevel = "URBANKART_LOG_LEVEL"

	EnvDBDSN      = "URBANKART_DB_DSN"
	EnvDBHost     = "URBANKART_DB_HOST"
	EnvDBPort     = "URBANKART_DB_PORT"
	EnvDBUser     = "URBANKART_DB_USER"
	EnvDBPassword = "URBANKART_DB_PASSWORD"
	EnvDBName     = "URBANKART_DB_NAME"

	EnvRedisURL = "URBANKART_REDIS_URL"

	EnvJWTSecret              = "URBANKART_JWT_SECRET"
	EnvJWTIssuer              = "URBANKART_JWT_ISSUER"
	EnvJWTExpMins             = "URBANKART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "URBANKART_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "URBANKART_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "URBANKART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "URBANKART_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvRazorpayKeyID     = "URBANKART_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "URBANKART_RAZORPAY_KEY_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
