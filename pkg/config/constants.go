package config

// EnvPrefix namespaces every variable read by envconfig.
const EnvPrefix = "ANGELS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "ANGELS_APP_ENV"
	EnvPort          = "ANGELS_APP_PORT"
	EnvLogLevel      = "ANGELS_LOG_LEVEL"
	EnvPublicBaseURL = "ANGELS_PUBLIC_BASE_URL"

	EnvDBDSN      = "ANGELS_DB_DSN"
	EnvDBHost     = "ANGELS_DB_HOST"
	EnvDBUser     = "ANGELS_DB_USER"
	EnvDBName     = "ANGELS_DB_NAME"
	EnvDBPassword = "ANGELS_DB_PASSWORD"

	EnvRedisURL = "ANGELS_REDIS_URL"

	EnvJWTSecret = "ANGELS_JWT_SECRET"
	EnvJWTIssuer = "ANGELS_JWT_ISSUER"

	EnvGCPProjectID            = "ANGELS_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic       = "ANGELS_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationTopic = "ANGELS_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "ANGELS_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvRazorpayKeyID         = "ANGELS_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "ANGELS_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "ANGELS_RAZORPAY_WEBHOOK_SECRET"

	EnvCheckoutTaxRate     = "ANGELS_CHECKOUT_TAX_RATE"
	EnvCheckoutShippingFee = "ANGELS_CHECKOUT_SHIPPING_FEE"
	EnvCheckoutPendingTTL  = "ANGELS_CHECKOUT_PENDING_ORDER_TTL"

	EnvSMTPHost = "ANGELS_SMTP_HOST"
	EnvSMTPFrom = "ANGELS_SMTP_FROM"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
