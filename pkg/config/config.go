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
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Razorpay     RazorpayConfig
	Checkout     CheckoutConfig
	SMTP         SMTPConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Razorpay.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"ANGELS_APP_ENV" required:"true"`
	Port          string `envconfig:"ANGELS_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"ANGELS_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"ANGELS_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"ANGELS_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ANGELS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ANGELS_DB_DSN"`
	Driver string `envconfig:"ANGELS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ANGELS_DB_HOST"`
	LegacyPort     int    `envconfig:"ANGELS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ANGELS_DB_USER"`
	LegacyPassword string `envconfig:"ANGELS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ANGELS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ANGELS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ANGELS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ANGELS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ANGELS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ANGELS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ANGELS_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL                string        `envconfig:"ANGELS_REDIS_URL" required:"true"`
	Address            string        `envconfig:"ANGELS_REDIS_ADDR"`
	Password           string        `envconfig:"ANGELS_REDIS_PASSWORD"`
	DB                 int           `envconfig:"ANGELS_REDIS_DB" default:"0"`
	PoolSize           int           `envconfig:"ANGELS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns       int           `envconfig:"ANGELS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout        time.Duration `envconfig:"ANGELS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout        time.Duration `envconfig:"ANGELS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout       time.Duration `envconfig:"ANGELS_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL     time.Duration `envconfig:"ANGELS_REDIS_IDEMPOTENCY_TTL" default:"24h"`
	RateLimitPerMinute int           `envconfig:"ANGELS_RATE_LIMIT_PER_MINUTE" default:"120"`
}

// JWTConfig holds the verification side only; tokens are minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"ANGELS_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ANGELS_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AllowDevMigrations bool `envconfig:"ANGELS_ALLOW_DEV_MIGRATIONS" default:"true"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"ANGELS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookDedupTTL        time.Duration `envconfig:"ANGELS_WEBHOOK_DEDUP_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ANGELS_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"ANGELS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"ANGELS_PUBSUB_ORDERS_TOPIC" default:"ap-order-events"`
	NotificationTopic        string `envconfig:"ANGELS_PUBSUB_NOTIFICATION_TOPIC" default:"ap-notification-events"`
	NotificationSubscription string `envconfig:"ANGELS_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"ap-notification-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ANGELS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ANGELS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ANGELS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type RazorpayConfig struct {
	KeyID           string        `envconfig:"ANGELS_RAZORPAY_KEY_ID"`
	KeySecret       string        `envconfig:"ANGELS_RAZORPAY_KEY_SECRET"`
	WebhookSecret   string        `envconfig:"ANGELS_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL         string        `envconfig:"ANGELS_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Currency        string        `envconfig:"ANGELS_RAZORPAY_CURRENCY" default:"INR"`
	MinAmountPaise  int64         `envconfig:"ANGELS_RAZORPAY_MIN_AMOUNT_PAISE" default:"100"`
	MaxAmountPaise  int64         `envconfig:"ANGELS_RAZORPAY_MAX_AMOUNT_PAISE" default:"50000000"`
	ConnectTimeout  time.Duration `envconfig:"ANGELS_RAZORPAY_CONNECT_TIMEOUT" default:"5s"`
	RequestTimeout  time.Duration `envconfig:"ANGELS_RAZORPAY_REQUEST_TIMEOUT" default:"15s"`
	StatusRetries   uint64        `envconfig:"ANGELS_RAZORPAY_STATUS_RETRIES" default:"2"`
	BreakerFailures uint32        `envconfig:"ANGELS_RAZORPAY_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"ANGELS_RAZORPAY_BREAKER_COOLDOWN" default:"30s"`
}

func (r RazorpayConfig) validate() error {
	if r.MinAmountPaise <= 0 {
		return fmt.Errorf("razorpay minimum amount must be positive")
	}
	if r.MaxAmountPaise < r.MinAmountPaise {
		return fmt.Errorf("razorpay maximum amount %d below minimum %d", r.MaxAmountPaise, r.MinAmountPaise)
	}
	return nil
}

// Configured reports whether API credentials were supplied.
func (r RazorpayConfig) Configured() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

type CheckoutConfig struct {
	TaxRate           decimal.Decimal `envconfig:"ANGELS_CHECKOUT_TAX_RATE" default:"0.18"`
	ShippingFee       decimal.Decimal `envconfig:"ANGELS_CHECKOUT_SHIPPING_FEE" default:"99.00"`
	DefaultCountry    string          `envconfig:"ANGELS_CHECKOUT_DEFAULT_COUNTRY" default:"India"`
	OrderNumberPrefix string          `envconfig:"ANGELS_CHECKOUT_ORDER_PREFIX" default:"ORD"`
	PendingOrderTTL   time.Duration   `envconfig:"ANGELS_CHECKOUT_PENDING_ORDER_TTL" default:"2h"`
	ConfirmationPath  string          `envconfig:"ANGELS_CHECKOUT_CONFIRMATION_PATH" default:"/orders/%s/confirmation"`
	OrderDetailPath   string          `envconfig:"ANGELS_CHECKOUT_ORDER_DETAIL_PATH" default:"/orders/%s"`
	CheckoutErrorPath string          `envconfig:"ANGELS_CHECKOUT_ERROR_PATH" default:"/checkout"`
}

func (c CheckoutConfig) validate() error {
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("checkout tax rate %s out of range", c.TaxRate)
	}
	if c.ShippingFee.IsNegative() {
		return fmt.Errorf("checkout shipping fee cannot be negative")
	}
	return nil
}

type SMTPConfig struct {
	Host      string `envconfig:"ANGELS_SMTP_HOST"`
	Port      int    `envconfig:"ANGELS_SMTP_PORT" default:"587"`
	Username  string `envconfig:"ANGELS_SMTP_USERNAME"`
	Password  string `envconfig:"ANGELS_SMTP_PASSWORD"`
	From      string `envconfig:"ANGELS_SMTP_FROM" default:"orders@angelsplants.in"`
	StoreName string `envconfig:"ANGELS_STORE_NAME" default:"Angel's Plants"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"ANGELS_CRON_INTERVAL" default:"5m"`
	LockTTL         time.Duration `envconfig:"ANGELS_CRON_LOCK_TTL" default:"4m"`
	ExpireBatchSize int           `envconfig:"ANGELS_CRON_EXPIRE_BATCH_SIZE" default:"100"`
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
