package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TEAMHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "TEAMHUB_APP_ENV"
	EnvPort      = "TEAMHUB_APP_PORT"
	EnvDBDSN     = "TEAMHUB_DB_DSN"
	EnvDBHost    = "TEAMHUB_DB_HOST"
	EnvDBUser    = "TEAMHUB_DB_USER"
	EnvDBName    = "TEAMHUB_DB_NAME"
	EnvRedisURL  = "TEAMHUB_REDIS_URL"
	EnvJWTSecret = "TEAMHUB_JWT_SECRET"
	EnvJWTIssuer = "TEAMHUB_JWT_ISSUER"

	EnvMealsAdminLeadDays  = "TEAMHUB_MEALS_ADMIN_LEAD_DAYS"
	EnvMealsCancelLeadDays = "TEAMHUB_MEALS_CANCEL_LEAD_DAYS"
	EnvTopUpCardNumber     = "TEAMHUB_TOPUP_CARD_NUMBER"
	EnvTopUpOwnerName      = "TEAMHUB_TOPUP_OWNER_NAME"

	EnvGCPProjectID      = "TEAMHUB_GCP_PROJECT_ID"
	EnvPubSubLedgerTopic = "TEAMHUB_PUBSUB_LEDGER_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Meals        MealsConfig
	TopUp        TopUpConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Meals.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TEAMHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"TEAMHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEAMHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEAMHUB_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"TEAMHUB_LOG_FORMAT" default:"json"`

	ShutdownTimeout time.Duration `envconfig:"TEAMHUB_APP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"TEAMHUB_DB_DSN"`

	LegacyHost     string `envconfig:"TEAMHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"TEAMHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TEAMHUB_DB_USER"`
	LegacyPassword string `envconfig:"TEAMHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"TEAMHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"TEAMHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEAMHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEAMHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEAMHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEAMHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TEAMHUB_DB_SLOW_QUERY" default:"200ms"`
}

// RedisConfig is optional; without a URL or address idempotency replay is off.
type RedisConfig struct {
	URL          string        `envconfig:"TEAMHUB_REDIS_URL"`
	Address      string        `envconfig:"TEAMHUB_REDIS_ADDRESS"`
	Password     string        `envconfig:"TEAMHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEAMHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEAMHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEAMHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEAMHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEAMHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEAMHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig holds the verification settings for tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"TEAMHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TEAMHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TEAMHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEAMHUB_AUTO_MIGRATE" default:"false"`
	Metrics     bool `envconfig:"TEAMHUB_FEATURE_METRICS" default:"true"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"TEAMHUB_RATE_LIMIT_RPS" default:"5"`
	Burst             int     `envconfig:"TEAMHUB_RATE_LIMIT_BURST" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TEAMHUB_CORS_ALLOWED_ORIGINS" default:"*"`
}

// MealsConfig carries the lead-time windows in whole days from today.
type MealsConfig struct {
	AdminLeadDays  int `envconfig:"TEAMHUB_MEALS_ADMIN_LEAD_DAYS" default:"2"`
	CancelLeadDays int `envconfig:"TEAMHUB_MEALS_CANCEL_LEAD_DAYS" default:"1"`
}

func (m MealsConfig) validate() error {
	if m.AdminLeadDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvMealsAdminLeadDays)
	}
	if m.CancelLeadDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvMealsCancelLeadDays)
	}
	return nil
}

type TopUpConfig struct {
	CardNumber string `envconfig:"TEAMHUB_TOPUP_CARD_NUMBER"`
	OwnerName  string `envconfig:"TEAMHUB_TOPUP_OWNER_NAME"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TEAMHUB_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"TEAMHUB_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	LedgerTopic string `envconfig:"TEAMHUB_PUBSUB_LEDGER_TOPIC" default:"teamhub-ledger-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TEAMHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TEAMHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TEAMHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// MetricsAddr exposes the relay's /metrics when set, e.g. ":9102".
	MetricsAddr string `envconfig:"TEAMHUB_OUTBOX_METRICS_ADDR"`
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
