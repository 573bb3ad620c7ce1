package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SAYYARA_DB_DSN"
	EnvDBHost = "SAYYARA_DB_HOST"
	EnvDBUser = "SAYYARA_DB_USER"
	EnvDBName = "SAYYARA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Bidding      BiddingConfig
	Moyasar      MoyasarConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Expiry       ExpiryConfig
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
	Env          string `envconfig:"SAYYARA_APP_ENV" required:"true"`
	Port         string `envconfig:"SAYYARA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SAYYARA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAYYARA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SAYYARA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SAYYARA_DB_DSN"`
	Driver string `envconfig:"SAYYARA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SAYYARA_DB_HOST"`
	LegacyPort     int    `envconfig:"SAYYARA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SAYYARA_DB_USER"`
	LegacyPassword string `envconfig:"SAYYARA_DB_PASSWORD"`
	LegacyName     string `envconfig:"SAYYARA_DB_NAME"`
	LegacySSLMode  string `envconfig:"SAYYARA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAYYARA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAYYARA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAYYARA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAYYARA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAYYARA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SAYYARA_REDIS_ADDR"`
	Password     string        `envconfig:"SAYYARA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAYYARA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAYYARA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAYYARA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAYYARA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAYYARA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAYYARA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SAYYARA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SAYYARA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SAYYARA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// BiddingConfig holds the marketplace pricing rules.
type BiddingConfig struct {
	// Commitment fee in whole SAR. The Moyasar hosted page charges this
	// amount in halalas (x100).
	CommitmentFeeSAR  int64         `envconfig:"SAYYARA_BIDDING_COMMITMENT_FEE_SAR" default:"500"`
	BidTTL            time.Duration `envconfig:"SAYYARA_BIDDING_TTL" default:"48h"`
	DealPaymentWindow time.Duration `envconfig:"SAYYARA_BIDDING_DEAL_PAYMENT_WINDOW" default:"168h"`
	LeaderboardLimit  int           `envconfig:"SAYYARA_BIDDING_LEADERBOARD_LIMIT" default:"5"`
}

// CommitmentFee returns the fixed fee in major units.
func (b BiddingConfig) CommitmentFee() decimal.Decimal {
	return decimal.NewFromInt(b.CommitmentFeeSAR)
}

// CommitmentFeeMinor returns the fixed fee in halalas, the unit the
// payment gateway reports.
func (b BiddingConfig) CommitmentFeeMinor() int64 {
	return b.CommitmentFeeSAR * 100
}

type MoyasarConfig struct {
	SecretKey string        `envconfig:"SAYYARA_MOYASAR_SECRET_KEY"`
	BaseURL   string        `envconfig:"SAYYARA_MOYASAR_BASE_URL" default:"https://api.moyasar.com"`
	Currency  string        `envconfig:"SAYYARA_MOYASAR_CURRENCY" default:"SAR"`
	Timeout   time.Duration `envconfig:"SAYYARA_MOYASAR_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SAYYARA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SAYYARA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"SAYYARA_PUBSUB_EVENTS_TOPIC" default:"sayyara-domain-events"`
	EventsSubscription string `envconfig:"SAYYARA_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SAYYARA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SAYYARA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SAYYARA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ExpiryConfig drives the pending-bid expiry sweep worker.
type ExpiryConfig struct {
	SweepInterval time.Duration `envconfig:"SAYYARA_EXPIRY_SWEEP_INTERVAL" default:"1m"`
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
