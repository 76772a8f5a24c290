package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SPOTRESERVE_DB_DSN"
	EnvDBHost = "SPOTRESERVE_DB_HOST"
	EnvDBUser = "SPOTRESERVE_DB_USER"
	EnvDBName = "SPOTRESERVE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Booking      BookingConfig
	CinetPay     CinetPayConfig
	Sweep        SweepConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SPOTRESERVE_APP_ENV" required:"true"`
	Port         string `envconfig:"SPOTRESERVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SPOTRESERVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPOTRESERVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SPOTRESERVE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SPOTRESERVE_DB_DSN"`
	Driver string `envconfig:"SPOTRESERVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPOTRESERVE_DB_HOST"`
	LegacyPort     int    `envconfig:"SPOTRESERVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPOTRESERVE_DB_USER"`
	LegacyPassword string `envconfig:"SPOTRESERVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPOTRESERVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPOTRESERVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPOTRESERVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPOTRESERVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPOTRESERVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPOTRESERVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPOTRESERVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPOTRESERVE_REDIS_ADDR"`
	Password     string        `envconfig:"SPOTRESERVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPOTRESERVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPOTRESERVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPOTRESERVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPOTRESERVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPOTRESERVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPOTRESERVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BookingConfig tunes the booking admission and settlement engine.
type BookingConfig struct {
	SlotGranularityMinutes int           `envconfig:"SPOTRESERVE_SLOT_GRANULARITY_MINUTES" default:"30"`
	PlatformFeePercent     string        `envconfig:"SPOTRESERVE_PLATFORM_FEE_PERCENT" default:"5"`
	HoldTTL                time.Duration `envconfig:"SPOTRESERVE_HOLD_TTL" default:"10m"`
	Currency               string        `envconfig:"SPOTRESERVE_CURRENCY" default:"XOF"`
}

// CinetPayConfig carries the payment provider credentials and endpoints.
type CinetPayConfig struct {
	BaseURL         string        `envconfig:"SPOTRESERVE_CINETPAY_BASE_URL" default:"https://api-checkout.cinetpay.com/v2"`
	TransferBaseURL string        `envconfig:"SPOTRESERVE_CINETPAY_TRANSFER_BASE_URL" default:"https://client.cinetpay.com/v1"`
	APIKey          string        `envconfig:"SPOTRESERVE_CINETPAY_API_KEY"`
	SiteID          string        `envconfig:"SPOTRESERVE_CINETPAY_SITE_ID"`
	TransferLogin   string        `envconfig:"SPOTRESERVE_CINETPAY_TRANSFER_LOGIN"`
	TransferSecret  string        `envconfig:"SPOTRESERVE_CINETPAY_TRANSFER_SECRET"`
	Timeout         time.Duration `envconfig:"SPOTRESERVE_CINETPAY_TIMEOUT" default:"10s"`
}

// SweepConfig drives the periodic payout and booking-completion worker.
type SweepConfig struct {
	Interval        time.Duration `envconfig:"SPOTRESERVE_SWEEP_INTERVAL" default:"1m"`
	PayoutBatchSize int           `envconfig:"SPOTRESERVE_SWEEP_PAYOUT_BATCH_SIZE" default:"25"`
	LockTTL         time.Duration `envconfig:"SPOTRESERVE_SWEEP_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPOTRESERVE_AUTO_MIGRATE" default:"false"`
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
