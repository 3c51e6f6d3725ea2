package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Square      SquareConfig
	Disputes    DisputesConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
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
	Env          string `envconfig:"TIANGUIS_APP_ENV" required:"true"`
	Port         string `envconfig:"TIANGUIS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIANGUIS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIANGUIS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIANGUIS_DB_DSN"`
	Driver string `envconfig:"TIANGUIS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TIANGUIS_DB_HOST"`
	LegacyPort     int    `envconfig:"TIANGUIS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TIANGUIS_DB_USER"`
	LegacyPassword string `envconfig:"TIANGUIS_DB_PASSWORD"`
	LegacyName     string `envconfig:"TIANGUIS_DB_NAME"`
	LegacySSLMode  string `envconfig:"TIANGUIS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIANGUIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIANGUIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIANGUIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIANGUIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"TIANGUIS_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIANGUIS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIANGUIS_REDIS_ADDR"`
	Password     string        `envconfig:"TIANGUIS_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIANGUIS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIANGUIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIANGUIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIANGUIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIANGUIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIANGUIS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TIANGUIS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TIANGUIS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TIANGUIS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"TIANGUIS_SQUARE_ACCESS_TOKEN" required:"true"`
	Env           string `envconfig:"TIANGUIS_SQUARE_ENV" default:"sandbox"`
	Currency      string `envconfig:"TIANGUIS_SQUARE_CURRENCY" default:"USD"`
	WebhookSecret string `envconfig:"TIANGUIS_SQUARE_WEBHOOK_SECRET"`

	RefundTimeout time.Duration `envconfig:"TIANGUIS_SQUARE_REFUND_TIMEOUT" default:"60s"`
	VerifyTimeout time.Duration `envconfig:"TIANGUIS_SQUARE_VERIFY_TIMEOUT" default:"15s"`
	VerifyRetries int           `envconfig:"TIANGUIS_SQUARE_VERIFY_RETRIES" default:"2"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type DisputesConfig struct {
	// Window is how long after delivery a buyer may open a dispute on their own.
	Window time.Duration `envconfig:"TIANGUIS_DISPUTE_WINDOW" default:"48h"`
}

type RateLimitConfig struct {
	DisputeWindow    time.Duration `envconfig:"TIANGUIS_RATE_LIMIT_DISPUTE_WINDOW" default:"1m"`
	DisputeLimit     int           `envconfig:"TIANGUIS_RATE_LIMIT_DISPUTE_LIMIT" default:"5"`
	DisputeMsgWindow time.Duration `envconfig:"TIANGUIS_RATE_LIMIT_DISPUTE_MSG_WINDOW" default:"1m"`
	DisputeMsgLimit  int           `envconfig:"TIANGUIS_RATE_LIMIT_DISPUTE_MSG_LIMIT" default:"20"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"TIANGUIS_IDEMPOTENCY_TTL" default:"24h"`
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
