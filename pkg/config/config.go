package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	License      LicenseConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
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
	if err := cfg.App.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadJWT reads only the access token settings, for tools that mint tokens
// without touching the database.
func LoadJWT() (JWTConfig, error) {
	var cfg JWTConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return JWTConfig{}, fmt.Errorf("parsing jwt config: %w", err)
	}
	return cfg, nil
}

type AppConfig struct {
	Env                string        `envconfig:"GYMDESK_APP_ENV" required:"true"`
	Port               string        `envconfig:"GYMDESK_APP_PORT" default:"8080"`
	LogLevel           string        `envconfig:"GYMDESK_LOG_LEVEL" default:"info"`
	LogWarnStack       bool          `envconfig:"GYMDESK_LOG_WARN_STACK" default:"false"`
	CORSAllowedOrigins []string      `envconfig:"GYMDESK_CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `envconfig:"GYMDESK_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// validate rejects a wildcard origin in prod, where CORS allows credentials.
func (a AppConfig) validate() error {
	if !a.IsProd() {
		return nil
	}
	for _, origin := range a.CORSAllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			return fmt.Errorf("%s must list explicit origins in prod", EnvCORSOrigins)
		}
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"GYMDESK_DB_DSN"`
	Driver string `envconfig:"GYMDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GYMDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"GYMDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GYMDESK_DB_USER"`
	LegacyPassword string `envconfig:"GYMDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"GYMDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"GYMDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GYMDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GYMDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GYMDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GYMDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GYMDESK_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	return driver == DriverSQLite || driver == "sqlite3"
}

// RedisConfig is optional; an empty URL and address disables Redis-backed features.
type RedisConfig struct {
	URL          string        `envconfig:"GYMDESK_REDIS_URL"`
	Address      string        `envconfig:"GYMDESK_REDIS_ADDR"`
	Password     string        `envconfig:"GYMDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"GYMDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GYMDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GYMDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GYMDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GYMDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GYMDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig covers the HS256 access tokens presented on admin routes.
type JWTConfig struct {
	Secret            string `envconfig:"GYMDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GYMDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GYMDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GYMDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GYMDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GYMDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GYMDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GYMDESK_ARGON_KEY_LEN" default:"32"`
}

// LicenseConfig holds the license signing material and activation policy.
// Keys may be inline PEM (optionally with literal "\n" escapes) or a file path.
type LicenseConfig struct {
	PrivateKey           string        `envconfig:"GYMDESK_LICENSE_PRIVATE_KEY"`
	PublicKey            string        `envconfig:"GYMDESK_LICENSE_PUBLIC_KEY" required:"true"`
	Issuer               string        `envconfig:"GYMDESK_LICENSE_ISSUER" default:"gymdesk"`
	IssuanceEnabled      bool          `envconfig:"GYMDESK_LICENSE_ISSUANCE_ENABLED" default:"true"`
	DefaultOwnerPassword string        `envconfig:"GYMDESK_LICENSE_DEFAULT_OWNER_PASSWORD"`
	RollbackSeedOnReject bool          `envconfig:"GYMDESK_LICENSE_ROLLBACK_SEED_ON_REJECT" default:"false"`
	ActivationLockTTL    time.Duration `envconfig:"GYMDESK_LICENSE_ACTIVATION_LOCK_TTL" default:"30s"`
}

type RateLimitConfig struct {
	ActivateWindow  time.Duration `envconfig:"GYMDESK_RATE_LIMIT_ACTIVATE_WINDOW" default:"1m"`
	ActivateIPLimit int           `envconfig:"GYMDESK_RATE_LIMIT_ACTIVATE_IP_LIMIT" default:"10"`
	ValidateWindow  time.Duration `envconfig:"GYMDESK_RATE_LIMIT_VALIDATE_WINDOW" default:"1m"`
	ValidateIPLimit int           `envconfig:"GYMDESK_RATE_LIMIT_VALIDATE_IP_LIMIT" default:"60"`
}

// CronConfig drives cmd/cron-worker.
type CronConfig struct {
	Interval            time.Duration `envconfig:"GYMDESK_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"GYMDESK_CRON_LOCK_TTL" default:"55m"`
	LicenseExpiryWindow time.Duration `envconfig:"GYMDESK_CRON_LICENSE_EXPIRY_WINDOW" default:"336h"`
	LicenseExpiryLimit  int           `envconfig:"GYMDESK_CRON_LICENSE_EXPIRY_LIMIT" default:"500"`
	JobTimeout          time.Duration `envconfig:"GYMDESK_CRON_JOB_TIMEOUT" default:"10m"`
	RunOnce             bool          `envconfig:"GYMDESK_CRON_RUN_ONCE" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GYMDESK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
