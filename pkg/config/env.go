package config

const (
	EnvPrefix = "GYMDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:gymdesk.db?_foreign_keys=on"

	EnvAppEnv      = "GYMDESK_APP_ENV"
	EnvPort        = "GYMDESK_APP_PORT"
	EnvLogLevel    = "GYMDESK_LOG_LEVEL"
	EnvCORSOrigins = "GYMDESK_CORS_ALLOWED_ORIGINS"

	EnvDBDSN    = "GYMDESK_DB_DSN"
	EnvDBDriver = "GYMDESK_DB_DRIVER"
	EnvDBHost   = "GYMDESK_DB_HOST"
	EnvDBPort   = "GYMDESK_DB_PORT"
	EnvDBUser   = "GYMDESK_DB_USER"
	EnvDBPass   = "GYMDESK_DB_PASSWORD"
	EnvDBName   = "GYMDESK_DB_NAME"

	EnvRedisURL = "GYMDESK_REDIS_URL"

	EnvJWTSecret  = "GYMDESK_JWT_SECRET"
	EnvJWTIssuer  = "GYMDESK_JWT_ISSUER"
	EnvJWTExpMins = "GYMDESK_JWT_EXPIRATION_MINUTES"

	EnvLicensePrivateKey        = "GYMDESK_LICENSE_PRIVATE_KEY"
	EnvLicensePublicKey         = "GYMDESK_LICENSE_PUBLIC_KEY"
	EnvLicenseIssuanceEnabled   = "GYMDESK_LICENSE_ISSUANCE_ENABLED"
	EnvLicenseRollbackSeed      = "GYMDESK_LICENSE_ROLLBACK_SEED_ON_REJECT"
	EnvLicenseDefaultOwnerPass  = "GYMDESK_LICENSE_DEFAULT_OWNER_PASSWORD"
	EnvRateLimitActivateIPLimit = "GYMDESK_RATE_LIMIT_ACTIVATE_IP_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
