package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "TRADEDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "TRADEDESK_APP_ENV"
	EnvPort         = "TRADEDESK_APP_PORT"
	EnvDBDSN        = "TRADEDESK_DB_DSN"
	EnvDBHost       = "TRADEDESK_DB_HOST"
	EnvDBPort       = "TRADEDESK_DB_PORT"
	EnvDBUser       = "TRADEDESK_DB_USER"
	EnvDBPassword   = "TRADEDESK_DB_PASSWORD"
	EnvDBName       = "TRADEDESK_DB_NAME"
	EnvRedisURL     = "TRADEDESK_REDIS_URL"
	EnvJWTSecret    = "TRADEDESK_JWT_SECRET"
	EnvJWTIssuer    = "TRADEDESK_JWT_ISSUER"
	EnvJWTExpMins   = "TRADEDESK_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite    = "TRADEDESK_USE_SQLITE"
	EnvAdminEmail   = "TRADEDESK_ADMIN_EMAIL"
	EnvCronSchedule = "TRADEDESK_CRON_SCHEDULE"
)
