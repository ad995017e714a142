package config

const (
	EnvPrefix = "KOUMALE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "KOUMALE_APP_ENV"
	EnvPort        = "KOUMALE_APP_PORT"
	EnvDBDSN       = "KOUMALE_DB_DSN"
	EnvDBHost      = "KOUMALE_DB_HOST"
	EnvDBUser      = "KOUMALE_DB_USER"
	EnvDBName      = "KOUMALE_DB_NAME"
	EnvRedisURL    = "KOUMALE_REDIS_URL"
	EnvJWTSecret   = "KOUMALE_JWT_SECRET"
	EnvJWTTTL      = "KOUMALE_JWT_TTL"
	EnvCORSOrigins = "KOUMALE_CORS_ALLOWED_ORIGINS"
	EnvCronTZ      = "KOUMALE_CRON_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
