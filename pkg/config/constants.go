package config

const (
	EnvPrefix = "ACADEMIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                  = "ACADEMIA_APP_ENV"
	EnvPort                    = "ACADEMIA_APP_PORT"
	EnvDBDSN                   = "ACADEMIA_DB_DSN"
	EnvDBHost                  = "ACADEMIA_DB_HOST"
	EnvDBUser                  = "ACADEMIA_DB_USER"
	EnvDBName                  = "ACADEMIA_DB_NAME"
	EnvRedisURL                = "ACADEMIA_REDIS_URL"
	EnvJWTSecret               = "ACADEMIA_JWT_SECRET"
	EnvJWTIssuer               = "ACADEMIA_JWT_ISSUER"
	EnvJWTExpMins              = "ACADEMIA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "ACADEMIA_REFRESH_TOKEN_TTL_MINUTES"
	EnvStoreTimeout            = "ACADEMIA_STORE_TIMEOUT"
	EnvAdminEmail              = "ACADEMIA_ADMIN_EMAIL"
	EnvGeminiAPIKey            = "ACADEMIA_GEMINI_API_KEY"
	EnvCronReminderWindowHours = "ACADEMIA_CRON_REMINDER_WINDOW_HOURS"

	DefaultAdminEmail = "academiaalbert11@gmail.com"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
