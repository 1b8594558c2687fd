package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Store         StoreConfig
	Admin         AdminConfig
	Payments      PaymentsConfig
	Catalog       CatalogConfig
	Gemini        GeminiConfig
	Sendgrid      SendgridConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACADEMIA_APP_ENV" required:"true"`
	Port         string `envconfig:"ACADEMIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ACADEMIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACADEMIA_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ACADEMIA_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"ACADEMIA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ACADEMIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ACADEMIA_DB_DSN"`
	Driver string `envconfig:"ACADEMIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ACADEMIA_DB_HOST"`
	LegacyPort     int    `envconfig:"ACADEMIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ACADEMIA_DB_USER"`
	LegacyPassword string `envconfig:"ACADEMIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"ACADEMIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"ACADEMIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ACADEMIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACADEMIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACADEMIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACADEMIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ACADEMIA_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACADEMIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ACADEMIA_REDIS_ADDR"`
	Password     string        `envconfig:"ACADEMIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACADEMIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACADEMIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACADEMIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACADEMIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACADEMIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACADEMIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ACADEMIA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ACADEMIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ACADEMIA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ACADEMIA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ACADEMIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ACADEMIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ACADEMIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ACADEMIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ACADEMIA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ACADEMIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ACADEMIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ACADEMIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ACADEMIA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ACADEMIA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ACADEMIA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ChatWindow         time.Duration `envconfig:"ACADEMIA_RATE_LIMIT_CHAT_WINDOW" default:"1m"`
	ChatIPLimit        int           `envconfig:"ACADEMIA_RATE_LIMIT_CHAT_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ACADEMIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ACADEMIA_AUTO_MIGRATE" default:"false"`
}

// StoreConfig bounds every call made to the record store and the other collaborators.
type StoreConfig struct {
	Timeout time.Duration `envconfig:"ACADEMIA_STORE_TIMEOUT" default:"15s"`
}

type AdminConfig struct {
	Email string `envconfig:"ACADEMIA_ADMIN_EMAIL" default:"academiaalbert11@gmail.com"`
}

// PaymentsConfig lists the manual payment accounts shown at checkout.
type PaymentsConfig struct {
	MPesaAccount string `envconfig:"ACADEMIA_PAYMENTS_MPESA_ACCOUNT" default:"+258 844265435"`
	EMolaAccount string `envconfig:"ACADEMIA_PAYMENTS_EMOLA_ACCOUNT" default:"+258 864118493"`
	BIMAccount   string `envconfig:"ACADEMIA_PAYMENTS_BIM_ACCOUNT" default:"0001 2345 6789 (Albert)"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"ACADEMIA_CATALOG_CACHE_TTL" default:"10m"`
}

type GeminiConfig struct {
	APIKey            string        `envconfig:"ACADEMIA_GEMINI_API_KEY"`
	BaseURL           string        `envconfig:"ACADEMIA_GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model             string        `envconfig:"ACADEMIA_GEMINI_MODEL" default:"gemini-3-flash-preview"`
	SystemInstruction string        `envconfig:"ACADEMIA_GEMINI_SYSTEM_INSTRUCTION" default:"Você é o Albert, assistente da Academia Albert em Moçambique. Ajude alunos com cursos e dúvidas. Seja amigável e profissional."`
	Timeout           time.Duration `envconfig:"ACADEMIA_GEMINI_TIMEOUT" default:"15s"`
}

// Enabled reports whether an API key has been configured.
func (g GeminiConfig) Enabled() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

type SendgridConfig struct {
	APIKey      string `envconfig:"ACADEMIA_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"ACADEMIA_SENDGRID_FROM_EMAIL" default:"academiaalbert11@gmail.com"`
	FromName    string `envconfig:"ACADEMIA_SENDGRID_FROM_NAME" default:"Academia Albert"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"ACADEMIA_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"ACADEMIA_CRON_LOCK_TTL" default:"5m"`
	ReminderWindowHours int           `envconfig:"ACADEMIA_CRON_REMINDER_WINDOW_HOURS" default:"72"`
}

// ReminderWindow returns how far ahead of expiry students are reminded.
func (c CronConfig) ReminderWindow() time.Duration {
	if c.ReminderWindowHours <= 0 {
		return 0
	}
	return time.Duration(c.ReminderWindowHours) * time.Hour
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
