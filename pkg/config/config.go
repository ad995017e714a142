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
	CORS          CORSConfig
	SMTP          SMTPConfig
	VAPID         VAPIDConfig
	GoogleOAuth   GoogleOAuthConfig
	Tasks         TasksConfig
	ImageProxy    ImageProxyConfig
	Cron          CronConfig
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
	Env          string `envconfig:"KOUMALE_APP_ENV" required:"true"`
	Port         string `envconfig:"KOUMALE_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"KOUMALE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"KOUMALE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"KOUMALE_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"KOUMALE_PUBLIC_URL"`
	FrontendURL  string `envconfig:"KOUMALE_FRONTEND_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KOUMALE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"KOUMALE_DB_DSN"`

	LegacyHost     string `envconfig:"KOUMALE_DB_HOST"`
	LegacyPort     int    `envconfig:"KOUMALE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KOUMALE_DB_USER"`
	LegacyPassword string `envconfig:"KOUMALE_DB_PASSWORD"`
	LegacyName     string `envconfig:"KOUMALE_DB_NAME"`
	LegacySSLMode  string `envconfig:"KOUMALE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KOUMALE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KOUMALE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KOUMALE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KOUMALE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	ConnectAttempts int           `envconfig:"KOUMALE_DB_CONNECT_ATTEMPTS" default:"5"`
	ConnectBackoff  time.Duration `envconfig:"KOUMALE_DB_CONNECT_BACKOFF" default:"2s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KOUMALE_REDIS_URL"`
	Address      string        `envconfig:"KOUMALE_REDIS_ADDR"`
	Password     string        `envconfig:"KOUMALE_REDIS_PASSWORD"`
	DB           int           `envconfig:"KOUMALE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KOUMALE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KOUMALE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KOUMALE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KOUMALE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KOUMALE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string        `envconfig:"KOUMALE_JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"KOUMALE_JWT_ISSUER" default:"koumale"`
	TTL    time.Duration `envconfig:"KOUMALE_JWT_TTL" default:"720h"`
	Leeway time.Duration `envconfig:"KOUMALE_JWT_LEEWAY" default:"30s"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KOUMALE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KOUMALE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KOUMALE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KOUMALE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KOUMALE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KOUMALE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"KOUMALE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"KOUMALE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"KOUMALE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"KOUMALE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"KOUMALE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KOUMALE_AUTO_MIGRATE" default:"false"`
	GoogleLogin bool `envconfig:"KOUMALE_FEATURE_GOOGLE_LOGIN" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"KOUMALE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAge         int      `envconfig:"KOUMALE_CORS_MAX_AGE" default:"300"`
}

type SMTPConfig struct {
	Host      string `envconfig:"KOUMALE_SMTP_HOST" default:"smtp.gmail.com"`
	Port      int    `envconfig:"KOUMALE_SMTP_PORT" default:"587"`
	User      string `envconfig:"KOUMALE_SMTP_USER"`
	Password  string `envconfig:"KOUMALE_SMTP_PASS"`
	FromName  string `envconfig:"KOUMALE_FROM_NAME" default:"KOUMALE"`
	FromEmail string `envconfig:"KOUMALE_FROM_EMAIL"`
}

// Sender returns the envelope sender, falling back to the SMTP user.
func (s SMTPConfig) Sender() string {
	if s.FromEmail != "" {
		return s.FromEmail
	}
	return s.User
}

type VAPIDConfig struct {
	PublicKey  string `envconfig:"KOUMALE_VAPID_PUBLIC_KEY"`
	PrivateKey string `envconfig:"KOUMALE_VAPID_PRIVATE_KEY"`
	Subject    string `envconfig:"KOUMALE_VAPID_SUBJECT" default:"mailto:contact@koumale.com"`
	TTLSeconds int    `envconfig:"KOUMALE_VAPID_TTL_SECONDS" default:"86400"`
}

// Enabled reports whether both VAPID keys are configured.
func (v VAPIDConfig) Enabled() bool {
	return v.PublicKey != "" && v.PrivateKey != ""
}

type GoogleOAuthConfig struct {
	ClientID     string        `envconfig:"KOUMALE_GOOGLE_CLIENT_ID"`
	ClientSecret string        `envconfig:"KOUMALE_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string        `envconfig:"KOUMALE_GOOGLE_REDIRECT_URL"`
	StateTTL     time.Duration `envconfig:"KOUMALE_GOOGLE_STATE_TTL" default:"10m"`
}

type TasksConfig struct {
	Workers   int `envconfig:"KOUMALE_TASKS_WORKERS" default:"4"`
	QueueSize int `envconfig:"KOUMALE_TASKS_QUEUE_SIZE" default:"256"`
}

type ImageProxyConfig struct {
	Timeout             time.Duration `envconfig:"KOUMALE_IMAGE_PROXY_TIMEOUT" default:"10s"`
	MaxBytes            int64         `envconfig:"KOUMALE_IMAGE_PROXY_MAX_BYTES" default:"15728640"`
	BreakerTimeout      time.Duration `envconfig:"KOUMALE_IMAGE_PROXY_BREAKER_TIMEOUT" default:"30s"`
	BreakerFailureRatio float64       `envconfig:"KOUMALE_IMAGE_PROXY_BREAKER_FAILURE_RATIO" default:"0.5"`
	BreakerMinRequests  uint32        `envconfig:"KOUMALE_IMAGE_PROXY_BREAKER_MIN_REQUESTS" default:"10"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"KOUMALE_CRON_TICK_INTERVAL" default:"30s"`
	Timezone     string        `envconfig:"KOUMALE_CRON_TIMEZONE" default:"Africa/Abidjan"`
}

// Location resolves the configured timezone, defaulting to UTC.
func (c CronConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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
