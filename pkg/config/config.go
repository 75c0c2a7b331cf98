package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Sendgrid      SendgridConfig
	Notifications NotificationsConfig
	Inquiry       InquiryConfig
	Cron          CronConfig
}

// Load reads the TRADEDESK_* environment and reports every invalid setting
// at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// minProdSecret is the shortest HS256 secret accepted outside dev.
const minProdSecret = 32

func (c *Config) validate() error {
	var errs error
	if !c.FeatureFlags.UseSQLite {
		errs = multierr.Append(errs, c.DB.ensureDSN())
	}
	if c.App.IsProd() && len(c.JWT.Secret) < minProdSecret {
		errs = multierr.Append(errs, fmt.Errorf("%s must be at least %d characters in prod", EnvJWTSecret, minProdSecret))
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
		errs = multierr.Append(errs, errors.New("rate limit and window must be positive"))
	}
	if p := c.Inquiry.NumberPadding; p < 1 || p > 9 {
		errs = multierr.Append(errs, fmt.Errorf("inquiry number padding must be 1..9, got %d", p))
	}
	return errs
}

type AppConfig struct {
	Env             string        `envconfig:"TRADEDESK_APP_ENV" required:"true"`
	Port            string        `envconfig:"TRADEDESK_APP_PORT" required:"true"`
	LogLevel        string        `envconfig:"TRADEDESK_LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"TRADEDESK_LOG_FORMAT" default:"json"`
	LogWarnStack    bool          `envconfig:"TRADEDESK_LOG_WARN_STACK" default:"false"`
	PublicURL       string        `envconfig:"TRADEDESK_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins     []string      `envconfig:"TRADEDESK_CORS_ORIGINS" default:"*"`
	ReadTimeout     time.Duration `envconfig:"TRADEDESK_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"TRADEDESK_HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"TRADEDESK_HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"TRADEDESK_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
	// WorkerID names this replica in cron lock tokens; empty means hostname.
	WorkerID        string        `envconfig:"TRADEDESK_WORKER_ID"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEDESK_DB_DSN"`
	Driver string `envconfig:"TRADEDESK_DB_DRIVER" default:"postgres"`

	// Used to build DSN when it is unset.
	Host     string `envconfig:"TRADEDESK_DB_HOST"`
	Port     int    `envconfig:"TRADEDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"TRADEDESK_DB_USER"`
	Password string `envconfig:"TRADEDESK_DB_PASSWORD"`
	Name     string `envconfig:"TRADEDESK_DB_NAME"`
	SSLMode  string `envconfig:"TRADEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TRADEDESK_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEDESK_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEDESK_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TRADEDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRADEDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRADEDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRADEDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRADEDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit    int           `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"TRADEDESK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
}

// RateLimitConfig is the fixed window applied to every authenticated caller.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"TRADEDESK_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"TRADEDESK_RATE_LIMIT_LIMIT" default:"300"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"TRADEDESK_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"TRADEDESK_SQLITE_PATH" default:"tradedesk.db"`
	AutoMigrate bool   `envconfig:"TRADEDESK_AUTO_MIGRATE" default:"false"`
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"TRADEDESK_SENDGRID_API_KEY"`
	DefaultFrom string        `envconfig:"TRADEDESK_SENDGRID_FROM_EMAIL" default:"no-reply@tradedesk.local"`
	BaseURL     string        `envconfig:"TRADEDESK_SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
	Timeout     time.Duration `envconfig:"TRADEDESK_SENDGRID_TIMEOUT" default:"10s"`
}

type NotificationsConfig struct {
	AdminEmail string `envconfig:"TRADEDESK_ADMIN_EMAIL" default:"sales@tradedesk.local"`
}

type InquiryConfig struct {
	NumberPadding int           `envconfig:"TRADEDESK_INQUIRY_NUMBER_PADDING" default:"4"`
	StaleAfter    time.Duration `envconfig:"TRADEDESK_INQUIRY_STALE_AFTER" default:"2160h"`
}

type CronConfig struct {
	Schedule              string        `envconfig:"TRADEDESK_CRON_SCHEDULE" default:"@every 1h"`
	LockTTL               time.Duration `envconfig:"TRADEDESK_CRON_LOCK_TTL" default:"10m"`
	NotificationRetention time.Duration `envconfig:"TRADEDESK_NOTIFICATION_RETENTION" default:"720h"`
	UnpaidOrderTTL        time.Duration `envconfig:"TRADEDESK_UNPAID_ORDER_TTL" default:"240h"`
}

// ensureDSN assembles a postgres URL from the discrete TRADEDESK_DB_* parts
// when no DSN was given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("set %s, or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
