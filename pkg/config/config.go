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
	Frappe       FrappeConfig
	Drafts       DraftsConfig
	TargetRates  TargetRatesConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.TargetRates.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PROCUREMENT_APP_ENV" required:"true"`
	Port         string `envconfig:"PROCUREMENT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROCUREMENT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PROCUREMENT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PROCUREMENT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PROCUREMENT_DB_DSN"`
	Driver string `envconfig:"PROCUREMENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROCUREMENT_DB_HOST"`
	LegacyPort     int    `envconfig:"PROCUREMENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROCUREMENT_DB_USER"`
	LegacyPassword string `envconfig:"PROCUREMENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROCUREMENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROCUREMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROCUREMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROCUREMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROCUREMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROCUREMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROCUREMENT_REDIS_URL"`
	Address      string        `envconfig:"PROCUREMENT_REDIS_ADDR"`
	Password     string        `envconfig:"PROCUREMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROCUREMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROCUREMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROCUREMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROCUREMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROCUREMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROCUREMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// FrappeConfig points at the remote document store.
type FrappeConfig struct {
	BaseURL            string        `envconfig:"PROCUREMENT_FRAPPE_BASE_URL" required:"true"`
	APIKey             string        `envconfig:"PROCUREMENT_FRAPPE_API_KEY" required:"true"`
	APISecret          string        `envconfig:"PROCUREMENT_FRAPPE_API_SECRET" required:"true"`
	Timeout            time.Duration `envconfig:"PROCUREMENT_FRAPPE_TIMEOUT" default:"15s"`
	ProcurementDoctype string        `envconfig:"PROCUREMENT_FRAPPE_PR_DOCTYPE" default:"Procurement Requests"`
	SentBackDoctype    string        `envconfig:"PROCUREMENT_FRAPPE_SENT_BACK_DOCTYPE" default:"Sent Back Category"`
	CommentDoctype     string        `envconfig:"PROCUREMENT_FRAPPE_COMMENT_DOCTYPE" default:"Nirmaan Comments"`
}

// DraftsConfig controls local draft persistence.
type DraftsConfig struct {
	TTL            time.Duration `envconfig:"PROCUREMENT_DRAFT_TTL" default:"720h"`
	InFlightTTL    time.Duration `envconfig:"PROCUREMENT_DRAFT_INFLIGHT_TTL" default:"30s"`
	QuoteCacheSize int           `envconfig:"PROCUREMENT_QUOTE_CACHE_SIZE" default:"4096"`
}

type TargetRatesConfig struct {
	KeyMode string `envconfig:"PROCUREMENT_TARGET_RATE_KEY_MODE" default:"item_unit"`
}

// LegacyItemKey reports whether target rates are keyed by item id alone.
func (t TargetRatesConfig) LegacyItemKey() bool {
	return strings.EqualFold(strings.TrimSpace(t.KeyMode), TargetRateKeyItem)
}

func (t TargetRatesConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(t.KeyMode)) {
	case "", TargetRateKeyItemUnit, TargetRateKeyItem:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvTargetRateKeyMode, TargetRateKeyItemUnit, TargetRateKeyItem)
}

// SyncConfig drives the background target-rate import.
type SyncConfig struct {
	Interval          time.Duration `envconfig:"PROCUREMENT_SYNC_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"PROCUREMENT_SYNC_LOCK_TTL" default:"10m"`
	TargetRateDoctype string        `envconfig:"PROCUREMENT_SYNC_TARGET_RATE_DOCTYPE" default:"Target Rates"`
	PageSize          int           `envconfig:"PROCUREMENT_SYNC_PAGE_SIZE" default:"500"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PROCUREMENT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PROCUREMENT_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PROCUREMENT_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
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
