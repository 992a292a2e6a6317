package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BLOODLINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "BLOODLINK_APP_ENV"
	EnvPort     = "BLOODLINK_APP_PORT"
	EnvDBDSN    = "BLOODLINK_DB_DSN"
	EnvDBHost   = "BLOODLINK_DB_HOST"
	EnvDBUser   = "BLOODLINK_DB_USER"
	EnvDBName   = "BLOODLINK_DB_NAME"
	EnvRedisURL = "BLOODLINK_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Fanout       FanoutConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLOODLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"BLOODLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLOODLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLOODLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLOODLINK_DB_DSN"`
	Driver string `envconfig:"BLOODLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLOODLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"BLOODLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLOODLINK_DB_USER"`
	LegacyPassword string `envconfig:"BLOODLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLOODLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLOODLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLOODLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLOODLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLOODLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLOODLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLOODLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLOODLINK_REDIS_ADDR"`
	Password     string        `envconfig:"BLOODLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLOODLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLOODLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLOODLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLOODLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLOODLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLOODLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BLOODLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BLOODLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BLOODLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"BLOODLINK_PUBSUB_NOTIFICATION_TOPIC" default:"bl-notification-events"`
}

// PushEnabled reports whether notifications should also be published to
// Pub/Sub for the mobile push pipeline.
func (p PubSubConfig) PushEnabled(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(p.NotificationTopic) != ""
}

type FanoutConfig struct {
	Concurrency int `envconfig:"BLOODLINK_FANOUT_CONCURRENCY" default:"8"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BLOODLINK_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"BLOODLINK_CRON_LOCK_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BLOODLINK_AUTO_MIGRATE" default:"false"`
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
