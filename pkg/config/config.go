package config

import "time"

// Config is the fully-resolved, validated configuration for a miniflow
// process. It is built by Manager.Load from layered Providers and accessed
// through FromContext/ContextWithConfig for the remainder of a request or
// worker lifetime.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Database   DatabaseConfig   `koanf:"database"   validate:"required"`
	Redis      RedisConfig      `koanf:"redis"`
	JWT        JWTConfig        `koanf:"jwt"`
	Encryption EncryptionConfig `koanf:"encryption" validate:"required"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// ServerConfig controls the HTTP surface (trigger intake, worker boundary).
type ServerConfig struct {
	Host           string        `koanf:"host"            validate:"required"`
	Port           int           `koanf:"port"             validate:"required,min=1,max=65535"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// DatabaseType selects the backing store driver. Only DBTypePostgres is
// implemented; the others are accepted for configuration-compatibility and
// documented as unimplemented stubs.
type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgresql"
	DBTypeSQLite   DatabaseType = "sqlite"
	DBTypeMySQL    DatabaseType = "mysql"
)

// DatabaseConfig addresses the persistent store every engine repository
// reads and writes through.
type DatabaseConfig struct {
	Type            DatabaseType  `koanf:"type"     validate:"required,oneof=postgresql sqlite mysql"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// RedisConfig is optional: a zero-value Addr disables C5's sliding-window
// counter store and the distributed claim lock, falling back to an
// in-process limiter and single-node locking.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Enabled reports whether Redis-backed components should be wired up.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// JWTConfig governs bearer-token verification for request-scoped identity.
type JWTConfig struct {
	SecretKey        string        `koanf:"secret_key" validate:"required,min=32"`
	Algorithm        string        `koanf:"algorithm"`
	AccessTokenTTL   time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `koanf:"refresh_token_ttl"`
}

// EncryptionConfig holds the master key for C2's secret box.
type EncryptionConfig struct {
	MasterKey string `koanf:"master_key" validate:"required,min=32"`
}

// RateLimitConfig holds default per-plan thresholds for C5; individual plans
// in engine/plan may override these.
type RateLimitConfig struct {
	DefaultRequestsPerMinute int `koanf:"default_requests_per_minute"`
	DefaultRequestsPerHour   int `koanf:"default_requests_per_hour"`
	DefaultRequestsPerDay    int `koanf:"default_requests_per_day"`
}

// SchedulerConfig tunes C9/C10's polling loops.
type SchedulerConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
	MinInterval  time.Duration `koanf:"min_interval"`
	MaxInterval  time.Duration `koanf:"max_interval"`
}

// MonitoringConfig governs the process-wide Prometheus meter provider and
// its /metrics scrape endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Default returns the compiled-in baseline every Provider layers on top of.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Type:            DBTypePostgres,
			Host:            "localhost",
			Port:            5432,
			User:            "miniflow",
			Name:            "miniflow",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{},
		JWT: JWTConfig{
			Algorithm:       "HS256",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			DefaultRequestsPerMinute: 60,
			DefaultRequestsPerHour:   1000,
			DefaultRequestsPerDay:    10000,
		},
		Scheduler: SchedulerConfig{
			BatchSize:    50,
			PollInterval: 250 * time.Millisecond,
			MinInterval:  50 * time.Millisecond,
			MaxInterval:  5 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
