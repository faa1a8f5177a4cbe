// Package config loads runtime configuration from an optional YAML file,
// an optional .env file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// DefaultZHVIURL is the public Zillow metro ZHVI CSV (mid-tier, smoothed,
// seasonally adjusted).
const DefaultZHVIURL = "https://files.zillowstatic.com/research/public_csvs/zhvi/Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv"

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Supabase  SupabaseConfig       `yaml:"supabase"`
	Cache     CacheConfig          `yaml:"cache"`
	FRED      FREDConfig           `yaml:"fred"`
	Zillow    ZillowConfig         `yaml:"zillow"`
	Auth      AuthConfig           `yaml:"auth"`
	Scheduler SchedulerConfig      `yaml:"scheduler"`
	Logging   logger.LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT"`
	// CORSOrigins is a comma-separated allow list; "*" allows any origin.
	CORSOrigins string `yaml:"cors_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty entries.
func (s ServerConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(s.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig describes the SQL backend. An empty DSN selects a non-SQL
// backend.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	// Migrate applies the embedded schema at startup.
	Migrate         bool   `yaml:"migrate" env:"DB_MIGRATE"`
}

// SupabaseConfig points at a hosted PostgREST endpoint.
type SupabaseConfig struct {
	URL        string `yaml:"url" env:"SUPABASE_URL"`
	ServiceKey string `yaml:"service_key" env:"SUPABASE_SERVICE_ROLE_KEY"`
}

// CacheConfig controls the dashboard read cache.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// FREDConfig configures the FRED observations client.
type FREDConfig struct {
	APIKey            string `yaml:"api_key" env:"FRED_API_KEY"`
	BaseURL           string `yaml:"base_url" env:"FRED_BASE_URL"`
	RequestsPerMinute int    `yaml:"requests_per_minute" env:"FRED_REQUESTS_PER_MINUTE"`
}

// ZillowConfig configures the ZHVI import.
type ZillowConfig struct {
	URL string `yaml:"url" env:"ZILLOW_ZHVI_URL"`
}

// AuthConfig holds the shared bearer secret guarding trigger endpoints.
type AuthConfig struct {
	CronSecret string `yaml:"cron_secret" env:"CRON_SECRET"`
	// AuditFile receives privileged requests as JSON lines when set.
	AuditFile  string `yaml:"audit_file" env:"AUDIT_LOG_FILE"`
}

// SchedulerConfig controls the in-process cron runner.
type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
	SyncFRED     string `yaml:"sync_fred" env:"SYNC_FRED_SCHEDULE"`
	SyncAll      string `yaml:"sync_all" env:"SYNC_ALL_SCHEDULE"`
	JobsFilePath string `yaml:"jobs_file" env:"SCHEDULER_JOBS_FILE"`
}

// Backend names returned by Config.Backend.
const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// Backend reports which persistence layer the configuration selects.
func (c *Config) Backend() string {
	switch {
	case strings.TrimSpace(c.Database.DSN) != "":
		return BackendPostgres
	case strings.TrimSpace(c.Supabase.URL) != "":
		return BackendSupabase
	default:
		return BackendMemory
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			Migrate:         true,
		},
		Cache: CacheConfig{TTL: 5 * time.Minute},
		FRED: FREDConfig{
			BaseURL:           "https://api.stlouisfed.org/fred",
			RequestsPerMinute: 100,
		},
		Zillow: ZillowConfig{URL: DefaultZHVIURL},
		Scheduler: SchedulerConfig{
			SyncFRED: "0 9 * * *",
			SyncAll:  "30 9 * * *",
		},
		Logging: logger.LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "housing",
		},
	}
}

// Load builds configuration from CONFIG_FILE (default config/config.yaml
// when present), then .env, then the process environment.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = filepath.Join("config", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit YAML path. An empty path skips the
// file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.FRED.RequestsPerMinute < 0 {
		return fmt.Errorf("fred requests_per_minute must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Backend() == BackendSupabase && strings.TrimSpace(c.Supabase.ServiceKey) == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}
