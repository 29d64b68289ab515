package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
	}
	Log struct {
		Level    string
		Encoding string
	}
	DB struct {
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
		Path     string
		LogLevel string
	}
	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
		DB       int
	}
	NASA struct {
		APIKey    string
		NEOURL    string
		CometsURL string
		Timeout   time.Duration
	}
	Sync struct {
		WindowDays        int
		Workers           int
		Timeout           time.Duration
		SnapshotRetention time.Duration
		QueryCacheTTL     time.Duration
	}
	Workers struct {
		SyncEnabled  bool
		SyncSchedule string
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}
	Export struct {
		OutputDir string
	}
}

var defaults = map[string]any{
	"PORT":         "8080",
	"DEBUG":        false,
	"FRONTEND_URL": "http://localhost:3000",

	"LOG_LEVEL":    "info",
	"LOG_ENCODING": "json",

	"DB_DRIVER":    "postgres",
	"DB_HOST":      "localhost",
	"DB_PORT":      "5432",
	"DB_USER":      "postgres",
	"DB_PASSWORD":  "postgres",
	"DB_NAME":      "neowatch",
	"DB_SSLMODE":   "disable",
	"DB_PATH":      "./data/neowatch.db",
	"DB_LOG_LEVEL": "warn",

	"REDIS_ENABLED":  true,
	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     "6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"NASA_API_KEY":          "DEMO_KEY",
	"NASA_NEO_URL":          "https://api.nasa.gov/neo/rest/v1/feed",
	"NEAR_EARTH_COMETS_URL": "",
	"NASA_TIMEOUT":          "30s",

	"SYNC_WINDOW_DAYS":   7,
	"SYNC_WORKERS":       8,
	"SYNC_TIMEOUT":       "2m",
	"SNAPSHOT_RETENTION": "168h",
	"QUERY_CACHE_TTL":    "5m",

	"SYNC_ENABLED":  true,
	"SYNC_SCHEDULE": "0 0 */6 * * *",

	"RATE_LIMIT_RPS":   10,
	"RATE_LIMIT_BURST": 20,

	"EXPORT_OUTPUT_DIR": "./data/exports",
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file, if any, must already have been loaded by the caller.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{}

	// App
	cfg.App.Port = v.GetString("PORT")
	cfg.App.Debug = v.GetBool("DEBUG")
	cfg.App.FrontendURL = v.GetString("FRONTEND_URL")

	// Log
	cfg.Log.Level = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.Log.Encoding = strings.ToLower(v.GetString("LOG_ENCODING"))

	// DB
	cfg.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.DBName = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")
	cfg.DB.Path = v.GetString("DB_PATH")
	cfg.DB.LogLevel = strings.ToLower(v.GetString("DB_LOG_LEVEL"))

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	// NASA
	cfg.NASA.APIKey = v.GetString("NASA_API_KEY")
	cfg.NASA.NEOURL = v.GetString("NASA_NEO_URL")
	cfg.NASA.CometsURL = v.GetString("NEAR_EARTH_COMETS_URL")
	cfg.NASA.Timeout = v.GetDuration("NASA_TIMEOUT")

	// Sync
	cfg.Sync.WindowDays = v.GetInt("SYNC_WINDOW_DAYS")
	cfg.Sync.Workers = v.GetInt("SYNC_WORKERS")
	cfg.Sync.Timeout = v.GetDuration("SYNC_TIMEOUT")
	cfg.Sync.SnapshotRetention = v.GetDuration("SNAPSHOT_RETENTION")
	cfg.Sync.QueryCacheTTL = v.GetDuration("QUERY_CACHE_TTL")

	// Workers
	cfg.Workers.SyncEnabled = v.GetBool("SYNC_ENABLED")
	cfg.Workers.SyncSchedule = v.GetString("SYNC_SCHEDULE")

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = v.GetInt("RATE_LIMIT_RPS")
	cfg.RateLimit.Burst = v.GetInt("RATE_LIMIT_BURST")

	cfg.Export.OutputDir = v.GetString("EXPORT_OUTPUT_DIR")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.NASA.NEOURL == "" {
		return errors.New("NASA_NEO_URL is required")
	}
	if c.NASA.Timeout <= 0 {
		return errors.New("invalid NASA_TIMEOUT")
	}
	// The NeoWs feed rejects windows longer than 7 days.
	if c.Sync.WindowDays < 1 || c.Sync.WindowDays > 7 {
		return fmt.Errorf("SYNC_WINDOW_DAYS must be between 1 and 7, got %d", c.Sync.WindowDays)
	}
	if c.Sync.Workers < 1 {
		return errors.New("SYNC_WORKERS must be at least 1")
	}
	if c.Sync.Timeout <= 0 {
		return errors.New("invalid SYNC_TIMEOUT")
	}
	if c.Sync.SnapshotRetention < 0 {
		return errors.New("invalid SNAPSHOT_RETENTION")
	}
	if c.Workers.SyncEnabled && c.Workers.SyncSchedule == "" {
		return errors.New("SYNC_ENABLED is true but SYNC_SCHEDULE is empty")
	}
	if c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
