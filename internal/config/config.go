package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Policy store backends.
const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	AppEnv    string
	Debug     bool
	Version   string
	BotToken  string
	SentryDSN string

	LogLevel        string
	LogFormat       string
	DefaultLanguage string

	PolicyStore     string
	MongoDBURI      string
	MongoDBDatabase string
	SQLitePath      string
	MySQLDSN        string

	CacheExpiration    time.Duration
	CacheSweepInterval time.Duration
	CacheTextCapacity  int
	CacheMediaCapacity int
	CacheMediaMaxBytes int
	SuppressionWindow  time.Duration
	PolicyCacheTTL     time.Duration
	MediaFetchTimeout  time.Duration
	SendRatePerSecond  int
	LinkModeration     bool
	AdminCacheTTL      time.Duration
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("VERSION", "dev")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DEFAULT_LANGUAGE", "en")

	v.SetDefault("POLICY_STORE", StoreMongo)
	v.SetDefault("MONGODB_DATABASE", "antidelete")
	v.SetDefault("SQLITE_PATH", "antidelete.db")

	v.SetDefault("CACHE_EXPIRATION", 30*time.Minute)
	v.SetDefault("CACHE_SWEEP_INTERVAL", time.Minute)
	v.SetDefault("CACHE_TEXT_CAPACITY", 5000)
	v.SetDefault("CACHE_MEDIA_CAPACITY", 200)
	v.SetDefault("CACHE_MEDIA_MAX_BYTES", 20<<20)
	v.SetDefault("SUPPRESSION_WINDOW", 5*time.Minute)
	v.SetDefault("POLICY_CACHE_TTL", 30*time.Second)
	v.SetDefault("MEDIA_FETCH_TIMEOUT", 20*time.Second)
	v.SetDefault("SEND_RATE_PER_SECOND", 20)
	v.SetDefault("LINK_MODERATION", false)
	v.SetDefault("ADMIN_CACHE_TTL", 5*time.Minute)
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()
	return FromViper(NewViper())
}

// NewViper creates a Viper instance with defaults bound to the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// FromViper builds and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:    v.GetString("APP_ENV"),
		Debug:     v.GetBool("DEBUG"),
		Version:   v.GetString("VERSION"),
		BotToken:  v.GetString("TELEGRAM_BOT_TOKEN"),
		SentryDSN: v.GetString("SENTRY_DSN"),

		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		DefaultLanguage: v.GetString("DEFAULT_LANGUAGE"),

		PolicyStore:     strings.ToLower(v.GetString("POLICY_STORE")),
		MongoDBURI:      v.GetString("MONGODB_URI"),
		MongoDBDatabase: v.GetString("MONGODB_DATABASE"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
		MySQLDSN:        v.GetString("MYSQL_DSN"),

		CacheExpiration:    v.GetDuration("CACHE_EXPIRATION"),
		CacheSweepInterval: v.GetDuration("CACHE_SWEEP_INTERVAL"),
		CacheTextCapacity:  v.GetInt("CACHE_TEXT_CAPACITY"),
		CacheMediaCapacity: v.GetInt("CACHE_MEDIA_CAPACITY"),
		CacheMediaMaxBytes: v.GetInt("CACHE_MEDIA_MAX_BYTES"),
		SuppressionWindow:  v.GetDuration("SUPPRESSION_WINDOW"),
		PolicyCacheTTL:     v.GetDuration("POLICY_CACHE_TTL"),
		MediaFetchTimeout:  v.GetDuration("MEDIA_FETCH_TIMEOUT"),
		SendRatePerSecond:  v.GetInt("SEND_RATE_PER_SECOND"),
		LinkModeration:     v.GetBool("LINK_MODERATION"),
		AdminCacheTTL:      v.GetDuration("ADMIN_CACHE_TTL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	switch c.PolicyStore {
	case StoreMongo:
		if c.MongoDBURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo policy store")
		}
		if c.MongoDBDatabase == "" {
			return fmt.Errorf("MONGODB_DATABASE is required for the mongo policy store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite policy store")
		}
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql policy store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown POLICY_STORE %q", c.PolicyStore)
	}
	if c.CacheExpiration <= 0 {
		return fmt.Errorf("CACHE_EXPIRATION must be positive, got %s", c.CacheExpiration)
	}
	if c.CacheSweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be positive, got %s", c.CacheSweepInterval)
	}
	if c.CacheTextCapacity < 0 || c.CacheMediaCapacity < 0 || c.CacheMediaMaxBytes < 0 {
		return fmt.Errorf("cache capacities must not be negative")
	}
	if c.SuppressionWindow <= 0 {
		return fmt.Errorf("SUPPRESSION_WINDOW must be positive, got %s", c.SuppressionWindow)
	}
	if c.SendRatePerSecond <= 0 {
		return fmt.Errorf("SEND_RATE_PER_SECOND must be positive, got %d", c.SendRatePerSecond)
	}
	return nil
}
