package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is read from environment variables, optionally seeded by a .env
// file in the working directory. Environment variables win.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Redis    RedisConfig
	Identity IdentityConfig
	Jobs     JobsConfig
	Export   ExportConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	LogLevel string
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
}

// RedisConfig enables the customer lookup cache when Addr is set.
type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	CustomerCacheTTL time.Duration
}

// IdentityConfig selects how identity tokens are verified: against the keys
// at JWKSURL when set, otherwise with the shared JWTSecret.
type IdentityConfig struct {
	JWTSecret string
	JWKSURL   string
	IDToken   string // raw token, or @path to read it from a file
}

type JobsConfig struct {
	SmokeInterval time.Duration
}

// ExportConfig enables upload of exports when MinioEndpoint is set.
type ExportConfig struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	Bucket         string
}

// Load reads the configuration.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(v.GetString("STORE_DRIVER")),
			DatabaseURL: v.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:             v.GetString("REDIS_ADDR"),
			Password:         v.GetString("REDIS_PASSWORD"),
			DB:               v.GetInt("REDIS_DB"),
			CustomerCacheTTL: v.GetDuration("CUSTOMER_CACHE_TTL"),
		},
		Identity: IdentityConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			JWKSURL:   v.GetString("JWKS_URL"),
			IDToken:   v.GetString("ID_TOKEN"),
		},
		Jobs: JobsConfig{
			SmokeInterval: v.GetDuration("SMOKE_INTERVAL"),
		},
		Export: ExportConfig{
			MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
			MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
			MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:         v.GetString("EXPORT_BUCKET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CUSTOMER_CACHE_TTL", "10m")
	v.SetDefault("SMOKE_INTERVAL", "15m")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("EXPORT_BUCKET", "relatorios")
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required with STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Identity.JWTSecret == "" && c.Identity.JWKSURL == "" {
		return fmt.Errorf("config: one of JWT_SECRET or JWKS_URL is required")
	}
	if c.Jobs.SmokeInterval <= 0 {
		return fmt.Errorf("config: SMOKE_INTERVAL must be positive")
	}
	return nil
}
