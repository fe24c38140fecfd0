package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string        `env:"PORT,           default=8080"`
	Env           string        `env:"ENV,            default=development"`
	JWTSecret     string        `env:"JWT_SECRET"`
	LogLevel      string        `env:"LOG_LEVEL,      default=info"`
	VendorTimeout time.Duration `env:"VENDOR_TIMEOUT, default=15s"`
	DefaultVendor string        `env:"DEFAULT_VENDOR, default=mt01"`
	AuditWorkers  int           `env:"AUDIT_WORKERS,  default=2"`

	Mongo  MongoConfig
	Mt01   FindtagConfig
	Mt02   BRGPSConfig
	WebTag WebTagConfig
}

// MongoConfig is optional; an empty URI disables the lookup audit trail.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=tag_position"`
}

type FindtagConfig struct {
	APIKey    string `env:"MT01_API_KEY"`
	APISecret string `env:"MT01_API_SECRET"`
	BaseURL   string `env:"MT01_API_BASE_URL, default=https://server.findtaq.top/fit/openapi/devicedata/v1"`
}

type BRGPSConfig struct {
	Token   string `env:"BRGPS_API_TOKEN"`
	BaseURL string `env:"BRGPS_API_BASE_URL"`
}

type WebTagConfig struct {
	Username string `env:"WEBTAG_USERNAME"`
	Password string `env:"WEBTAG_PASSWORD"`
	BaseURL  string `env:"WEBTAG_BASE_URL"`
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from l. Vendor credentials are not
// validated here; a vendor with missing settings is disabled at startup.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if cfg.VendorTimeout <= 0 {
		return nil, fmt.Errorf("VENDOR_TIMEOUT must be positive, got %s", cfg.VendorTimeout)
	}
	if cfg.AuditWorkers <= 0 {
		return nil, fmt.Errorf("AUDIT_WORKERS must be positive, got %d", cfg.AuditWorkers)
	}
	return &cfg, nil
}
