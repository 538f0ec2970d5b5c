package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	Env      string `env:"APP_ENV" envDefault:"development"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURL    string `env:"MONGO_URL"`
	MongoDB     string `env:"MONGO_DB" envDefault:"uikit_store"`
	SeedCatalog bool   `env:"SEED_CATALOG" envDefault:"false"`

	RedisURL      string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	JWTSecret     string        `env:"JWT_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionIdle   time.Duration `env:"SESSION_IDLE" envDefault:"30m"`

	BotToken     string        `env:"BOT_TOKEN"`
	AdminGroupID int64         `env:"ADMIN_GROUP_ID"`
	InitDataTTL  time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`

	PaymentContact     string `env:"PAYMENT_CONTACT" envDefault:"MittelyPay"`
	DownloadBaseURL    string `env:"DOWNLOAD_BASE_URL" envDefault:"/downloads"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	DigestSchedule string `env:"DIGEST_SCHEDULE" envDefault:"@every 6h"`
	EvictSchedule  string `env:"EVICT_SCHEDULE" envDefault:"@every 10m"`
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.IsProduction() && c.anyOrigin() {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins in production")
	}
	return nil
}

// anyOrigin reports whether the CORS setting admits every origin.
func (c *Config) anyOrigin() bool {
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return true
		}
		if o != "" {
			return false
		}
	}
	return true
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
