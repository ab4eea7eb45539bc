package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the storefront service.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int

	JWTSecret string
	JWTTTL    time.Duration

	RabbitMQURL string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	CacheTTL      time.Duration

	StripeSecretKey string
	Currency        string
	Vouchers        map[string]decimal.Decimal

	CORSOrigins     string
	ShutdownTimeout time.Duration
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "storefront.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "60m")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("VOUCHERS", "WELCOME10=10,FREESHIP=5")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Load reads configuration from an optional .env file, an optional config.yaml
// and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	vouchers, err := ParseVouchers(v.GetString("VOUCHERS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:             v.GetString("APP_ENV"),
		Port:            v.GetString("APP_PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		DBDriver:        v.GetString("DB_DRIVER"),
		DBDSN:           v.GetString("DB_DSN"),
		DBMaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTTTL:          v.GetDuration("JWT_TTL"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		RedisHost:       v.GetString("REDIS_HOST"),
		RedisPort:       v.GetInt("REDIS_PORT"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		CacheTTL:        v.GetDuration("CACHE_TTL"),
		StripeSecretKey: v.GetString("STRIPE_SECRET_KEY"),
		Currency:        strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
		Vouchers:        vouchers,
		CORSOrigins:     v.GetString("CORS_ORIGINS"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.IsProduction() && cfg.JWTSecret == "change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// ParseVouchers parses "CODE=percent,CODE2=percent" into a map of upper-cased
// codes to the discount fraction (10 becomes 0.10).
func ParseVouchers(raw string) (map[string]decimal.Decimal, error) {
	vouchers := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, pct, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid voucher %q, expected CODE=percent", pair)
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || percent <= 0 || percent > 100 {
			return nil, fmt.Errorf("invalid voucher percent in %q", pair)
		}
		vouchers[strings.ToUpper(strings.TrimSpace(code))] = decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
	}
	return vouchers, nil
}
