package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DBDriver    string `mapstructure:"DB_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required"`

	JWTSecret     string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL" validate:"required"`
	AuthRateLimit int           `mapstructure:"AUTH_RATE_LIMIT" validate:"gte=1,lte=10000"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	StripeSecretKey      string        `mapstructure:"STRIPE_SECRET_KEY"`
	PaymentCurrency      string        `mapstructure:"PAYMENT_CURRENCY" validate:"required,len=3"`
	PaymentIntentTTL     time.Duration `mapstructure:"PAYMENT_INTENT_TTL" validate:"required"`
	PaymentSweepInterval time.Duration `mapstructure:"PAYMENT_SWEEP_INTERVAL" validate:"required"`
	ReconcileInterval    time.Duration `mapstructure:"RECONCILE_INTERVAL" validate:"required"`

	CloudflareAccountID string `mapstructure:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `mapstructure:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `mapstructure:"R2_BUCKET_NAME"`
	CDNBaseURL          string `mapstructure:"CDN_BASE_URL"`
}

// R2Enabled reports whether object storage credentials are present.
func (c *Config) R2Enabled() bool {
	return c.CloudflareAccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2BucketName != ""
}

// Origins returns ALLOWED_ORIGINS as a trimmed, comma-joined list for the CORS middleware.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())

	keys = []string{
		"APP_ENV",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DB_DRIVER",
		"DATABASE_URL",
		"JWT_SECRET",
		"TOKEN_TTL",
		"AUTH_RATE_LIMIT",
		"ALLOWED_ORIGINS",
		"STRIPE_SECRET_KEY",
		"PAYMENT_CURRENCY",
		"PAYMENT_INTENT_TTL",
		"PAYMENT_SWEEP_INTERVAL",
		"RECONCILE_INTERVAL",
		"CLOUDFLARE_ACCOUNT_ID",
		"R2_ACCESS_KEY_ID",
		"R2_ACCESS_KEY_SECRET",
		"R2_BUCKET_NAME",
		"CDN_BASE_URL",
	}
)

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:5200")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("PAYMENT_INTENT_TTL", "24h")
	v.SetDefault("PAYMENT_SWEEP_INTERVAL", "5m")
	v.SetDefault("RECONCILE_INTERVAL", "1h")

	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	c.PaymentCurrency = strings.ToLower(c.PaymentCurrency)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
