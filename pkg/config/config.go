package config

import (
	"fmt"
	"os"
	"runtime"
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

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret      string   `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	// AMQPURL enables domain event publishing when set.
	AMQPURL string `mapstructure:"AMQP_URL" validate:"omitempty,url"`

	WebhookClientState     string `mapstructure:"WEBHOOK_CLIENT_STATE" validate:"required,min=16"`
	WebhookClientStateMode string `mapstructure:"WEBHOOK_CLIENT_STATE_MODE" validate:"required,oneof=hmac static"`
	WebhookNotificationURL string `mapstructure:"WEBHOOK_NOTIFICATION_URL" validate:"omitempty,url"`

	GraphTenantID     string        `mapstructure:"GRAPH_TENANT_ID"`
	GraphClientID     string        `mapstructure:"GRAPH_CLIENT_ID"`
	GraphClientSecret string        `mapstructure:"GRAPH_CLIENT_SECRET"`
	GraphBaseURL      string        `mapstructure:"GRAPH_BASE_URL" validate:"required,url"`
	GraphTimeout      time.Duration `mapstructure:"GRAPH_TIMEOUT"`

	EmailProvider string `mapstructure:"EMAIL_PROVIDER" validate:"required,oneof=resend smtp"`
	EmailFrom     string `mapstructure:"EMAIL_FROM" validate:"required"`
	ResendAPIKey  string `mapstructure:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	SMTPHost      string `mapstructure:"SMTP_HOST" validate:"required_if=EmailProvider smtp"`
	SMTPPort      int    `mapstructure:"SMTP_PORT" validate:"gte=0,lte=65535"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`

	TwilioAccountSID   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber   string `mapstructure:"TWILIO_FROM_NUMBER"`
	TwilioWhatsAppFrom string `mapstructure:"TWILIO_WHATSAPP_FROM"`
	TwilioBaseURL      string `mapstructure:"TWILIO_BASE_URL" validate:"required,url"`

	ReminderCron          string `mapstructure:"REMINDER_CRON" validate:"required"`
	SubscriptionRenewCron string `mapstructure:"SUBSCRIPTION_RENEW_CRON"`
	CompanyName           string `mapstructure:"COMPANY_NAME"`
}

// GraphConfigured reports whether OneDrive credentials are present.
func (c *Config) GraphConfigured() bool {
	return c.GraphTenantID != "" && c.GraphClientID != "" && c.GraphClientSecret != ""
}

// TwilioConfigured reports whether SMS/WhatsApp credentials are present.
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != ""
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"JWT_SECRET",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"AMQP_URL",
	"WEBHOOK_CLIENT_STATE",
	"WEBHOOK_CLIENT_STATE_MODE",
	"WEBHOOK_NOTIFICATION_URL",
	"GRAPH_TENANT_ID",
	"GRAPH_CLIENT_ID",
	"GRAPH_CLIENT_SECRET",
	"GRAPH_BASE_URL",
	"GRAPH_TIMEOUT",
	"EMAIL_PROVIDER",
	"EMAIL_FROM",
	"RESEND_API_KEY",
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_USER",
	"SMTP_PASSWORD",
	"TWILIO_ACCOUNT_SID",
	"TWILIO_AUTH_TOKEN",
	"TWILIO_FROM_NUMBER",
	"TWILIO_WHATSAPP_FROM",
	"TWILIO_BASE_URL",
	"REMINDER_CRON",
	"SUBSCRIPTION_RENEW_CRON",
	"COMPANY_NAME",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("WEBHOOK_CLIENT_STATE_MODE", "hmac")
	v.SetDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0")
	v.SetDefault("GRAPH_TIMEOUT", "20s")
	v.SetDefault("EMAIL_PROVIDER", "resend")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01")
	v.SetDefault("REMINDER_CRON", "0 8 * * *")
	v.SetDefault("SUBSCRIPTION_RENEW_CRON", "0 */6 * * *")
	v.SetDefault("COMPANY_NAME", "HHI")

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"GRAPH_TIMEOUT":    &c.GraphTimeout,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
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
