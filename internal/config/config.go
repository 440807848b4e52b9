package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	ierr "github.com/kinderbill/kinderbill/internal/errors"
)

// Configuration holds all runtime configuration, loaded from config files
// and environment variables (KINDERBILL_ prefixed).
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Email      EmailConfig      `mapstructure:"email"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode" default:"api"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" default:":8080"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host" default:"localhost"`
	Port     int    `mapstructure:"port" default:"5432"`
	User     string `mapstructure:"user" default:"kinderbill"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname" default:"kinderbill"`
	SSLMode  string `mapstructure:"sslmode" default:"disable"`
	MaxOpen  int    `mapstructure:"max_open_conns" default:"20"`
	MaxIdle  int    `mapstructure:"max_idle_conns" default:"5"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// IsConfigured reports whether the billing integration can be used at all.
// An unconfigured integration fails closed: webhooks get 503.
func (c StripeConfig) IsConfigured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address" default:"billing@kinderbill.io"`
}

type BillingConfig struct {
	// MaxPaymentRetries is the consecutive-failure count at which a tenant
	// is suspended and provider-side cancellation is issued.
	MaxPaymentRetries int `mapstructure:"max_payment_retries" default:"4" validate:"min=1"`

	// OutboxPollInterval is how often the outbox dispatcher scans for
	// pending commands, in seconds.
	OutboxPollIntervalSeconds int `mapstructure:"outbox_poll_interval_seconds" default:"15" validate:"min=1"`

	// OutboxMaxAttempts caps dispatch attempts before a command is parked
	// as failed for operator attention.
	OutboxMaxAttempts int `mapstructure:"outbox_max_attempts" default:"8" validate:"min=1"`
}

type LoggingConfig struct {
	Level          string `mapstructure:"level" default:"info"`
	FluentdEnabled bool   `mapstructure:"fluentd_enabled"`
	FluentdHost    string `mapstructure:"fluentd_host"`
	FluentdPort    int    `mapstructure:"fluentd_port"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment" default:"development"`
	SampleRate  float64 `mapstructure:"sample_rate" default:"1.0"`
}

// NewConfig loads configuration from ./config/config.yaml (optional), .env
// (optional), and environment variables.
func NewConfig() (*Configuration, error) {
	// .env is a developer convenience; absence is not an error
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KINDERBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrSystem)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse configuration").
			Mark(ierr.ErrSystem)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "api")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "kinderbill")
	v.SetDefault("postgres.dbname", "kinderbill")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("email.from_address", "billing@kinderbill.io")
	v.SetDefault("billing.max_payment_retries", 4)
	v.SetDefault("billing.outbox_poll_interval_seconds", 15)
	v.SetDefault("billing.outbox_max_attempts", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}

// Validate checks structural constraints on the loaded configuration.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid configuration").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns a minimal configuration usable before the full
// config is loaded (logger bootstrap, scripts, tests).
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "api"},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: "info"},
		Billing: BillingConfig{
			MaxPaymentRetries:         4,
			OutboxPollIntervalSeconds: 15,
			OutboxMaxAttempts:         8,
		},
	}
}
