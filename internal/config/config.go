// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate" env:"DATABASE_MIGRATE"`
	// Memory keeps all state in process; meant for local runs only.
	Memory bool `yaml:"memory"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type InternalConfig struct {
	APIKey string `yaml:"api_key" env:"INTERNAL_API_KEY"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
	Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
}

type PaymentsConfig struct {
	Rail             string        `yaml:"rail" env:"PAYMENTS_RAIL"`           // fiat|crypto
	FakeMode         bool          `yaml:"fake_mode" env:"PAYMENTS_FAKE_MODE"` // crypto: simulated addresses, monitor off
	MonitorEnabled   bool          `yaml:"monitor_enabled" env:"PAYMENTS_MONITOR_ENABLED"`
	MonitorInterval  time.Duration `yaml:"monitor_interval"`
	MonitorBatch     int           `yaml:"monitor_batch"`
	MonitorLockTTL   time.Duration `yaml:"monitor_lock_ttl"`
	CheckoutTTL      time.Duration `yaml:"checkout_ttl"`
	CreateRateLimit  int           `yaml:"create_rate_limit"` // per user and window; needs redis
	CreateRateWindow time.Duration `yaml:"create_rate_window"`
}

type StripeConfig struct {
	SecretKey     string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	Tolerance     time.Duration `yaml:"tolerance"`
	DedupeTTL     time.Duration `yaml:"dedupe_ttl"`
}

type MoneroConfig struct {
	WalletRPCURL     string        `yaml:"wallet_rpc_url" env:"MONERO_WALLET_RPC_URL"`
	AllowedHosts     []string      `yaml:"allowed_hosts"`
	AccountIndex     int           `yaml:"account_index"`
	MinConfirmations int           `yaml:"min_confirmations" env:"MONERO_MIN_CONFIRMATIONS"`
	RequestsPerSec   float64       `yaml:"requests_per_sec"`
	Timeout          time.Duration `yaml:"timeout"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// ClientConfig configures an outbound call to a sibling service.
type ClientConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	AllowedPrefixes []string      `yaml:"allowed_prefixes"`
}

type SubscriptionsConfig struct {
	Client ClientConfig `yaml:"client"`
	Retry  RetryConfig  `yaml:"retry"`
	// FakeAllActive makes every access check pass (subscription service).
	FakeAllActive bool `yaml:"fake_all_active" env:"SUBS_FAKE_ALL_ACTIVE"`
}

type NotificationsConfig struct {
	Driver string       `yaml:"driver" env:"NOTIFICATIONS_DRIVER"` // http|amqp|telegram|none
	HTTP   ClientConfig `yaml:"http"`
}

type AMQPConfig struct {
	URL   string `yaml:"url" env:"AMQP_URL"`
	Queue string `yaml:"queue"`
}

type TelegramConfig struct {
	Token  string `yaml:"token" env:"TELEGRAM_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	Lang   string `yaml:"lang" env:"TELEGRAM_LANG"` // en|sv
}

type WorkersConfig struct {
	Count int `yaml:"count"`
	Queue int `yaml:"queue"`
}

type Config struct {
	Log           LogConfig           `yaml:"log"`
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Internal      InternalConfig      `yaml:"internal"`
	JWT           JWTConfig           `yaml:"jwt"`
	Payments      PaymentsConfig      `yaml:"payments"`
	Stripe        StripeConfig        `yaml:"stripe"`
	Monero        MoneroConfig        `yaml:"monero"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Notifications NotificationsConfig `yaml:"notifications"`
	AMQP          AMQPConfig          `yaml:"amqp"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Workers       WorkersConfig       `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Service names accepted by Validate.
const (
	ServicePayments      = "payments"
	ServiceSubscriptions = "subscriptions"
)

// LoadConfig reads the YAML file at path (optional when empty), applies
// environment overrides, then fills defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 15*time.Second)
	cfg.HTTP.ShutdownTimeout = orDuration(cfg.HTTP.ShutdownTimeout, 10*time.Second)
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	cfg.Payments.Rail = strings.ToLower(strings.TrimSpace(cfg.Payments.Rail))
	if cfg.Payments.Rail == "" {
		cfg.Payments.Rail = "fiat"
	}
	cfg.Payments.MonitorInterval = orDuration(cfg.Payments.MonitorInterval, time.Minute)
	cfg.Payments.MonitorLockTTL = orDuration(cfg.Payments.MonitorLockTTL, 50*time.Second)
	cfg.Payments.CheckoutTTL = orDuration(cfg.Payments.CheckoutTTL, 24*time.Hour)
	if cfg.Payments.MonitorBatch <= 0 {
		cfg.Payments.MonitorBatch = 500
	}
	if cfg.Payments.CreateRateLimit <= 0 {
		cfg.Payments.CreateRateLimit = 10
	}
	cfg.Payments.CreateRateWindow = orDuration(cfg.Payments.CreateRateWindow, time.Minute)

	cfg.Stripe.Tolerance = orDuration(cfg.Stripe.Tolerance, 5*time.Minute)
	cfg.Stripe.DedupeTTL = orDuration(cfg.Stripe.DedupeTTL, 72*time.Hour)

	if cfg.Monero.MinConfirmations <= 0 {
		cfg.Monero.MinConfirmations = 10
	}
	if len(cfg.Monero.AllowedHosts) == 0 {
		cfg.Monero.AllowedHosts = []string{"localhost", "127.0.0.1", "monero-wallet-rpc"}
	}
	if cfg.Monero.RequestsPerSec <= 0 {
		cfg.Monero.RequestsPerSec = 5
	}
	cfg.Monero.Timeout = orDuration(cfg.Monero.Timeout, 10*time.Second)

	r := &cfg.Subscriptions.Retry
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	r.InitialBackoff = orDuration(r.InitialBackoff, time.Second)
	if r.Multiplier < 1 {
		r.Multiplier = 2
	}
	r.MaxBackoff = orDuration(r.MaxBackoff, 10*time.Second)
	applyClientDefaults(&cfg.Subscriptions.Client, "http://localhost:8082", "subscriptions-service")

	if cfg.Notifications.Driver == "" {
		cfg.Notifications.Driver = "http"
	}
	applyClientDefaults(&cfg.Notifications.HTTP, "http://localhost:8083", "notifications-service")
	if cfg.AMQP.Queue == "" {
		cfg.AMQP.Queue = "payments.confirmed"
	}

	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = 4
	}
	if cfg.Workers.Queue <= 0 {
		cfg.Workers.Queue = 256
	}
}

func applyClientDefaults(c *ClientConfig, baseURL, host string) {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.Timeout = orDuration(c.Timeout, 5*time.Second)
	if len(c.AllowedPrefixes) == 0 {
		c.AllowedPrefixes = []string{"http://localhost", "http://" + host, "https://" + host}
	}
}

// Validate performs minimal checks for the given service.
func (c *Config) Validate(service string) error {
	if !c.Database.Memory && c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch service {
	case ServicePayments:
		if c.Payments.Rail != "fiat" && c.Payments.Rail != "crypto" {
			return fmt.Errorf("payments.rail must be fiat or crypto, got %q", c.Payments.Rail)
		}
		if c.Payments.Rail == "crypto" && !c.Payments.FakeMode && c.Monero.WalletRPCURL == "" {
			return errors.New("monero.wallet_rpc_url is required unless payments.fake_mode is set")
		}
		if c.Payments.Rail == "fiat" && c.Stripe.SecretKey == "" && !c.Runtime.Dev {
			return errors.New("stripe.secret_key is required")
		}
	case ServiceSubscriptions:
	default:
		return fmt.Errorf("unknown service %q", service)
	}
	// Shared by both sides of the internal API.
	if c.Internal.APIKey == "" {
		return errors.New("internal.api_key is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
