// Package config loads storefront settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API            APIConfig            `yaml:"api"`
	Cart           CartConfig           `yaml:"cart"`
	Checkout       CheckoutConfig       `yaml:"checkout"`
	Payment        PaymentConfig        `yaml:"payment"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	HTTP           HTTPConfig           `yaml:"http"`
	Log            LogConfig            `yaml:"log"`
}

// APIConfig points at the storefront REST backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Token is the opaque bearer credential issued by the auth service.
	Token           string        `yaml:"token"`
	Timeout         time.Duration `yaml:"timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

type CartConfig struct {
	// Backend is one of sqlite, redis, mongo.
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`

	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	MongoURI      string        `yaml:"mongo_uri"`
	MongoDatabase string        `yaml:"mongo_database"`
	MongoTTL      time.Duration `yaml:"mongo_ttl"`
}

// CheckoutConfig amounts are decimal strings.
type CheckoutConfig struct {
	TaxRate          string `yaml:"tax_rate"`
	FreeShippingOver string `yaml:"free_shipping_over"`
	FlatShippingFee  string `yaml:"flat_shipping_fee"`
	Currency         string `yaml:"currency"`
}

type PaymentConfig struct {
	// Provider is backend or mock.
	Provider      string `yaml:"provider"`
	StripeBaseURL string `yaml:"stripe_base_url"`
	// MockDecline makes the mock provider refuse every charge with this reason.
	MockDecline string `yaml:"mock_decline"`
}

type ReconciliationConfig struct {
	Enabled bool `yaml:"enabled"`
	// Driver is sqlite or postgres.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Sink is none, kafka or nats.
	Sink         string        `yaml:"sink"`
	KafkaBrokers []string      `yaml:"kafka_brokers"`
	KafkaTopic   string        `yaml:"kafka_topic"`
	NatsURL      string        `yaml:"nats_url"`
	NatsStream   string        `yaml:"nats_stream"`
	NatsSubject  string        `yaml:"nats_subject"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Env    string `yaml:"env"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         "http://localhost:4000/api/v1",
			Timeout:         10 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Cart: CartConfig{
			Backend:       "sqlite",
			Key:           "cart",
			SQLitePath:    "storefront.db",
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "storefront",
		},
		Checkout: CheckoutConfig{
			TaxRate:          "0.10",
			FreeShippingOver: "50",
			FlatShippingFee:  "10",
			Currency:         "usd",
		},
		Payment: PaymentConfig{
			Provider:      "backend",
			StripeBaseURL: "https://api.stripe.com",
		},
		Reconciliation: ReconciliationConfig{
			Enabled:      true,
			Driver:       "sqlite",
			DSN:          "storefront.db",
			Sink:         "none",
			KafkaTopic:   "payment-reconciliation",
			NatsURL:      "nats://localhost:4222",
			NatsStream:   "STOREFRONT_RECONCILIATION",
			NatsSubject:  "storefront.reconciliation",
			PollInterval: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Env:    "dev",
		},
	}
}

// Load reads path over the defaults (an empty path skips the file), applies the
// environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		cfg, err = LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	c.API.BaseURL = getEnv("STOREFRONT_API_URL", c.API.BaseURL)
	c.API.Token = getEnv("STOREFRONT_TOKEN", c.API.Token)
	c.API.Timeout = getEnvDuration("STOREFRONT_API_TIMEOUT", c.API.Timeout)

	c.Cart.Backend = getEnv("STOREFRONT_CART_BACKEND", c.Cart.Backend)
	c.Cart.Key = getEnv("STOREFRONT_CART_KEY", c.Cart.Key)
	c.Cart.SQLitePath = getEnv("STOREFRONT_CART_SQLITE_PATH", c.Cart.SQLitePath)
	c.Cart.RedisAddr = getEnv("STOREFRONT_REDIS_ADDR", c.Cart.RedisAddr)
	c.Cart.RedisPassword = getEnv("STOREFRONT_REDIS_PASSWORD", c.Cart.RedisPassword)
	c.Cart.RedisDB = getEnvInt("STOREFRONT_REDIS_DB", c.Cart.RedisDB)
	c.Cart.MongoURI = getEnv("STOREFRONT_MONGO_URI", c.Cart.MongoURI)
	c.Cart.MongoDatabase = getEnv("STOREFRONT_MONGO_DATABASE", c.Cart.MongoDatabase)

	c.Checkout.FlatShippingFee = getEnv("STOREFRONT_FLAT_SHIPPING_FEE", c.Checkout.FlatShippingFee)

	c.Payment.Provider = getEnv("STOREFRONT_PAYMENT_PROVIDER", c.Payment.Provider)
	c.Payment.StripeBaseURL = getEnv("STOREFRONT_STRIPE_BASE_URL", c.Payment.StripeBaseURL)

	c.Reconciliation.Enabled = getEnvBool("STOREFRONT_RECONCILIATION_ENABLED", c.Reconciliation.Enabled)
	c.Reconciliation.Driver = getEnv("STOREFRONT_RECONCILIATION_DRIVER", c.Reconciliation.Driver)
	c.Reconciliation.DSN = getEnv("STOREFRONT_RECONCILIATION_DSN", c.Reconciliation.DSN)
	c.Reconciliation.Sink = getEnv("STOREFRONT_RECONCILIATION_SINK", c.Reconciliation.Sink)
	if brokers := getEnv("STOREFRONT_KAFKA_BROKERS", ""); brokers != "" {
		c.Reconciliation.KafkaBrokers = splitList(brokers)
	}
	c.Reconciliation.NatsURL = getEnv("STOREFRONT_NATS_URL", c.Reconciliation.NatsURL)

	c.HTTP.Addr = getEnv("STOREFRONT_HTTP_ADDR", c.HTTP.Addr)

	c.Log.Level = getEnv("STOREFRONT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("STOREFRONT_LOG_FORMAT", c.Log.Format)
	c.Log.Env = getEnv("STOREFRONT_ENV", c.Log.Env)
}

// Amounts parses the checkout amounts.
func (c CheckoutConfig) Amounts() (taxRate, freeShippingOver, flatShippingFee decimal.Decimal, err error) {
	if taxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return taxRate, freeShippingOver, flatShippingFee, fmt.Errorf("checkout.tax_rate: %w", err)
	}
	if freeShippingOver, err = decimal.NewFromString(c.FreeShippingOver); err != nil {
		return taxRate, freeShippingOver, flatShippingFee, fmt.Errorf("checkout.free_shipping_over: %w", err)
	}
	if flatShippingFee, err = decimal.NewFromString(c.FlatShippingFee); err != nil {
		return taxRate, freeShippingOver, flatShippingFee, fmt.Errorf("checkout.flat_shipping_fee: %w", err)
	}
	return taxRate, freeShippingOver, flatShippingFee, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}

	switch c.Cart.Backend {
	case "sqlite":
		if c.Cart.SQLitePath == "" {
			errs = append(errs, errors.New("cart.sqlite_path is required for the sqlite backend"))
		}
	case "redis":
		if c.Cart.RedisAddr == "" {
			errs = append(errs, errors.New("cart.redis_addr is required for the redis backend"))
		}
	case "mongo":
		if c.Cart.MongoURI == "" || c.Cart.MongoDatabase == "" {
			errs = append(errs, errors.New("cart.mongo_uri and cart.mongo_database are required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cart.backend must be sqlite, redis or mongo, got %q", c.Cart.Backend))
	}

	for name, v := range map[string]string{
		"checkout.tax_rate":           c.Checkout.TaxRate,
		"checkout.free_shipping_over": c.Checkout.FreeShippingOver,
		"checkout.flat_shipping_fee":  c.Checkout.FlatShippingFee,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if d.IsNegative() {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	switch c.Payment.Provider {
	case "backend", "mock":
	default:
		errs = append(errs, fmt.Errorf("payment.provider must be backend or mock, got %q", c.Payment.Provider))
	}

	if c.Reconciliation.Enabled {
		r := c.Reconciliation
		if r.Driver != "sqlite" && r.Driver != "postgres" {
			errs = append(errs, fmt.Errorf("reconciliation.driver must be sqlite or postgres, got %q", r.Driver))
		}
		if r.DSN == "" {
			errs = append(errs, errors.New("reconciliation.dsn is required"))
		}
		switch r.Sink {
		case "none", "":
		case "kafka":
			if len(r.KafkaBrokers) == 0 {
				errs = append(errs, errors.New("reconciliation.kafka_brokers is required for the kafka sink"))
			}
		case "nats":
			if r.NatsURL == "" {
				errs = append(errs, errors.New("reconciliation.nats_url is required for the nats sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("reconciliation.sink must be none, kafka or nats, got %q", r.Sink))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
