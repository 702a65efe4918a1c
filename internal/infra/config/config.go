package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Payment gateways.
const (
	GatewayFake   = "fake"
	GatewayStripe = "stripe"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	HTTPClient    HTTPClientConfig    `mapstructure:"http_client"`
	Storage       StorageConfig       `mapstructure:"storage"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	AccessControl AccessControlConfig `mapstructure:"access_control"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Log           LogConfig           `mapstructure:"log"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Refund        RefundConfig        `mapstructure:"refund"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

// AccessControlConfig holds privileged account configuration.
type AccessControlConfig struct {
	AdminEmails  []string `mapstructure:"admin_emails"`
	AdminUserIDs []string `mapstructure:"admin_user_ids"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// AutoMigrate applies pending migrations at startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the lib/pq keyword connection string.
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode,
	)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis server is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}

// HTTPClientConfig holds the outbound HTTP client pool settings used for
// payment gateway calls.
type HTTPClientConfig struct {
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory, postgres
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Enabled enables/disables rate limiting. It needs Redis.
	Enabled bool `mapstructure:"enabled"`
	// APILimit is the per-user (per-IP when anonymous) limit per window.
	APILimit  int           `mapstructure:"api_limit"`
	APIWindow time.Duration `mapstructure:"api_window"`
	// IdempotencyTTL is how long Idempotency-Key responses are replayed.
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	Leeway    time.Duration `mapstructure:"leeway"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PaymentConfig selects the payment gateway.
type PaymentConfig struct {
	Gateway string `mapstructure:"gateway"` // fake, stripe
}

// StripeConfig holds Stripe payment configuration.
type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	// BaseURL overrides the API endpoint, e.g. for stripe-mock.
	BaseURL string `mapstructure:"base_url"`
}

// RefundConfig holds retry and circuit breaker settings for gateway refunds.
type RefundConfig struct {
	MaxAttempts             int           `mapstructure:"max_attempts"`
	InitialBackoff          time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff              time.Duration `mapstructure:"max_backoff"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `mapstructure:"breaker_open_timeout"`
}

// CacheConfig holds read-view cache settings.
type CacheConfig struct {
	ViewTTL time.Duration `mapstructure:"view_ttl"`
}

// KafkaConfig holds the status event publisher settings. No brokers disables it.
type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// Enabled reports whether events are forwarded to Kafka.
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// TelemetryConfig holds tracing and metrics settings.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables trace export.
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SampleRatio     float64 `mapstructure:"sample_ratio"`
	MetricNamespace string  `mapstructure:"metric_namespace"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from file and environment. An empty path searches
// ".", "./configs" and "/etc/storefront" for config.yaml.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/storefront")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	// STOREFRONT_SERVER_ADDRESS overrides server.address, and so on.
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if secret := os.Getenv("STOREFRONT_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("STOREFRONT_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("STOREFRONT_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if secretKey := os.Getenv("STOREFRONT_STRIPE_SECRET_KEY"); secretKey != "" {
		cfg.Stripe.SecretKey = secretKey
	}

	// Comma-separated lists from environment.
	if s := os.Getenv("STOREFRONT_ADMIN_EMAILS"); s != "" {
		cfg.AccessControl.AdminEmails = parseCommaSeparatedList(s)
	}
	if s := os.Getenv("STOREFRONT_ADMIN_USER_IDS"); s != "" {
		cfg.AccessControl.AdminUserIDs = parseCommaSeparatedList(s)
	}
	if s := os.Getenv("STOREFRONT_KAFKA_BROKERS"); s != "" {
		cfg.Kafka.Brokers = parseCommaSeparatedList(s)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Payment.Gateway {
	case GatewayFake:
	case GatewayStripe:
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("config: stripe.secret_key is required when payment.gateway is %q", GatewayStripe)
		}
	default:
		return fmt.Errorf("config: unknown payment.gateway %q", c.Payment.Gateway)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	if c.Refund.MaxAttempts < 1 {
		return fmt.Errorf("config: refund.max_attempts must be at least 1")
	}
	return nil
}

func parseCommaSeparatedList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "storefront")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	// Redis defaults
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 50)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.max_conns_per_host", 20)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 5*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 5*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	v.SetDefault("storage.driver", StoragePostgres)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.api_limit", 60)
	v.SetDefault("rate_limit.api_window", time.Minute)
	v.SetDefault("rate_limit.idempotency_ttl", 24*time.Hour)

	// Access control defaults
	v.SetDefault("access_control.admin_emails", []string{})
	v.SetDefault("access_control.admin_user_ids", []string{})

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.leeway", 30*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Payment defaults
	v.SetDefault("payment.gateway", GatewayStripe)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.base_url", "")

	// Refund defaults
	v.SetDefault("refund.max_attempts", 3)
	v.SetDefault("refund.initial_backoff", 200*time.Millisecond)
	v.SetDefault("refund.max_backoff", 2*time.Second)
	v.SetDefault("refund.request_timeout", 10*time.Second)
	v.SetDefault("refund.breaker_failure_threshold", 5)
	v.SetDefault("refund.breaker_open_timeout", 30*time.Second)

	v.SetDefault("cache.view_ttl", 5*time.Minute)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "storefront.lifecycle-events")
	v.SetDefault("kafka.publish_timeout", 5*time.Second)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "storefront")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.metric_namespace", "storefront")
}
