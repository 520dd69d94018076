// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Fee       FeeConfig       `koanf:"fee"`
	Quota     QuotaConfig     `koanf:"quota"`
	RabbitMQ  RabbitMQConfig  `koanf:"rabbitmq"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// JWTConfig describes the tokens minted by the identity provider. Only the
// public key is needed to serve traffic; the private key is for local tooling.
type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int                  `koanf:"requests"`
	Window   time.Duration        `koanf:"window"`
	Burst    int                  `koanf:"burst"`
	Tiers    map[string]TierLimit `koanf:"tiers"`
}

// TierLimit is the per-caller budget for authenticated routes, keyed by tier.
type TierLimit struct {
	RequestsPerMinute int `koanf:"requests_per_minute"`
	Burst             int `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// FeeConfig mirrors fee.Policy so the fee schedule can change without a
// deploy. Stored escrows keep the fee they were created with.
type FeeConfig struct {
	BaseBps                int      `koanf:"base_bps"`
	MinBps                 int      `koanf:"min_bps"`
	LargePriceCents        int64    `koanf:"large_price_cents"`
	LargePriceDiscountBps  int      `koanf:"large_price_discount_bps"`
	SellerProDiscountBps   int      `koanf:"seller_pro_discount_bps"`
	SellerVIPDiscountBps   int      `koanf:"seller_vip_discount_bps"`
	BuyerProDiscountBps    int      `koanf:"buyer_pro_discount_bps"`
	BuyerVIPDiscountBps    int      `koanf:"buyer_vip_discount_bps"`
	DealsThreshold         int      `koanf:"deals_threshold"`
	BuyerDealsDiscountBps  int      `koanf:"buyer_deals_discount_bps"`
	SellerDealsDiscountBps int      `koanf:"seller_deals_discount_bps"`
	MinFeeCents            int64    `koanf:"min_fee_cents"`
	ReducedMinFeeCents     int64    `koanf:"reduced_min_fee_cents"`
	ReducedMinFeePlatforms []string `koanf:"reduced_min_fee_platforms"`
}

type QuotaConfig struct {
	Store    string `koanf:"store"`
	Timezone string `koanf:"timezone"`
}

type RabbitMQConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

const (
	QuotaStorePostgres = "postgres"
	QuotaStoreRedis    = "redis"
)

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		k := koanf.New(".")

		if err := loadDefaults(k); err != nil {
			loadErr = fmt.Errorf("load defaults: %w", err)
			return
		}

		if configPath != "" {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				loadErr = fmt.Errorf("load config file: %w", err)
				return
			}
		}

		if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
			loadErr = fmt.Errorf("load env vars: %w", err)
			return
		}

		cfg = &Config{}
		if err := k.Unmarshal("", cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := validate(cfg); err != nil {
			loadErr = fmt.Errorf("validate config: %w", err)
			return
		}
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "microbid",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "15m",
		"jwt.issuer":              "microbid-identity",
		"jwt.audience":            "microbid-api",
		"jwt.public_key_path":     "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "microbid",

		"fee.base_bps":                  800,
		"fee.min_bps":                   350,
		"fee.large_price_cents":         70000,
		"fee.large_price_discount_bps":  200,
		"fee.seller_pro_discount_bps":   100,
		"fee.seller_vip_discount_bps":   150,
		"fee.buyer_pro_discount_bps":    150,
		"fee.buyer_vip_discount_bps":    200,
		"fee.deals_threshold":           3,
		"fee.buyer_deals_discount_bps":  50,
		"fee.seller_deals_discount_bps": 50,
		"fee.min_fee_cents":             800,
		"fee.reduced_min_fee_cents":     300,
		"fee.reduced_min_fee_platforms": []string{"youtube", "telegram"},

		"quota.store":    QuotaStorePostgres,
		"quota.timezone": "UTC",

		"rabbitmq.enabled":  false,
		"rabbitmq.exchange": "microbid.events",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"AUTO_MIGRATE":                "database.auto_migrate",
	"QUOTA_STORE":                 "quota.store",
	"QUOTA_TIMEZONE":              "quota.timezone",
	"RABBITMQ_ENABLED":            "rabbitmq.enabled",
	"RABBITMQ_URL":                "rabbitmq.url",
	"RABBITMQ_EXCHANGE":           "rabbitmq.exchange",
	"METRICS_ENABLED":             "metrics.enabled",
	"FEE_BASE_BPS":                "fee.base_bps",
	"FEE_MIN_BPS":                 "fee.min_bps",
	"FEE_MIN_FEE_CENTS":           "fee.min_fee_cents",
	"FEE_REDUCED_MIN_FEE_CENTS":   "fee.reduced_min_fee_cents",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Fee.MinBps <= 0 || c.Fee.MinBps > c.Fee.BaseBps {
		return fmt.Errorf("fee.min_bps must be in (0, fee.base_bps]")
	}

	if c.Fee.MinFeeCents < 0 || c.Fee.ReducedMinFeeCents < 0 {
		return fmt.Errorf("fee minimums must not be negative")
	}

	switch c.Quota.Store {
	case QuotaStorePostgres, QuotaStoreRedis:
	default:
		return fmt.Errorf("quota.store must be %q or %q", QuotaStorePostgres, QuotaStoreRedis)
	}

	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required when rabbitmq is enabled")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
