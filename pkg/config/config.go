package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"FlowMetrics/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. FLOWMETRICS_PROVIDER_TYPE.
const EnvPrefix = "FLOWMETRICS"

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Logger      logger.Config    `yaml:"logger"`
	Cache       CacheConfig      `yaml:"cache"`
	Provider    ProviderConfig   `yaml:"provider"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"35s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	DisableCORS     bool          `yaml:"disable_cors"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	SweepInterval time.Duration `yaml:"sweep_interval" default:"30s"`
	TTL           struct {
		Flow       time.Duration `yaml:"flow" default:"5s" validate:"gt=0"`
		Candles    time.Duration `yaml:"candles" default:"10s" validate:"gt=0"`
		Volatility time.Duration `yaml:"volatility" default:"30s" validate:"gt=0"`
		Price      time.Duration `yaml:"price" default:"5m" validate:"gt=0"`
	} `yaml:"ttl"`
	Redis struct {
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"flowmetrics:"`
	} `yaml:"redis"`
}

type ProviderConfig struct {
	Type      string `yaml:"type" default:"binance" validate:"oneof=binance rest clickhouse"`
	BaseURL   string `yaml:"base_url" validate:"required_if=Type rest"`
	APIKey    string `yaml:"api_key"`
	SecretKey string `yaml:"secret_key"`
	APIHeader string `yaml:"api_header" default:"X-API-KEY"`
	// Intervals the provider serves natively; empty means all of them.
	Intervals []string `yaml:"intervals" validate:"dive,oneof=1m 5m 15m 1h 4h 8h 1d"`
	// Timeout is clamped to [10s, 30s] by the gateway guard.
	Timeout       time.Duration `yaml:"timeout" default:"15s"`
	RatePerSecond float64       `yaml:"rate_per_second" default:"10" validate:"gte=0"`
	Burst         int           `yaml:"burst" default:"20" validate:"gte=0"`
	Breaker       struct {
		Failures uint32        `yaml:"failures" default:"5"`
		Cooldown time.Duration `yaml:"cooldown" default:"30s"`
	} `yaml:"breaker"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers" default:"[\"localhost:9092\"]" validate:"required_if=Enabled true"`
	Topic        string        `yaml:"topic" default:"flowmetrics.snapshots" validate:"required"`
	RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"flowmetrics" validate:"required"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	Compress         bool          `yaml:"compress"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	SkipSchema       bool          `yaml:"skip_schema"`
}

type RateLimitConfig struct {
	Enabled   bool          `yaml:"enabled"`
	PerSecond float64       `yaml:"per_second" default:"20" validate:"gt=0"`
	Burst     int           `yaml:"burst" default:"40" validate:"gt=0"`
	IdleTTL   time.Duration `yaml:"idle_ttl" default:"10m"`
}

// envOverrides lists the settings that can be replaced from the environment.
type envOverrides struct {
	Environment       string   `envconfig:"ENVIRONMENT"`
	ServerPort        int      `envconfig:"SERVER_PORT"`
	LogLevel          string   `envconfig:"LOG_LEVEL"`
	LogFormat         string   `envconfig:"LOG_FORMAT"`
	CacheBackend      string   `envconfig:"CACHE_BACKEND"`
	RedisAddr         string   `envconfig:"REDIS_ADDR"`
	RedisPassword     string   `envconfig:"REDIS_PASSWORD"`
	ProviderType      string   `envconfig:"PROVIDER_TYPE"`
	ProviderBaseURL   string   `envconfig:"PROVIDER_BASE_URL"`
	ProviderAPIKey    string   `envconfig:"PROVIDER_API_KEY"`
	ProviderSecretKey string   `envconfig:"PROVIDER_SECRET_KEY"`
	KafkaEnabled      *bool    `envconfig:"KAFKA_ENABLED"`
	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic        string   `envconfig:"KAFKA_TOPIC"`
	ClickHouseHost    string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePass    string   `envconfig:"CLICKHOUSE_PASSWORD"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies defaults and validates it.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	return finish(c)
}

// LoadWithEnv is Load with an optional .env file and FLOWMETRICS_* overrides applied on top of the YAML.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return finish(c)
}

func read(path string) (*Config, error) {
	var c Config
	if path == "" {
		return &c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func finish(c *Config) (*Config, error) {
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("env config: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Environment, env.Environment)
	set(&c.Logger.Level, env.LogLevel)
	set(&c.Logger.Format, env.LogFormat)
	set(&c.Cache.Backend, env.CacheBackend)
	set(&c.Cache.Redis.Addr, env.RedisAddr)
	set(&c.Cache.Redis.Password, env.RedisPassword)
	set(&c.Provider.Type, env.ProviderType)
	set(&c.Provider.BaseURL, env.ProviderBaseURL)
	set(&c.Provider.APIKey, env.ProviderAPIKey)
	set(&c.Provider.SecretKey, env.ProviderSecretKey)
	set(&c.Kafka.Topic, env.KafkaTopic)
	set(&c.ClickHouse.Host, env.ClickHouseHost)
	set(&c.ClickHouse.Password, env.ClickHousePass)
	if env.ServerPort != 0 {
		c.Server.Port = env.ServerPort
	}
	if env.KafkaEnabled != nil {
		c.Kafka.Enabled = *env.KafkaEnabled
	}
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
	}
	return nil
}

// Validate checks field rules plus the cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("cache.redis.addr is required for the redis backend")
	}
	return nil
}
