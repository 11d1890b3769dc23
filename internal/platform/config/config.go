// Package config loads server configuration from an optional YAML file
// overlaid by MINTGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	strs "mintgate/pkg/platform/strings"
)

// EnvPrefix namespaces every environment variable, e.g. MINTGATE_ADDR.
const EnvPrefix = "MINTGATE"

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendKafka    = "kafka"
)

// Config is the complete server configuration.
type Config struct {
	Addr            string        `yaml:"addr"            envconfig:"ADDR"`
	Owner           string        `yaml:"owner"           envconfig:"OWNER"`
	LogLevel        string        `yaml:"logLevel"        envconfig:"LOG_LEVEL"`
	StrictQuotas    bool          `yaml:"strictQuotas"    envconfig:"STRICT_QUOTAS"`
	AdminTokenHash  string        `yaml:"adminTokenHash"  envconfig:"ADMIN_TOKEN_HASH"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`

	JWT           JWTConfig       `yaml:"jwt"           envconfig:"JWT"`
	InitialQuotas QuotasConfig    `yaml:"initialQuotas" envconfig:"INITIAL_QUOTAS"`
	Ledger        LedgerConfig    `yaml:"ledger"        envconfig:"LEDGER"`
	Redis         RedisConfig     `yaml:"redis"         envconfig:"REDIS"`
	Audit         AuditConfig     `yaml:"audit"         envconfig:"AUDIT"`
	Postgres      PostgresConfig  `yaml:"postgres"      envconfig:"POSTGRES"`
	Kafka         KafkaConfig     `yaml:"kafka"         envconfig:"KAFKA"`
	RateLimit     RateLimitConfig `yaml:"rateLimit"     envconfig:"RATE_LIMIT"`
}

// JWTConfig configures bearer-token validation.
type JWTConfig struct {
	SigningKey string        `yaml:"signingKey" envconfig:"SIGNING_KEY"`
	Issuer     string        `yaml:"issuer"     envconfig:"ISSUER"`
	Audience   string        `yaml:"audience"   envconfig:"AUDIENCE"`
	TokenTTL   time.Duration `yaml:"tokenTTL"   envconfig:"TOKEN_TTL"`
	// Revocation checks token IDs against a Redis deny list. Requires Redis.
	Revocation bool `yaml:"revocation" envconfig:"REVOCATION"`
}

// QuotasConfig seeds the engine quotas at startup.
type QuotasConfig struct {
	Total     int64 `yaml:"total"     envconfig:"TOTAL"`
	Whitelist int64 `yaml:"whitelist" envconfig:"WHITELIST"`
	Admin     int64 `yaml:"admin"     envconfig:"ADMIN"`
}

// RateLimitConfig bounds mutating requests per caller. Requests of zero
// disables the limiter. The window is shared through Redis when a Redis URL
// is configured.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" envconfig:"REQUESTS"`
	Window   time.Duration `yaml:"window"   envconfig:"WINDOW"`
}

// LedgerConfig selects the asset ledger backend.
type LedgerConfig struct {
	Backend   string `yaml:"backend"   envconfig:"BACKEND"`
	KeyPrefix string `yaml:"keyPrefix" envconfig:"KEY_PREFIX"`
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string        `yaml:"url"          envconfig:"URL"`
	PoolSize     int           `yaml:"poolSize"     envconfig:"POOL_SIZE"`
	MinIdleConns int           `yaml:"minIdleConns" envconfig:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `yaml:"dialTimeout"  envconfig:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"WRITE_TIMEOUT"`
}

// AuditConfig selects where audit events go.
type AuditConfig struct {
	Backend        string        `yaml:"backend"        envconfig:"BACKEND"`
	Buffer         int           `yaml:"buffer"         envconfig:"BUFFER"`
	OutboxInterval time.Duration `yaml:"outboxInterval" envconfig:"OUTBOX_INTERVAL"`
	OutboxBatch    int           `yaml:"outboxBatch"    envconfig:"OUTBOX_BATCH"`
}

// PostgresConfig configures the audit outbox database.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"          envconfig:"DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"MAX_OPEN_CONNS"`
}

// KafkaConfig configures the audit stream.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"           envconfig:"BROKERS"`
	Topic             string   `yaml:"topic"             envconfig:"TOPIC"`
	Partitions        int32    `yaml:"partitions"        envconfig:"PARTITIONS"`
	ReplicationFactor int16    `yaml:"replicationFactor" envconfig:"REPLICATION_FACTOR"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		ShutdownTimeout: 15 * time.Second,
		JWT: JWTConfig{
			Issuer:   "mintgate",
			Audience: "mintgate-api",
			TokenTTL: time.Hour,
		},
		Ledger: LedgerConfig{Backend: BackendMemory},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			Backend:        BackendMemory,
			Buffer:         1024,
			OutboxInterval: time.Second,
			OutboxBatch:    100,
		},
		Postgres: PostgresConfig{MaxOpenConns: 10},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
		Kafka: KafkaConfig{
			Topic:             "mintgate.audit",
			Partitions:        3,
			ReplicationFactor: 1,
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies the
// environment, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.Kafka.Brokers = strs.DedupeAndTrim(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Owner == "" {
		errs = append(errs, errors.New("owner is required"))
	}
	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("jwt signing key is required"))
	}

	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis url is required for the redis ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}

	switch c.Audit.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres dsn is required for the postgres audit backend"))
		}
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka brokers are required for the kafka audit backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit backend %q", c.Audit.Backend))
	}
	if c.Audit.Backend == BackendPostgres && len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required for the outbox relay"))
	}

	if c.JWT.Revocation && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis url is required for token revocation"))
	}
	if c.RateLimit.Requests < 0 {
		errs = append(errs, errors.New("rate limit requests must not be negative"))
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.Audit.Buffer < 0 {
		errs = append(errs, errors.New("audit buffer must not be negative"))
	}
	return errors.Join(errs...)
}
