// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Index, Search, Source, Postgres, Kafka, Redis, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Snippet   SnippetConfig   `yaml:"snippet"`
	Source    SourceConfig    `yaml:"source"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists the origins allowed to call the API; "*" allows any.
	CORSOrigins []string `yaml:"corsOrigins"`
	// RateLimit is requests per RateWindow per client; 0 disables limiting.
	RateLimit  int           `yaml:"rateLimit" validate:"min=0"`
	RateWindow time.Duration `yaml:"rateWindow"`
	// AdminKeys guard the POST routes. Empty leaves them open.
	AdminKeys []string `yaml:"adminKeys"`
}

// IndexConfig controls index construction.
type IndexConfig struct {
	Workers        int     `yaml:"workers" validate:"min=0"`
	MinTokenLength int     `yaml:"minTokenLength" validate:"min=1"`
	TitleWeight    float64 `yaml:"titleWeight" validate:"gtfield=TextWeight"`
	TextWeight     float64 `yaml:"textWeight" validate:"gt=0"`
}

// SearchConfig controls query limits and the AND-to-OR fallback policy.
type SearchConfig struct {
	DefaultLimit         int     `yaml:"defaultLimit" validate:"min=1"`
	MaxLimit             int     `yaml:"maxLimit" validate:"gtefield=DefaultLimit"`
	MinGroupsForFallback int     `yaml:"minGroupsForFallback" validate:"min=1"`
	StopWordWeight       float64 `yaml:"stopWordWeight" validate:"gt=0,lte=1"`
}

// SnippetConfig controls snippet windows and highlight markers.
type SnippetConfig struct {
	Radius    int    `yaml:"radius" validate:"min=1"`
	MarkOpen  string `yaml:"markOpen"`
	MarkClose string `yaml:"markClose"`
}

// SourceConfig selects where entries are loaded from.
type SourceConfig struct {
	Kind          string        `yaml:"kind" validate:"oneof=file s3 postgres"`
	Path          string        `yaml:"path" validate:"required_if=Kind file"`
	Bucket        string        `yaml:"bucket" validate:"required_if=Kind s3"`
	Key           string        `yaml:"key" validate:"required_if=Kind s3"`
	Region        string        `yaml:"region"`
	Endpoint      string        `yaml:"endpoint"`
	Table         string        `yaml:"table" validate:"required_if=Kind postgres"`
	LoadTimeout   time.Duration `yaml:"loadTimeout"`
	RetryAttempts int           `yaml:"retryAttempts" validate:"min=1"`
	RetryBackoff  time.Duration `yaml:"retryBackoff"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Kafka is optional; when
// disabled the entry feed and analytics publishing are off.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers" validate:"required_if=Enabled true"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Entries   string `yaml:"entries"`
	Analytics string `yaml:"analytics"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyticsConfig controls event collection. Snapshots to Postgres are
// taken only when SnapshotInterval is positive.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize" validate:"min=0"`
	BatchSize        int           `yaml:"batchSize" validate:"min=0"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// TracingConfig controls span sampling.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate" validate:"gte=0,lte=1"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

var validate = validator.New()

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and reports the first violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	e := verrs[0]
	switch e.Tag() {
	case "required_if":
		return fmt.Errorf("invalid config: %s is required when %s", e.Namespace(), e.Param())
	case "oneof":
		return fmt.Errorf("invalid config: %s must be one of [%s], got %q", e.Namespace(), e.Param(), e.Value())
	case "gtfield", "gtefield":
		return fmt.Errorf("invalid config: %s must be greater than %s", e.Namespace(), e.Param())
	default:
		return fmt.Errorf("invalid config: %s failed %s=%s (got %v)", e.Namespace(), e.Tag(), e.Param(), e.Value())
	}
}

// Default returns a Config with defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateWindow:      time.Minute,
		},
		Index: IndexConfig{
			Workers:        0,
			MinTokenLength: 2,
			TitleWeight:    4.0,
			TextWeight:     1.0,
		},
		Search: SearchConfig{
			DefaultLimit:         10,
			MaxLimit:             100,
			MinGroupsForFallback: 1,
			StopWordWeight:       0.25,
		},
		Snippet: SnippetConfig{
			Radius:    80,
			MarkOpen:  "**",
			MarkClose: "**",
		},
		Source: SourceConfig{
			Kind:          "file",
			Path:          "search_index.js",
			Region:        "us-east-1",
			Table:         "doc_entries",
			LoadTimeout:   30 * time.Second,
			RetryAttempts: 5,
			RetryBackoff:  500 * time.Millisecond,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch",
			Topics: KafkaTopics{
				Entries:   "docsearch.entries",
				Analytics: "docsearch.analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_ADMIN_KEYS"); v != "" {
		cfg.Server.AdminKeys = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("DS_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("DS_SOURCE_BUCKET"); v != "" {
		cfg.Source.Bucket = v
	}
	if v := os.Getenv("DS_SOURCE_KEY"); v != "" {
		cfg.Source.Key = v
	}
	if v := os.Getenv("DS_SOURCE_REGION"); v != "" {
		cfg.Source.Region = v
	}
	if v := os.Getenv("DS_SOURCE_ENDPOINT"); v != "" {
		cfg.Source.Endpoint = v
	}
	if v := os.Getenv("DS_SOURCE_TABLE"); v != "" {
		cfg.Source.Table = v
	}
	if v := os.Getenv("DS_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("DS_SEARCH_MIN_GROUPS_FOR_FALLBACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MinGroupsForFallback = n
		}
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DS_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
