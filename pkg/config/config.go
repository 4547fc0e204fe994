// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, RPC, Dictionary, Solver, Postgres, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Ordering policies for results that contain the same words in a different
// order.
const (
	OrderingOrdered  = "ordered"
	OrderingMultiset = "multiset"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	RPC        RPCConfig        `yaml:"rpc"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Solver     SolverConfig     `yaml:"solver"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	// AdminKeyHashes are SHA-256 hex digests of the keys accepted on
	// operator routes. Empty leaves those routes open.
	AdminKeyHashes []string `yaml:"adminKeyHashes"`
}

// RPCConfig holds the JSON-over-TCP RPC listener settings.
type RPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DictionaryConfig names where the word list comes from. Source accepts a
// plain path, file://, snapshot://, sqlite://, redis:// or postgres:// URLs.
// Watch reloads local sources when the file changes on disk.
type DictionaryConfig struct {
	Source        string        `yaml:"source"`
	SnapshotPath  string        `yaml:"snapshotPath"`
	LoadTimeout   time.Duration `yaml:"loadTimeout"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
}

// SolverConfig bounds the decomposition search.
type SolverConfig struct {
	MaxWords       int           `yaml:"maxWords"`
	MaxResults     int           `yaml:"maxResults"`
	MaxMemoEntries int           `yaml:"maxMemoEntries"`
	MaxSteps       int           `yaml:"maxSteps"`
	CheckInterval  int           `yaml:"checkInterval"`
	Ordering       string        `yaml:"ordering"`
	Workers        int           `yaml:"workers"`
	SearchTimeout  time.Duration `yaml:"searchTimeout"`
}

// NormalizerConfig controls how incoming bytes are decoded.
type NormalizerConfig struct {
	DefaultEncoding string `yaml:"defaultEncoding"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SolveEvents string `yaml:"solveEvents"`
}

// AnalyticsConfig controls the solve-event pipeline. Events go to Kafka when
// kafka.enabled is set and to an in-process aggregator otherwise. Persist
// stores periodic snapshots in StorePath (sqlite) if set, else Postgres.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	Persist          bool          `yaml:"persist"`
	StorePath        string        `yaml:"storePath"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// RateLimitConfig is a per-client token bucket: Requests per Window.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects bounds and policies the solver cannot honour.
func (c *Config) Validate() error {
	s := c.Solver
	switch {
	case s.MaxWords < 0:
		return fmt.Errorf("solver.maxWords must be >= 0, got %d", s.MaxWords)
	case s.MaxResults < 1:
		return fmt.Errorf("solver.maxResults must be >= 1, got %d", s.MaxResults)
	case s.MaxMemoEntries < 0:
		return fmt.Errorf("solver.maxMemoEntries must be >= 0, got %d", s.MaxMemoEntries)
	case s.MaxSteps < 0:
		return fmt.Errorf("solver.maxSteps must be >= 0, got %d", s.MaxSteps)
	case s.Workers < 0:
		return fmt.Errorf("solver.workers must be >= 0, got %d", s.Workers)
	}
	if s.Ordering != OrderingOrdered && s.Ordering != OrderingMultiset {
		return fmt.Errorf("solver.ordering must be %q or %q, got %q", OrderingOrdered, OrderingMultiset, s.Ordering)
	}
	if strings.TrimSpace(c.Dictionary.Source) == "" {
		return fmt.Errorf("dictionary.source is required")
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		RPC: RPCConfig{
			Enabled: false,
			Addr:    ":9300",
		},
		Dictionary: DictionaryConfig{
			Source:        "data/words.txt",
			LoadTimeout:   30 * time.Second,
			Watch:         false,
			WatchDebounce: 500 * time.Millisecond,
		},
		Solver: SolverConfig{
			MaxWords:       4,
			MaxResults:     500,
			MaxMemoEntries: 50000,
			MaxSteps:       2000000,
			CheckInterval:  1024,
			Ordering:       OrderingOrdered,
			Workers:        0,
			SearchTimeout:  5 * time.Second,
		},
		Normalizer: NormalizerConfig{
			DefaultEncoding: "utf-8",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "anagrams",
			User:            "anagrams",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "anagram-solver-group",
			Topics: KafkaTopics{
				SolveEvents: "anagram-solve-events",
			},
		},
		Analytics: AnalyticsConfig{
			Enabled:          false,
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    2 * time.Second,
			Persist:          false,
			SnapshotInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 600,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			SampleRate: 0.1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads AS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AS_ADMIN_KEY_HASHES"); v != "" {
		cfg.Server.AdminKeyHashes = strings.Split(v, ",")
	}
	if v := os.Getenv("AS_RPC_ADDR"); v != "" {
		cfg.RPC.Addr = v
		cfg.RPC.Enabled = true
	}
	if v := os.Getenv("AS_DICTIONARY_SOURCE"); v != "" {
		cfg.Dictionary.Source = v
	}
	if v := os.Getenv("AS_DICTIONARY_SNAPSHOT"); v != "" {
		cfg.Dictionary.SnapshotPath = v
	}
	if v := os.Getenv("AS_DICTIONARY_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Dictionary.Watch = b
		}
	}
	if v := os.Getenv("AS_SOLVER_MAX_WORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.MaxWords = n
		}
	}
	if v := os.Getenv("AS_SOLVER_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.MaxResults = n
		}
	}
	if v := os.Getenv("AS_SOLVER_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.MaxSteps = n
		}
	}
	if v := os.Getenv("AS_SOLVER_ORDERING"); v != "" {
		cfg.Solver.Ordering = v
	}
	if v := os.Getenv("AS_SOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.Workers = n
		}
	}
	if v := os.Getenv("AS_NORMALIZER_ENCODING"); v != "" {
		cfg.Normalizer.DefaultEncoding = v
	}
	if v := os.Getenv("AS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("AS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("AS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("AS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("AS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("AS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("AS_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("AS_TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("AS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
