// Package config loads process configuration: defaults, then an optional
// YAML file named by HOSPITAL_CONFIG, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	strutil "scanbo/pkg/platform/strings"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Event sinks.
const (
	SinkMemory = "memory"
	SinkKafka  = "kafka"
	SinkNATS   = "nats"
)

// Config is the complete process configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Registry RegistryConfig `yaml:"registry"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RegistryConfig holds the registry's own parameters.
type RegistryConfig struct {
	// MaxStringLen bounds hospital name and location, inclusive.
	MaxStringLen uint32 `yaml:"max_string_len"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
	// Driver is the database/sql driver name: "pgx" or "postgres" (lib/pq).
	Driver       string `yaml:"driver"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type EventsConfig struct {
	Sink               string        `yaml:"sink"`
	KafkaBrokers       []string      `yaml:"kafka_brokers"`
	KafkaTopic         string        `yaml:"kafka_topic"`
	NATSURL            string        `yaml:"nats_url"`
	NATSStream         string        `yaml:"nats_stream"`
	NATSSubjectPrefix  string        `yaml:"nats_subject_prefix"`
	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr: ":8080",
			// Development default; override with JWT_SIGNING_KEY in production.
			JWTSigningKey:   "dev-secret-key-change-in-production",
			JWTIssuer:       "scanbo",
			ShutdownTimeout: 10 * time.Second,
		},
		Registry: RegistryConfig{MaxStringLen: 64},
		Storage:  StorageConfig{Backend: BackendMemory},
		Database: DatabaseConfig{Driver: "pgx", MaxOpenConns: 10},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Events: EventsConfig{
			Sink:               SinkMemory,
			KafkaTopic:         "hospital.events",
			NATSStream:         "HOSPITALS",
			NATSSubjectPrefix:  "hospital.events",
			OutboxPollInterval: time.Second,
			OutboxBatchSize:    100,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadFromFile overlays the YAML file at path on the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// FromEnv builds the configuration so main stays lean. It does not validate;
// call Validate before use.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv("HOSPITAL_CONFIG"); path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return cfg, err
		}
	}

	var errs []error
	setString(&cfg.Server.Addr, "HOSPITAL_ADDR")
	setString(&cfg.Server.JWTSigningKey, "JWT_SIGNING_KEY")
	setString(&cfg.Server.JWTIssuer, "JWT_ISSUER")
	errs = append(errs, setDuration(&cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT"))

	if v := os.Getenv("HOSPITAL_MAX_STRING_LEN"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("HOSPITAL_MAX_STRING_LEN: %w", err))
		} else {
			cfg.Registry.MaxStringLen = uint32(n)
		}
	}

	setString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	errs = append(errs, setInt(&cfg.Database.MaxOpenConns, "DATABASE_MAX_OPEN_CONNS"))

	setString(&cfg.Redis.URL, "REDIS_URL")
	errs = append(errs,
		setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE"),
		setInt(&cfg.Redis.MinIdleConns, "REDIS_MIN_IDLE_CONNS"),
		setDuration(&cfg.Redis.DialTimeout, "REDIS_DIAL_TIMEOUT"),
		setDuration(&cfg.Redis.ReadTimeout, "REDIS_READ_TIMEOUT"),
		setDuration(&cfg.Redis.WriteTimeout, "REDIS_WRITE_TIMEOUT"),
	)

	setString(&cfg.Events.Sink, "EVENT_SINK")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.KafkaBrokers = splitList(v)
	}
	setString(&cfg.Events.KafkaTopic, "KAFKA_TOPIC")
	setString(&cfg.Events.NATSURL, "NATS_URL")
	setString(&cfg.Events.NATSStream, "NATS_STREAM")
	setString(&cfg.Events.NATSSubjectPrefix, "NATS_SUBJECT_PREFIX")
	errs = append(errs,
		setDuration(&cfg.Events.OutboxPollInterval, "OUTBOX_POLL_INTERVAL"),
		setInt(&cfg.Events.OutboxBatchSize, "OUTBOX_BATCH_SIZE"),
	)

	setString(&cfg.Log.Level, "LOG_LEVEL")
	return cfg, errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("server.jwt_signing_key is required"))
	}
	if c.Registry.MaxStringLen == 0 {
		errs = append(errs, errors.New("registry.max_string_len must be greater than zero"))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres backend"))
		}
		if c.Database.Driver != "pgx" && c.Database.Driver != "postgres" {
			errs = append(errs, fmt.Errorf("database.driver %q must be pgx or postgres", c.Database.Driver))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be memory, postgres or redis", c.Storage.Backend))
	}

	switch c.Events.Sink {
	case SinkMemory:
	case SinkKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("events.kafka_brokers is required for the kafka sink"))
		}
		if c.Events.KafkaTopic == "" {
			errs = append(errs, errors.New("events.kafka_topic is required for the kafka sink"))
		}
	case SinkNATS:
		if c.Events.NATSURL == "" {
			errs = append(errs, errors.New("events.nats_url is required for the nats sink"))
		}
		if c.Events.NATSStream == "" || c.Events.NATSSubjectPrefix == "" {
			errs = append(errs, errors.New("events.nats_stream and events.nats_subject_prefix are required for the nats sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.sink %q must be memory, kafka or nats", c.Events.Sink))
	}

	if c.Events.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("events.outbox_poll_interval must be positive"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// splitList parses a comma separated list, dropping blanks and repeats.
func splitList(v string) []string {
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
