package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Riot      RiotConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Ingestion IngestionConfig
	Backfill  BackfillConfig
	Insight   InsightConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"rift-stats-lab"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Version     string `envconfig:"APP_VERSION" default:"0.1.0"`
}

// RiotConfig holds upstream match provider settings.
type RiotConfig struct {
	APIKey           string        `envconfig:"RIOT_API_KEY" default:""`
	Timeout          time.Duration `envconfig:"RIOT_TIMEOUT" default:"5s"`
	MaxRetries       int           `envconfig:"RIOT_MAX_RETRIES" default:"0"`
	FallbackRegion   string        `envconfig:"RIOT_FALLBACK_REGION" default:"americas"`
	FallbackPlatform string        `envconfig:"RIOT_FALLBACK_PLATFORM" default:"na1"`
}

// StorageConfig selects and configures persistent stores.
type StorageConfig struct {
	UseMemory        bool   `envconfig:"USE_MEMORY" default:"false"`
	PostgresDSN      string `envconfig:"POSTGRES_DSN" default:""`
	PostgresMaxConns int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	ClickHouseDSN    string `envconfig:"CLICKHOUSE_DSN" default:""`
	AutoMigrate      bool   `envconfig:"AUTO_MIGRATE" default:"true"`
}

// CacheConfig holds object cache settings.
type CacheConfig struct {
	Type          string        `envconfig:"CACHE_TYPE" default:"memory"`
	ObjectTTL     time.Duration `envconfig:"CACHE_OBJECT_TTL" default:"8760h"`
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string        `envconfig:"REDIS_PREFIX" default:"rift:"`
}

// IngestionConfig holds match ingestion settings.
type IngestionConfig struct {
	DefaultCount int           `envconfig:"INGEST_DEFAULT_COUNT" default:"20"`
	Concurrency  int           `envconfig:"INGEST_CONCURRENCY" default:"4"`
	Lookback     time.Duration `envconfig:"INGEST_LOOKBACK" default:"8760h"`
	RecordTTL    time.Duration `envconfig:"MATCH_RECORD_TTL" default:"720h"`
}

// BackfillConfig holds background side-task settings.
type BackfillConfig struct {
	Workers     int           `envconfig:"BACKFILL_WORKERS" default:"4"`
	QueueSize   int           `envconfig:"BACKFILL_QUEUE_SIZE" default:"256"`
	TaskTimeout time.Duration `envconfig:"BACKFILL_TASK_TIMEOUT" default:"10s"`
}

// InsightConfig holds insight generator settings. An empty endpoint disables insights.
type InsightConfig struct {
	Endpoint string        `envconfig:"INSIGHT_ENDPOINT" default:""`
	Timeout  time.Duration `envconfig:"INSIGHT_TIMEOUT" default:"20s"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LogMode maps the environment to a logger mode.
func (a *AppConfig) LogMode() string {
	if a.IsProduction() {
		return "prod"
	}
	return "dev"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required unless USE_MEMORY=true")
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_TYPE %q (want memory or redis)", c.Cache.Type)
	}
	if c.Ingestion.Concurrency < 1 {
		return fmt.Errorf("INGEST_CONCURRENCY must be >= 1")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
