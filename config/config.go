// Package config loads the runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
)

// Store backends
const (
	// StoreBackendPostgres keeps all records in PostgreSQL through gorm
	StoreBackendPostgres = "postgres"
	// StoreBackendMongo keeps all records in MongoDB
	StoreBackendMongo = "mongo"
)

// Video providers
const (
	// VideoProviderVeo talks to the Gemini API video models
	VideoProviderVeo = "veo"
	// VideoProviderMock generates fake operations locally
	VideoProviderMock = "mock"
)

// Config holds every setting the server and worker need.
type Config struct {
	Address    string `env:"ADDRESS" envDefault:":8080"`
	MediaRoot  string `env:"MEDIA_ROOT" envDefault:"./media"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile    string `env:"LOG_FILE"`
	LogMaxSize int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	DBHost       string `env:"DB_HOST" envDefault:"localhost"`
	DBPort       int    `env:"DB_PORT" envDefault:"5432"`
	DBUser       string `env:"DB_USER" envDefault:"postgres"`
	DBPassword   string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName       string `env:"DB_NAME" envDefault:"vidbatch"`
	DBSSLEnabled bool   `env:"DB_SSL_ENABLED" envDefault:"false"`

	MongoURI    string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName string `env:"MONGO_DB_NAME" envDefault:"vidbatch"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	QueueName     string `env:"QUEUE_NAME" envDefault:"vidbatch:submissions"`

	OperationTTL      time.Duration `env:"OPERATION_TTL" envDefault:"24h"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"10"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30s"`
	ReconcileParallel int           `env:"RECONCILE_PARALLELISM" envDefault:"8"`

	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay       time.Duration `env:"RETRY_DELAY" envDefault:"60s"`
	RetryBackoff     float64       `env:"RETRY_BACKOFF" envDefault:"1"`

	VideoProvider   string  `env:"VIDEO_PROVIDER" envDefault:"veo"`
	VeoAPIKey       string  `env:"VEO_API_KEY"`
	VeoBaseURL      string  `env:"VEO_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	VeoModel        string  `env:"VEO_MODEL" envDefault:"veo-3.1-fast-generate-preview"`
	VideoSubmitRate float64 `env:"VIDEO_SUBMIT_RPS" envDefault:"1"`
	VideoBurst      int     `env:"VIDEO_SUBMIT_BURST" envDefault:"2"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
}

// Parse reads the environment into a Config without validating it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Load parses the environment into a Config and validates the enumerated settings.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be expressed as env tags.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMongo:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.VideoProvider {
	case VideoProviderVeo:
		if c.VeoAPIKey == "" {
			return fmt.Errorf("VEO_API_KEY is required when VIDEO_PROVIDER=%s", VideoProviderVeo)
		}
	case VideoProviderMock:
	default:
		return fmt.Errorf("unsupported VIDEO_PROVIDER %q", c.VideoProvider)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
