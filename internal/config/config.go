// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port              string
	Environment       string
	InngestEventKey   string
	InngestSigningKey string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	PerplexityAPIKey  string
	SlackWebhookURL   string
	DatabaseURL       string
	Database          DatabaseConfig
	Scan              ScanConfig
	Dispatch          DispatchConfig
}

// DatabaseConfig mirrors the connection settings of the backing Postgres.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// ScanConfig holds fan-out runner tunables.
type ScanConfig struct {
	BatchSize       int           // concurrent provider calls per batch
	BatchDelay      time.Duration // backpressure pause between batches
	CellTimeout     time.Duration // per provider call
	ProviderRPS     float64       // per-provider rate limit
	SentimentWindow int           // chars either side of the mention
}

// DispatchConfig holds dedup and budget-gate tunables.
type DispatchConfig struct {
	BudgetWindow   time.Duration // trailing window for ledger sums
	Cooldown       time.Duration // minimum gap between same-category dispatches
	FingerprintTTL time.Duration // pending fingerprint lockout fallback
	DefaultCap     float64       // budget cap when the brand has none configured
	TopicPrefixLen int           // normalized topic truncation length
}

func Load() *Config {
	config := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		PerplexityAPIKey:  os.Getenv("PERPLEXITY_API_KEY"),
		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}

	dbConfig, err := parseDatabaseConfig()
	if err != nil {
		// If DATABASE_URL parsing fails, try individual env vars as fallback
		dbConfig = DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "beacon"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		}
	}
	config.Database = dbConfig

	config.Scan = ScanConfig{
		BatchSize:       getEnvInt("SCAN_BATCH_SIZE", 15),
		BatchDelay:      getEnvDuration("SCAN_BATCH_DELAY", 2*time.Second),
		CellTimeout:     getEnvDuration("SCAN_CELL_TIMEOUT", 90*time.Second),
		ProviderRPS:     getEnvFloat("SCAN_PROVIDER_RPS", 5),
		SentimentWindow: getEnvInt("SENTIMENT_WINDOW_CHARS", 250),
	}

	config.Dispatch = DispatchConfig{
		BudgetWindow:   getEnvDuration("BUDGET_WINDOW", 24*time.Hour),
		Cooldown:       getEnvDuration("DISPATCH_COOLDOWN", 6*time.Hour),
		FingerprintTTL: getEnvDuration("FINGERPRINT_TTL", 72*time.Hour),
		DefaultCap:     getEnvFloat("DEFAULT_BUDGET_CAP", 100),
		TopicPrefixLen: getEnvInt("TOPIC_PREFIX_LEN", 120),
	}

	return config
}

func parseDatabaseConfig() (DatabaseConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL not set")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	config := DatabaseConfig{
		Host:            parsedURL.Hostname(),
		Port:            5432, // default
		User:            parsedURL.User.Username(),
		Name:            parsedURL.Path[1:], // remove leading slash
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
	}

	if password, ok := parsedURL.User.Password(); ok {
		config.Password = password
	}

	if parsedURL.Port() != "" {
		if port, err := strconv.Atoi(parsedURL.Port()); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
