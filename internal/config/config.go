package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort         string
	ServiceApiPort  string
	CorsAllowOrigin string

	// Elasticsearch
	ElasticsearchURL    string
	ElasticsearchIndex  string
	SearchIndexTimeout  time.Duration
	SearchIndexCooldown time.Duration

	// Search paging
	SearchDefaultPageSize int
	SearchMaxPageSize     int

	// Rate Limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "stays")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CorsAllowOrigin = getEnv("CORS_ALLOW_ORIGIN", "*")
	cfg.ElasticsearchURL = getEnv("ELASTICSEARCH_URL", "http://localhost:9200")
	cfg.ElasticsearchIndex = getEnv("ELASTICSEARCH_INDEX", "listings")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	indexTimeoutMS, err := strconv.ParseInt(getEnv("SEARCH_INDEX_TIMEOUT_MS", "1500"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_INDEX_TIMEOUT_MS: %w", err)
	}
	cfg.SearchIndexTimeout = time.Duration(indexTimeoutMS) * time.Millisecond

	cooldownSeconds, err := strconv.ParseInt(getEnv("SEARCH_INDEX_COOLDOWN_SECONDS", "30"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_INDEX_COOLDOWN_SECONDS: %w", err)
	}
	cfg.SearchIndexCooldown = time.Duration(cooldownSeconds) * time.Second

	cfg.SearchDefaultPageSize, err = strconv.Atoi(getEnv("SEARCH_DEFAULT_PAGE_SIZE", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_DEFAULT_PAGE_SIZE: %w", err)
	}
	cfg.SearchMaxPageSize, err = strconv.Atoi(getEnv("SEARCH_MAX_PAGE_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_MAX_PAGE_SIZE: %w", err)
	}
	if cfg.SearchDefaultPageSize < 1 || cfg.SearchMaxPageSize < cfg.SearchDefaultPageSize {
		return nil, fmt.Errorf("invalid search page sizes: default %d, max %d", cfg.SearchDefaultPageSize, cfg.SearchMaxPageSize)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
