package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all aggregation and server settings, loaded from environment
// variables with defaults matching the original worker deployment.
type Config struct {
	Host           string
	Port           string
	AllowedOrigins string
	RequireAPIKey  bool
	RateLimitRPS   float64

	// Store worker endpoints. Each is an opaque HTTP collaborator returning
	// {"results": [...]} JSON; their scraping internals are not our concern.
	AmazonWorkerURL  string
	NoonWorkerURL    string
	SharafSearchURL  string
	SharafProductURL string

	// Fetch behavior. Detail fetches get a longer timeout than search calls
	// because product pages are rendered server-side and respond slowly.
	SearchTimeout     time.Duration
	DetailTimeout     time.Duration
	DetailConcurrency int
	DetailMaxRetries  int
	RetryBaseDelay    time.Duration
	MaxDetailLinks    int

	// Grouping heuristics. Both are tuning constants with no documented
	// optimum; treat them as knobs, not truths.
	GroupOverlapThreshold int
	TitleMaxTokens        int

	MaxTaskWorkers int
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		RequireAPIKey:  getEnvBool("REQUIRE_API_KEY", false),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),

		AmazonWorkerURL:  getEnv("AMAZON_WORKER_URL", "https://shopping-worker.ehabmalaeb2.workers.dev/search"),
		NoonWorkerURL:    getEnv("NOON_WORKER_URL", "https://noon-worker.ehabmalaeb2.workers.dev/search"),
		SharafSearchURL:  getEnv("SHARAF_SEARCH_URL", "https://sharaf-worker.ehabmalaeb2.workers.dev/search"),
		SharafProductURL: getEnv("SHARAF_PRODUCT_URL", "https://sharaf-worker.ehabmalaeb2.workers.dev/product"),

		SearchTimeout:     getEnvDuration("SEARCH_TIMEOUT", 15*time.Second),
		DetailTimeout:     getEnvDuration("DETAIL_TIMEOUT", 30*time.Second),
		DetailConcurrency: getEnvInt("DETAIL_CONCURRENCY", 4),
		DetailMaxRetries:  getEnvInt("DETAIL_MAX_RETRIES", 1),
		RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		MaxDetailLinks:    getEnvInt("MAX_DETAIL_LINKS", 8),

		GroupOverlapThreshold: getEnvInt("GROUP_OVERLAP_THRESHOLD", 2),
		TitleMaxTokens:        getEnvInt("TITLE_MAX_TOKENS", 6),

		MaxTaskWorkers: getEnvInt("MAX_TASK_WORKERS", 5),
	}
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
