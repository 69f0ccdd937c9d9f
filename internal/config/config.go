package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL         time.Duration
	SessionIdleTimeout time.Duration
	MaxTurns           int
	DefaultAgeRange    string
	RateLimitPerMinute int

	LogLevel       string
	TokenSecret    string
	MetricsEnabled bool

	GeminiAPIKey string
	GeminiModel  string
	BlocklistURL string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	AudioDir string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	// Missing .env is the normal case in production
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./alphabettutor.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionTTL:         getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		MaxTurns:           getEnvInt("MAX_TURNS", 3),
		DefaultAgeRange:    getEnv("DEFAULT_AGE_RANGE", "3-5"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TokenSecret:    getEnv("TOKEN_SECRET", ""),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BlocklistURL: getEnv("BLOCKLIST_URL", ""),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Bubbly the Alphabet Tutor"),

		AudioDir: getEnv("AUDIO_DIR", "./static/audio"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
