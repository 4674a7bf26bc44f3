package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreDriver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string

	HTTPAddr string
	LogLevel string

	GeminiAPIKey     string
	GeminiModel      string
	AIMaxRetries     int
	AITimeoutMs      int
	AICallsPerMinute int

	GeocoderURL         string
	GeocoderRateLimitMs int
	GeocoderConcurrency int

	MatchDefaultRadiusKm float64
	MatchDefaultLimit    int
	MarketNoise          bool

	SnapshotCSVPath string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "greenbridge"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "greenbridge"),
		PostgresDB:       getEnv("POSTGRES_DB", "greenbridge"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", "./data/greenbridge.db"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		AIMaxRetries:     getEnvInt("AI_MAX_RETRIES", 2),
		AITimeoutMs:      getEnvInt("AI_TIMEOUT_MS", 8000),
		AICallsPerMinute: getEnvInt("AI_CALLS_PER_MINUTE", 30),

		GeocoderURL:         getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderRateLimitMs: getEnvInt("GEOCODER_RATE_LIMIT_MS", 1000),
		GeocoderConcurrency: getEnvInt("GEOCODER_CONCURRENCY", 2),

		MatchDefaultRadiusKm: getEnvFloat("MATCH_DEFAULT_RADIUS_KM", 50),
		MatchDefaultLimit:    getEnvInt("MATCH_DEFAULT_LIMIT", 20),
		MarketNoise:          getEnvBool("MARKET_NOISE", false),

		SnapshotCSVPath: getEnv("SNAPSHOT_CSV_PATH", "./output/market_snapshot.csv"),
	}
}

// DSN returns the connection string for the configured store driver.
func (c *Config) DSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
