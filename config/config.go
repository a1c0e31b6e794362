package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Query         string
	Location      string
	ResultLimit   int
	NoWebsiteOnly bool

	QueriesFile     string
	BulkConcurrency int

	Headless    bool
	ChromeBin   string
	MinDelaySec float64
	MaxDelaySec float64
	MaxRetries  int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	OutputDir string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Query:         getEnv("SEARCH_QUERY", "restaurants"),
		Location:      getEnv("SEARCH_LOCATION", "New York"),
		ResultLimit:   getEnvInt("RESULT_LIMIT", 50),
		NoWebsiteOnly: getEnvBool("NO_WEBSITE_ONLY", false),

		QueriesFile:     getEnv("QUERIES_FILE", ""),
		BulkConcurrency: getEnvInt("BULK_CONCURRENCY", 2),

		Headless:    getEnvBool("HEADLESS", true),
		ChromeBin:   getEnv("CHROME_BIN", ""),
		MinDelaySec: getEnvFloat("MIN_DELAY", 0.5),
		MaxDelaySec: getEnvFloat("MAX_DELAY", 1.5),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "leads_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		OutputDir: getEnv("OUTPUT_DIR", "./output"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
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
