package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL       string
	WSURL            string
	CredentialsPath  string
	Environment      string
	HTTPTimeout      time.Duration
	WSMaxRetries     int
	WSBackoffInitial time.Duration
	WSBackoffMax     time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8080"),
		WSURL:            getEnv("WS_URL", "ws://localhost:8080/ws"),
		CredentialsPath:  getEnv("CREDENTIALS_PATH", "./pasartani.db"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		HTTPTimeout:      time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		WSMaxRetries:     getEnvAsInt("WS_MAX_RETRIES", 6),
		WSBackoffInitial: time.Duration(getEnvAsInt("WS_BACKOFF_INITIAL_MS", 500)) * time.Millisecond,
		WSBackoffMax:     time.Duration(getEnvAsInt("WS_BACKOFF_MAX_MS", 30000)) * time.Millisecond,
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
