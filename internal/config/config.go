package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	HostURL       string
	DBDriver      string
	DBDSN         string
	JWTSecret     string
	ResultDelay   time.Duration
	NotifyTimeout time.Duration
}

// Load reads .env when present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	return &Config{
		Addr:          getEnv("LOCKPICK_ADDR", ":8080"),
		HostURL:       getEnv("LOCKPICK_HOST_URL", "http://localhost:30120/zendo-lockpick"),
		DBDriver:      getEnv("LOCKPICK_DB_DRIVER", "sqlite"),
		DBDSN:         getEnv("LOCKPICK_DB_DSN", "lockpick.db"),
		JWTSecret:     getEnv("LOCKPICK_JWT_SECRET", ""),
		ResultDelay:   getMillis("LOCKPICK_RESULT_DELAY_MS", 500),
		NotifyTimeout: getMillis("LOCKPICK_NOTIFY_TIMEOUT_MS", 2000),
	}
}

// getEnv reads an environment variable and returns its value or a default value
func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = defaultValue
		log.Printf("Environment variable %s not set, using default value: %s", key, defaultValue)
	}
	return value
}

// getMillis falls back to the default on unparsable or non-positive values.
func getMillis(key string, defaultMs int) time.Duration {
	raw := getEnv(key, strconv.Itoa(defaultMs))
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		log.Printf("Environment variable %s=%q is invalid, using default value: %d", key, raw, defaultMs)
		ms = defaultMs
	}
	return time.Duration(ms) * time.Millisecond
}
