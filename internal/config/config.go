// Package config provides configuration for the chat service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int // REST API port
	WSPort   int // WebSocket port

	// Database
	DatabaseURL string

	// Assistant endpoint settings
	AssistantURL         string
	AssistantAPIKey      string
	AssistantModel       string
	AssistantTimeout     time.Duration
	AssistantMaxTokens   int
	AssistantTemperature float64

	// Dispatch pool
	DispatchWorkers int

	// Presence settings
	HeartbeatTimeout time.Duration
	HeartbeatGrace   time.Duration
	SweepInterval    time.Duration

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:             getEnvInt("HTTP_PORT", 8080),
		WSPort:               getEnvInt("WS_PORT", 8090),
		DatabaseURL:          getEnv("DATABASE_URL", "file:rumorchat.db?cache=shared&mode=rwc"),
		AssistantURL:         getEnv("ASSISTANT_URL", "http://localhost:4000"),
		AssistantAPIKey:      getEnv("ASSISTANT_API_KEY", ""),
		AssistantModel:       getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		AssistantTimeout:     time.Duration(getEnvInt("ASSISTANT_TIMEOUT_MS", 60000)) * time.Millisecond,
		AssistantMaxTokens:   getEnvInt("ASSISTANT_MAX_TOKENS", 500),
		AssistantTemperature: getEnvFloat("ASSISTANT_TEMPERATURE", 0.7),
		DispatchWorkers:      getEnvInt("DISPATCH_WORKERS", 4),
		HeartbeatTimeout:     time.Duration(getEnvInt("HEARTBEAT_TIMEOUT_MS", 120000)) * time.Millisecond,
		HeartbeatGrace:       time.Duration(getEnvInt("HEARTBEAT_GRACE_MS", 120000)) * time.Millisecond,
		SweepInterval:        time.Duration(getEnvInt("SWEEP_INTERVAL_MS", 30000)) * time.Millisecond,
		PingInterval:         time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:         time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:          time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:       int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
