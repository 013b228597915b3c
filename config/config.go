package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	KeyLockNone  = "none"
	KeyLockLocal = "local"
	KeyLockRedis = "redis"
)

const (
	defaultPort               = "8080"
	defaultRequestTimeout     = 60
	defaultMaxChainHops       = 10000
	keyLockTTLMarginSeconds   = 10
	defaultKeyLockWaitSeconds = 5
	defaultEventQueueSize     = 200
	defaultNumEventWorkers    = 2
)

type Config struct {
	// http server
	Port               string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration

	// storage
	DatabaseDriver string // sqlite, postgres or memory
	DatabasePath   string // sqlite file
	DatabaseURL    string // postgres connection string

	// logging
	LogLevel  string
	LogPretty bool

	// chain traversal bound
	MaxChainHops int

	// per-key resolution locking
	KeyLockMode string
	KeyLockTTL  time.Duration
	KeyLockWait time.Duration

	// redis (locking and event fan-out); empty disables
	RedisURL           string
	RedisEventsChannel string

	// identity event worker settings
	EventQueueSize  int
	NumEventWorkers int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBool(key string) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && val
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:               getEnvOrDefault("PORT", defaultPort),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		RequestTimeout:     time.Duration(getEnvIntOrDefault("REQUEST_TIMEOUT_SECONDS", defaultRequestTimeout)) * time.Second,
		DatabaseDriver:     strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", "identity.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogPretty:          getEnvBool("LOG_PRETTY"),
		MaxChainHops:       getEnvIntOrDefault("MAX_CHAIN_HOPS", defaultMaxChainHops),
		KeyLockMode:        strings.ToLower(getEnvOrDefault("KEY_LOCK_MODE", KeyLockNone)),
		KeyLockWait:        time.Duration(getEnvIntOrDefault("KEY_LOCK_WAIT_SECONDS", defaultKeyLockWaitSeconds)) * time.Second,
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisEventsChannel: getEnvOrDefault("REDIS_EVENTS_CHANNEL", "identity-events"),
		EventQueueSize:     getEnvIntOrDefault("EVENT_QUEUE_SIZE", defaultEventQueueSize),
		NumEventWorkers:    getEnvIntOrDefault("NUM_EVENT_WORKERS", defaultNumEventWorkers),
	}

	// a lease must outlive the slowest resolution it guards
	requestTimeoutSeconds := int(cfg.RequestTimeout / time.Second)
	cfg.KeyLockTTL = time.Duration(getEnvIntOrDefault("KEY_LOCK_TTL_SECONDS", requestTimeoutSeconds+keyLockTTLMarginSeconds)) * time.Second

	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when DB_DRIVER is %q", DriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}

	switch cfg.KeyLockMode {
	case KeyLockNone, KeyLockLocal:
	case KeyLockRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL is required when KEY_LOCK_MODE is %q", KeyLockRedis)
		}
		if cfg.KeyLockTTL < cfg.RequestTimeout {
			return Config{}, fmt.Errorf("KEY_LOCK_TTL_SECONDS (%s) must not be shorter than REQUEST_TIMEOUT_SECONDS (%s)", cfg.KeyLockTTL, cfg.RequestTimeout)
		}
	default:
		return Config{}, fmt.Errorf("unsupported KEY_LOCK_MODE %q", cfg.KeyLockMode)
	}

	return cfg, nil
}
