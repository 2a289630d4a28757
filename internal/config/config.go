package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type StoreBackend string

const (
	StorePostgres StoreBackend = "postgres"
	StoreSQLite   StoreBackend = "sqlite"
	StoreMemory   StoreBackend = "memory"
)

type Config struct {
	Port    string
	GinMode string

	StoreBackend StoreBackend
	DBURL        string
	DBMaxConns   int32
	SQLitePath   string

	// RedisURL enables the Redis summary cache and the asynq queue. Empty
	// means in-process cache and inline task execution.
	RedisURL        string
	SummaryCacheTTL time.Duration

	AsynqConcurrency int
	AsynqQueues      map[string]int

	LogLevel string

	RequestTimeout time.Duration
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return i, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative duration, got %q", key, v)
	}
	return d, nil
}

// Load reads all env vars and builds a validated config.
func Load() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "release"),
		DBURL:      getEnv("DB_URL", ""),
		SQLitePath: getEnv("SQLITE_PATH", "data/birdconnect.db"),
		RedisURL:   getEnv("REDIS_URL", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	backend := StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", "")))
	switch backend {
	case "":
		// Default to Postgres when a DSN is present, otherwise run embedded.
		if cfg.DBURL != "" {
			backend = StorePostgres
		} else {
			backend = StoreSQLite
		}
	case StorePostgres, StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", backend)
	}
	cfg.StoreBackend = backend

	if cfg.StoreBackend == StorePostgres && cfg.DBURL == "" {
		return nil, errors.New("config: DB_URL must be set when STORE_BACKEND=postgres")
	}

	maxConns, err := getIntEnv("DB_MAX_CONNS", 4)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)

	if cfg.SummaryCacheTTL, err = getDurationEnv("SUMMARY_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDurationEnv("REQUEST_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}

	if cfg.AsynqConcurrency, err = getIntEnv("ASYNQ_CONCURRENCY", 10); err != nil {
		return nil, err
	}

	// Default to consuming both "default" and "chat" queues so tasks are picked up when running API directly
	cfg.AsynqQueues = map[string]int{"default": 1, "chat": 1}
	if v := getEnv("ASYNQ_QUEUES", ""); v != "" {
		if parsed := ParseQueueWeights(v); len(parsed) > 0 {
			cfg.AsynqQueues = parsed
		}
	}

	return cfg, nil
}

// ParseQueueWeights parses strings like "critical=6,default=3,low=1" into a map.
func ParseQueueWeights(s string) map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		w := 1
		if len(kv) == 2 {
			if i, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && i > 0 {
				w = i
			}
		}
		res[name] = w
	}
	return res
}
