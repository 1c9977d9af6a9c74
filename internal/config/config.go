package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	LogLevel  string
	LogFormat string

	Store         string
	MongoURL      string
	MongoDatabase string

	// PresenceStore is where online status goes. Empty means the same place
	// as Store.
	PresenceStore string
	RedisAddr     string

	NATSURL           string
	NATSSubjectPrefix string

	StatsInterval   time.Duration
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		CORSOrigins:       splitList(get("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		LogLevel:          get("LOG_LEVEL", "info"),
		LogFormat:         get("LOG_FORMAT", "console"),
		Store:             get("STORE", StoreMemory),
		MongoURL:          get("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase:     get("MONGO_DATABASE", "realtime_chat"),
		PresenceStore:     get("PRESENCE_STORE", ""),
		RedisAddr:         get("REDIS_ADDR", "localhost:6379"),
		NATSURL:           get("NATS_URL", ""),
		NATSSubjectPrefix: get("NATS_SUBJECT_PREFIX", "chat.messages"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "3001")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT: invalid port %q", getenv("PORT"))
	}
	if cfg.StatsInterval, err = parseDuration("STATS_INTERVAL", get("STATS_INTERVAL", "30s")); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", get("SHUTDOWN_TIMEOUT", "15s")); err != nil {
		return nil, err
	}

	switch cfg.Store {
	case StoreMemory, StoreMongo:
	default:
		return nil, fmt.Errorf("STORE: want %s or %s, got %q", StoreMemory, StoreMongo, cfg.Store)
	}
	if cfg.PresenceStore == "" {
		cfg.PresenceStore = cfg.Store
	}
	switch cfg.PresenceStore {
	case StoreMemory, StoreMongo, StoreRedis:
	default:
		return nil, fmt.Errorf("PRESENCE_STORE: want %s, %s or %s, got %q", StoreMemory, StoreMongo, StoreRedis, cfg.PresenceStore)
	}
	if cfg.PresenceStore == StoreMongo && cfg.Store != StoreMongo {
		return nil, fmt.Errorf("PRESENCE_STORE=%s requires STORE=%s", StoreMongo, StoreMongo)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
