package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Cache backends selectable through CACHE_BACKEND.
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheMongo  = "mongo"
	CacheMemory = "memory"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Backend BackendConfig
	Cache   CacheConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

// BackendConfig locates the AbleConnect server.
type BackendConfig struct {
	URL        string        `env:"BACKEND_URL,     default=http://127.0.0.1:8000/api"`
	Timeout    time.Duration `env:"BACKEND_TIMEOUT, default=8s"`
	CSRFCookie string        `env:"CSRF_COOKIE,     default=csrftoken"`
}

type CacheConfig struct {
	Backend     string        `env:"CACHE_BACKEND,   default=sqlite"`
	Namespace   string        `env:"CACHE_NAMESPACE, default=ableconnect"`
	SQLitePath  string        `env:"SQLITE_PATH,     default=ableconnect.db"`
	InFlightTTL time.Duration `env:"INFLIGHT_TTL,    default=30s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=ableconnect"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Development reports whether the agent runs with developer defaults.
func (c *Config) Development() bool { return c.Env == "development" }

// Load reads an optional .env file, then configuration from environment
// variables using go-envconfig.
func Load() *Config {
	_ = godotenv.Load()
	cfg, err := process(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheSQLite, CacheRedis, CacheMongo, CacheMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.JWTSecret == "" && !c.Development() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}
