// README: Config loader; reads .env files via godotenv, then env vars with defaults.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SessionConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// SnapshotTTL bounds how long a persisted session snapshot survives in the key/value store.
	SnapshotTTL time.Duration
	// UnifiedDirectory makes registration write new identities into the directory.
	UnifiedDirectory bool
}

type DirectoryConfig struct {
	Driver string // memory, postgres, sqlite
	DSN    string
}

type AvatarConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	MaxBytes        int64
}

type Config struct {
	Env  string
	HTTP struct {
		Addr            string
		AllowedOrigins  []string
		ShutdownTimeout time.Duration
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Session   SessionConfig
	Directory DirectoryConfig
	Avatar    AvatarConfig
}

// Load reads .env.<SEMAS_ENV> (falling back to .env) and then the process environment.
func Load() (Config, error) {
	env := envOrDefault("SEMAS_ENV", "development")
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("config: no .env file found, using process environment")
		}
	} else {
		log.Printf("config: loaded %s", envFile)
	}

	var cfg Config
	cfg.Env = env
	cfg.HTTP.Addr = envOrDefault("SEMAS_HTTP_ADDR", ":8080")
	cfg.HTTP.AllowedOrigins = envOrDefaultList("SEMAS_CORS_ORIGINS", []string{"http://localhost:5173"})
	cfg.HTTP.ShutdownTimeout = envOrDefaultDuration("SEMAS_SHUTDOWN_TIMEOUT", 10*time.Second)
	// Empty DSN / address selects the in-memory implementations.
	cfg.DB.DSN = envOrDefault("SEMAS_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("SEMAS_REDIS_ADDR", "")
	cfg.Session.JWTSecret = envOrDefault("SEMAS_JWT_SECRET", "dev-secret-change-me")
	cfg.Session.TokenTTL = envOrDefaultDuration("SEMAS_TOKEN_TTL", 7*24*time.Hour)
	cfg.Session.SnapshotTTL = envOrDefaultDuration("SEMAS_SESSION_TTL", 30*24*time.Hour)
	cfg.Session.UnifiedDirectory = envOrDefaultBool("SEMAS_UNIFIED_DIRECTORY", false)
	cfg.Directory.Driver = envOrDefault("SEMAS_DIRECTORY_DRIVER", "memory")
	cfg.Directory.DSN = envOrDefault("SEMAS_DIRECTORY_DSN", "")
	cfg.Avatar.Bucket = envOrDefault("SEMAS_AVATAR_BUCKET", "")
	cfg.Avatar.Region = envOrDefault("AWS_REGION", "me-south-1")
	cfg.Avatar.AccessKeyID = envOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.Avatar.SecretAccessKey = envOrDefault("AWS_SECRET_ACCESS_KEY", "")
	cfg.Avatar.MaxBytes = int64(envOrDefaultInt("SEMAS_AVATAR_MAX_BYTES", 5*1024*1024))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no safe default outside development.
func (c Config) Validate() error {
	if c.IsProduction() && c.Session.JWTSecret == "dev-secret-change-me" {
		return errors.New("SEMAS_JWT_SECRET is required in production")
	}
	switch c.Directory.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Directory.DSN == "" {
			return fmt.Errorf("SEMAS_DIRECTORY_DSN is required for driver %q", c.Directory.Driver)
		}
	default:
		return fmt.Errorf("unknown directory driver %q", c.Directory.Driver)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
