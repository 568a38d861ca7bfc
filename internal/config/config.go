package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration. Values come from an optional
// YAML file and are overridden by environment variables.
type Config struct {
	Port           string   `yaml:"port"`
	DBDriver       string   `yaml:"db_driver"`
	PostgresDSN    string   `yaml:"postgres_dsn"`
	SQLitePath     string   `yaml:"sqlite_path"`
	MongoURI       string   `yaml:"mongo_uri"`
	MongoDB        string   `yaml:"mongo_db"`
	RedisAddr      string   `yaml:"redis_addr"`
	RedisPassword  string   `yaml:"redis_password"`
	RedisDB        int      `yaml:"redis_db"`
	MinioEndpoint  string   `yaml:"minio_endpoint"`
	MinioAccessKey string   `yaml:"minio_access_key"`
	MinioSecretKey string   `yaml:"minio_secret_key"`
	MinioBucket    string   `yaml:"minio_bucket"`
	MinioUseSSL    bool     `yaml:"minio_use_ssl"`
	SessionSecret  string   `yaml:"session_secret"`
	CookieSecure   bool     `yaml:"cookie_secure"`
	BcryptCost     int      `yaml:"bcrypt_cost"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

func defaults() *Config {
	return &Config{
		Port:           "8080",
		DBDriver:       "postgres",
		SQLitePath:     "guestbook.db",
		MongoDB:        "guestbook",
		RedisAddr:      "redis:6379",
		MinioEndpoint:  "minio:9000",
		MinioBucket:    "profile-images",
		BcryptCost:     12,
		MaxUploadBytes: 5 << 20,
		CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

// Load builds the configuration. path names an optional YAML file; when
// empty, CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getenv("PORT", cfg.Port)
	cfg.DBDriver = getenv("DB_DRIVER", cfg.DBDriver)
	cfg.PostgresDSN = getenv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.SQLitePath = getenv("SQLITE_PATH", cfg.SQLitePath)
	cfg.MongoURI = getenv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = getenv("MONGO_DB", cfg.MongoDB)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.MinioEndpoint = getenv("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioAccessKey = getenv("MINIO_ACCESS_KEY", cfg.MinioAccessKey)
	cfg.MinioSecretKey = getenv("MINIO_SECRET_KEY", cfg.MinioSecretKey)
	cfg.MinioBucket = getenv("MINIO_BUCKET", cfg.MinioBucket)
	cfg.SessionSecret = getenv("SESSION_SECRET", cfg.SessionSecret)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		cfg.MinioUseSSL = v == "true"
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cfg.CookieSecure = v == "true"
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	var err error
	if cfg.RedisDB, err = getint("REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getint("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return nil, err
	}
	maxUpload, err := getint("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for the postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.MongoURI == "" {
		return fmt.Errorf("config: MONGO_URI is required")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST must be between 10 and 31, got %d", c.BcryptCost)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
